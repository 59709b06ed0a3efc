package assessment

import (
	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

// GradeItem is the outcome of one assessment for a trainee. Score is nil until graded.
type GradeItem struct {
	AssessmentID string   `json:"assessment_id"`
	Title        string   `json:"title"`
	Kind         string   `json:"kind"`
	MaxScore     float64  `json:"max_score"`
	Weight       float64  `json:"weight"`
	Score        *float64 `json:"score"`
	Contribution float64  `json:"contribution"` // score/max_score*weight
}

type GradeSummary struct {
	TraineeID      string      `json:"trainee_id"`
	CourseID       string      `json:"course_id"`
	Items          []GradeItem `json:"items"`
	GradedWeight   float64     `json:"graded_weight"`
	TotalWeight    float64     `json:"total_weight"`
	CurrentPercent float64     `json:"current_percent"` // over graded items only
	FinalPercent   float64     `json:"final_percent"`   // ungraded items count as 0
	Passed         bool        `json:"passed"`
}

// Summarize computes the grade summary of a trainee for the assessments of a course.
// grades maps assessment IDs to the trainee's grades.
func Summarize(traineeID, courseID string, assessments []Assessment, grades map[string]Grade, passingGrade float64) GradeSummary {
	sum := GradeSummary{
		TraineeID: traineeID,
		CourseID:  courseID,
		Items:     make([]GradeItem, 0, len(assessments)),
	}

	var earned float64
	for _, a := range assessments {
		item := GradeItem{
			AssessmentID: a.ID,
			Title:        a.Title,
			Kind:         a.Kind,
			MaxScore:     a.MaxScore,
			Weight:       a.Weight,
		}
		sum.TotalWeight += a.Weight
		if g, ok := grades[a.ID]; ok && a.MaxScore > 0 {
			score := g.Score
			item.Score = &score
			item.Contribution = score / a.MaxScore * a.Weight
			sum.GradedWeight += a.Weight
			earned += item.Contribution
		}
		item.Contribution = core.Round2(item.Contribution)
		sum.Items = append(sum.Items, item)
	}

	if sum.GradedWeight > 0 {
		sum.CurrentPercent = core.Round2(earned / sum.GradedWeight * 100)
	}
	if sum.TotalWeight > 0 {
		sum.FinalPercent = core.Round2(earned / sum.TotalWeight * 100)
	}
	sum.Passed = sum.TotalWeight > 0 && sum.FinalPercent >= passingGrade
	sum.GradedWeight = core.Round2(sum.GradedWeight)
	sum.TotalWeight = core.Round2(sum.TotalWeight)
	return sum
}
