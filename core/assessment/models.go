package assessment

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

// Assessment kinds
const (
	KindQuiz     = "quiz"
	KindExam     = "exam"
	KindActivity = "activity"
	KindProject  = "project"
)

// MaxCourseWeight caps the sum of the weights of a course's assessments.
const MaxCourseWeight = 100.0

var Kinds = []string{KindQuiz, KindExam, KindActivity, KindProject}

type Assessment struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	ModuleID    string     `json:"module_id"` // empty for course-wide assessments
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	MaxScore    float64    `json:"max_score"`
	Weight      float64    `json:"weight"` // percentage of the course grade
	DueAt       *time.Time `json:"due_at"` // UTC
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Grade struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessment_id"`
	TraineeID    string    `json:"trainee_id"`
	Score        float64   `json:"score"`
	Feedback     string    `json:"feedback"`
	GradedBy     string    `json:"graded_by"`
	GradedAt     time.Time `json:"graded_at"`
}

type NewAssessment struct {
	ModuleID    string     `json:"module_id"`
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description"`
	Kind        string     `json:"kind" validate:"required,oneof=quiz exam activity project"`
	MaxScore    float64    `json:"max_score" validate:"required,gt=0"`
	Weight      float64    `json:"weight" validate:"required,gt=0,lte=100"`
	DueAt       *time.Time `json:"due_at"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.ModuleID = core.CleanString(na.ModuleID)
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Kind = core.CleanString(na.Kind, true /* lower */)
	return validate.Struct(na)
}

// UpdateAssessment defines what information may be provided to modify an existing Assessment.
// Nil and empty fields are left untouched. An empty (non-nil) ModuleID makes the assessment course-wide.
type UpdateAssessment struct {
	ModuleID    *string    `json:"module_id"`
	Title       string     `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	Kind        string     `json:"kind" validate:"omitempty,oneof=quiz exam activity project"`
	MaxScore    *float64   `json:"max_score" validate:"omitempty,gt=0"`
	Weight      *float64   `json:"weight" validate:"omitempty,gt=0,lte=100"`
	DueAt       *time.Time `json:"due_at"`
	ClearDueAt  bool       `json:"clear_due_at"`
}

func (ua *UpdateAssessment) Validate(validate *validator.Validate) error {
	if ua.ModuleID != nil {
		id := core.CleanString(*ua.ModuleID)
		ua.ModuleID = &id
	}
	ua.Title = core.CleanString(ua.Title)
	ua.Kind = core.CleanString(ua.Kind, true /* lower */)
	return validate.Struct(ua)
}

type GradeInput struct {
	TraineeID string   `json:"trainee_id" validate:"required"`
	Score     *float64 `json:"score" validate:"required,min=0"`
	Feedback  string   `json:"feedback" validate:"max=2000"`
}

type RecordGrades struct {
	Grades []GradeInput `json:"grades" validate:"required,min=1,dive"`
}

func (rg *RecordGrades) Validate(validate *validator.Validate) error {
	seen := make(map[string]struct{}, len(rg.Grades))
	for i := range rg.Grades {
		g := &rg.Grades[i]
		g.TraineeID = core.CleanString(g.TraineeID)
		g.Feedback = core.CleanString(g.Feedback)
		if _, ok := seen[g.TraineeID]; ok && g.TraineeID != "" {
			return core.NewFieldError(fmt.Sprintf("grades[%d].trainee_id", i), "duplicate trainee")
		}
		seen[g.TraineeID] = struct{}{}
	}
	return validate.Struct(rg)
}

// QueryFilter applies AND operation on its non-empty fields.
type QueryFilter struct {
	IDs       []string   `query:"-"`
	CourseIDs []string   `query:"-"`
	ModuleID  string     `query:"module_id"`
	Kind      string     `query:"kind"`
	DueFrom   *time.Time `query:"-"`
	DueTo     *time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.ModuleID = core.CleanString(qf.ModuleID)
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
}

// GradeFilter applies AND operation on its non-empty fields.
type GradeFilter struct {
	AssessmentIDs []string
	TraineeIDs    []string
	CourseIDs     []string
}

// OrderingFields are the Assessment fields that can be ordered by.
var OrderingFields = []string{"title", "kind", "weight", "due_at", "created_at"}

// GradebookRow is the grade summary of one trainee of a batch.
type GradebookRow struct {
	Trainee user.User    `json:"trainee"`
	Summary GradeSummary `json:"summary"`
}

type Gradebook struct {
	BatchID     string         `json:"batch_id"`
	CourseID    string         `json:"course_id"`
	Assessments []Assessment   `json:"assessments"`
	Rows        []GradebookRow `json:"rows"`
}
