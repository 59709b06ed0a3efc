package dashboard

import (
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
)

// Views
const (
	ViewAdmin   = "admin"
	ViewTrainer = "trainer"
	ViewTrainee = "trainee"
)

// UpcomingDays is how far ahead deadlines are listed.
const UpcomingDays = 14

type UserStats struct {
	Total    int `json:"total" boil:"total"`
	Active   int `json:"active" boil:"active"`
	Inactive int `json:"inactive" boil:"inactive"`
	Admins   int `json:"admins" boil:"admins"`
	Trainers int `json:"trainers" boil:"trainers"`
	Trainees int `json:"trainees" boil:"trainees"`
}

type BatchStats struct {
	Upcoming int `json:"upcoming" boil:"upcoming"`
	Ongoing  int `json:"ongoing" boil:"ongoing"`
	Finished int `json:"finished" boil:"finished"`
}

type CourseStats struct {
	Published   int `json:"published" boil:"published"`
	Draft       int `json:"draft" boil:"draft"`
	Assessments int `json:"assessments" boil:"assessments"`
}

type AdminView struct {
	Users      UserStats          `json:"users"`
	Batches    BatchStats         `json:"batches"`
	Courses    CourseStats        `json:"courses"`
	Onboarding onboarding.Summary `json:"onboarding"`
}

// ScheduledModule is a curriculum entry with the titles of what is taught.
type ScheduledModule struct {
	batch.Schedule
	ModuleTitle string `json:"module_title"`
	CourseTitle string `json:"course_title"`
}

// MissingGrades counts the trainees left ungraded on a past-due assessment.
type MissingGrades struct {
	Assessment assessment.Assessment `json:"assessment"`
	Missing    int                   `json:"missing"`
}

type TrainerView struct {
	Batches       []batch.Batch           `json:"batches"`
	Today         []ScheduledModule       `json:"today"`
	Deadlines     []assessment.Assessment `json:"deadlines"`
	MissingGrades []MissingGrades         `json:"missing_grades"`
}

type TraineeView struct {
	CurrentBatch *batch.Batch              `json:"current_batch"`
	Today        []ScheduledModule         `json:"today"`
	Deadlines    []assessment.Assessment   `json:"deadlines"`
	Grades       []assessment.GradeSummary `json:"grades"`
	Onboarding   onboarding.Checklist      `json:"onboarding"`
}

// Dashboard holds the view matching the highest role of its user.
type Dashboard struct {
	View    string       `json:"view"`
	Admin   *AdminView   `json:"admin,omitempty"`
	Trainer *TrainerView `json:"trainer,omitempty"`
	Trainee *TraineeView `json:"trainee,omitempty"`
}
