package batch

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

// Member roles
const (
	MemberTrainer = "trainer"
	MemberTrainee = "trainee"
)

// Batch statuses, relative to the current date.
const (
	StatusUpcoming = "upcoming"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

const MaxQuarters = 4

type Batch struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Status returns whether the batch is upcoming, ongoing or finished on day.
func (b Batch) Status(day core.Date) string {
	switch {
	case day.Before(b.StartDate):
		return StatusUpcoming
	case day.After(b.EndDate):
		return StatusFinished
	default:
		return StatusOngoing
	}
}

type Member struct {
	BatchID  string     `json:"batch_id"`
	UserID   string     `json:"user_id"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	User     *user.User `json:"user,omitempty"`
}

type Quarter struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	Number    int       `json:"number"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

// Schedule is a curriculum entry: a course module taught to a batch during part of a quarter.
type Schedule struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	QuarterID string    `json:"quarter_id"`
	ModuleID  string    `json:"module_id"`
	CourseID  string    `json:"course_id"`
	TrainerID string    `json:"trainer_id"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewBatch struct {
	Code      string    `json:"code" validate:"required,max=30,alphanum_"`
	Name      string    `json:"name" validate:"required,notblank,max=200"`
	StartDate core.Date `json:"start_date" validate:"required"`
	EndDate   core.Date `json:"end_date" validate:"required"`
}

func (nb *NewBatch) Validate(validate *validator.Validate) error {
	nb.Code = cleanCode(nb.Code)
	nb.Name = core.CleanString(nb.Name)
	if err := validate.Struct(nb); err != nil {
		return err
	}
	return checkRange(nb.StartDate, nb.EndDate)
}

// UpdateBatch defines what information may be provided to modify an existing Batch.
// Empty fields are left untouched.
type UpdateBatch struct {
	Code      string    `json:"code" validate:"omitempty,max=30,alphanum_"`
	Name      string    `json:"name" validate:"omitempty,max=200"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (ub *UpdateBatch) Validate(validate *validator.Validate) error {
	ub.Code = cleanCode(ub.Code)
	ub.Name = core.CleanString(ub.Name)
	return validate.Struct(ub)
}

type NewMembers struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
	Role    string   `json:"role" validate:"required,oneof=trainer trainee"`
}

func (nm *NewMembers) Validate(validate *validator.Validate) error {
	nm.Role = core.CleanString(nm.Role, true /* lower */)
	nm.UserIDs = core.UniqueStrings(nm.UserIDs)
	return validate.Struct(nm)
}

type NewQuarter struct {
	Number    int       `json:"number" validate:"required,min=1,max=4"`
	StartDate core.Date `json:"start_date" validate:"required"`
	EndDate   core.Date `json:"end_date" validate:"required"`
}

func (nq *NewQuarter) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nq); err != nil {
		return err
	}
	return checkRange(nq.StartDate, nq.EndDate)
}

type UpdateQuarter struct {
	Number    int       `json:"number" validate:"omitempty,min=1,max=4"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (uq *UpdateQuarter) Validate(validate *validator.Validate) error {
	return validate.Struct(uq)
}

type GenerateQuarters struct {
	Count int `json:"count" validate:"required,min=1,max=4"`
}

func (gq *GenerateQuarters) Validate(validate *validator.Validate) error {
	return validate.Struct(gq)
}

// NewSchedule schedules a module in a batch quarter. The range defaults to the quarter's.
type NewSchedule struct {
	QuarterID string    `json:"quarter_id" validate:"required"`
	ModuleID  string    `json:"module_id" validate:"required"`
	TrainerID string    `json:"trainer_id"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.TrainerID = core.CleanString(ns.TrainerID)
	return validate.Struct(ns)
}

// UpdateSchedule moves a curriculum entry or changes its trainer. An empty (non-nil) TrainerID unassigns the trainer.
type UpdateSchedule struct {
	QuarterID string    `json:"quarter_id"`
	TrainerID *string   `json:"trainer_id"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (us *UpdateSchedule) Validate(validate *validator.Validate) error {
	if us.TrainerID != nil {
		id := core.CleanString(*us.TrainerID)
		us.TrainerID = &id
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search   string    `query:"search"`
	Status   string    `query:"status"`
	MemberID string    `query:"member_id"`
	Today    core.Date `query:"-"` // reference date for Status
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// ScheduleFilter applies AND operation on its non-empty fields.
type ScheduleFilter struct {
	BatchIDs  []string
	QuarterID string
	TrainerID string
	CourseIDs []string
	ModuleID  string
	// From and To select the entries overlapping [From, To].
	From core.Date
	To   core.Date
}

// OrderingFields are the Batch fields that can be ordered by.
var OrderingFields = []string{"code", "name", "start_date", "end_date", "created_at"}
