package calendar

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

// Event kinds
const (
	KindHoliday = "holiday"
	KindEvent   = "event"
	KindSession = "session"
)

// Entry kinds, on top of the event kinds.
const (
	EntryModule   = "module"
	EntryDeadline = "deadline"
)

// MaxWindowDays is the longest calendar window that can be requested.
const MaxWindowDays = 366

type Event struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"` // empty for global events
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Kind        string    `json:"kind"`
	StartAt     time.Time `json:"start_at"` // UTC
	EndAt       time.Time `json:"end_at"`   // UTC
	AllDay      bool      `json:"all_day"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// normalize moves all-day events to whole days, in UTC.
func (e *Event) normalize() {
	e.StartAt = e.StartAt.UTC()
	e.EndAt = e.EndAt.UTC()
	if e.AllDay {
		e.StartAt = core.DateOf(e.StartAt).Time()
		e.EndAt = core.DateOf(e.EndAt).EndOfDay()
	}
}

// Entry is an item of a calendar feed.
type Entry struct {
	Kind    string    `json:"kind"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	AllDay  bool      `json:"all_day"`
	BatchID string    `json:"batch_id"`
	RefID   string    `json:"ref_id"` // event, curriculum entry or assessment ID
}

type NewEvent struct {
	BatchID     string    `json:"batch_id"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description"`
	Kind        string    `json:"kind" validate:"required,oneof=holiday event session"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
	AllDay      bool      `json:"all_day"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.BatchID = core.CleanString(ne.BatchID)
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Kind = core.CleanString(ne.Kind, true /* lower */)
	return validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// Nil and empty fields are left untouched. The target batch of an event cannot change.
type UpdateEvent struct {
	Title       string     `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	Kind        string     `json:"kind" validate:"omitempty,oneof=holiday event session"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      *bool      `json:"all_day"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Title = core.CleanString(ue.Title)
	ue.Kind = core.CleanString(ue.Kind, true /* lower */)
	return validate.Struct(ue)
}

// EventFilter selects the events overlapping [From, To]. Global events are always included.
type EventFilter struct {
	BatchIDs   []string
	AllBatches bool // ignore BatchIDs and include every batch event
	From       time.Time
	To         time.Time
}

// FeedFilter is the requested calendar window, both dates included.
type FeedFilter struct {
	From    core.Date `query:"from"`
	To      core.Date `query:"to"`
	BatchID string    `query:"batch_id"`
}
