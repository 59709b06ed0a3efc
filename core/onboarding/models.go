package onboarding

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

// Item is a step of the onboarding checklist every trainee goes through.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	IsRequired  bool      `json:"is_required"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Progress records that a trainee completed an item. VerifiedBy is set when staff marked it.
type Progress struct {
	ItemID      string    `json:"item_id"`
	TraineeID   string    `json:"trainee_id"`
	CompletedAt time.Time `json:"completed_at"`
	VerifiedBy  string    `json:"verified_by"`
}

type ChecklistItem struct {
	Item
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	VerifiedBy  string     `json:"verified_by"`
}

type Checklist struct {
	TraineeID string          `json:"trainee_id"`
	Items     []ChecklistItem `json:"items"`
	Completed int             `json:"completed"` // required items completed
	Required  int             `json:"required"`
	Percent   float64         `json:"percent"`
}

// Summary is the onboarding completion across active trainees.
type Summary struct {
	Trainees       int     `json:"trainees"`
	Onboarded      int     `json:"onboarded"` // trainees with every required item completed
	AveragePercent float64 `json:"average_percent"`
}

type NewItem struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	Position    *int   `json:"position" validate:"omitempty,min=1"`
	IsRequired  *bool  `json:"is_required"` // defaults to true
}

// cleanTitle trims a title and collapses its inner whitespace.
func cleanTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Title = cleanTitle(ni.Title)
	ni.Description = core.CleanString(ni.Description)
	return validate.Struct(ni)
}

type UpdateItem struct {
	Title       string  `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Position    *int    `json:"position" validate:"omitempty,min=1"`
	IsRequired  *bool   `json:"is_required"`
	IsActive    *bool   `json:"is_active"`
}

func (ui *UpdateItem) Validate(validate *validator.Validate) error {
	ui.Title = cleanTitle(ui.Title)
	if ui.Description != nil {
		desc := core.CleanString(*ui.Description)
		ui.Description = &desc
	}
	return validate.Struct(ui)
}

type SetCompleted struct {
	Completed bool `json:"completed"`
}

// buildChecklist applies a trainee's progress to the active items.
// Percent is the share of completed required items, 100 when nothing is required.
func buildChecklist(traineeID string, items []Item, progress []Progress) Checklist {
	done := make(map[string]Progress, len(progress))
	for _, p := range progress {
		done[p.ItemID] = p
	}

	cl := Checklist{TraineeID: traineeID, Items: make([]ChecklistItem, 0, len(items)), Percent: 100}
	for _, it := range items {
		if !it.IsActive {
			continue
		}
		ci := ChecklistItem{Item: it}
		if p, ok := done[it.ID]; ok {
			completedAt := p.CompletedAt
			ci.Completed = true
			ci.CompletedAt = &completedAt
			ci.VerifiedBy = p.VerifiedBy
		}
		if it.IsRequired {
			cl.Required++
			if ci.Completed {
				cl.Completed++
			}
		}
		cl.Items = append(cl.Items, ci)
	}
	if cl.Required > 0 {
		cl.Percent = core.Round2(float64(cl.Completed) / float64(cl.Required) * 100)
	}
	return cl
}
