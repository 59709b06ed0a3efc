package onboarding

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

func TestBuildChecklist(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{
		{ID: "i1", Title: "Sign contract", Position: 1, IsRequired: true, IsActive: true},
		{ID: "i2", Title: "Setup laptop", Position: 2, IsRequired: true, IsActive: true},
		{ID: "i3", Title: "Join chat", Position: 3, IsRequired: false, IsActive: true},
		{ID: "i4", Title: "Old step", Position: 4, IsRequired: true, IsActive: false},
	}

	tests := []struct {
		name          string
		items         []Item
		progress      []Progress
		wantItems     int
		wantCompleted int
		wantRequired  int
		wantPercent   float64
	}{
		{name: "nothing done", items: items, wantItems: 3, wantRequired: 2, wantPercent: 0},
		{
			name:          "half done",
			items:         items,
			progress:      []Progress{{ItemID: "i1", CompletedAt: now}, {ItemID: "i3", CompletedAt: now}},
			wantItems:     3,
			wantCompleted: 1,
			wantRequired:  2,
			wantPercent:   50,
		},
		{
			name:          "inactive items are ignored",
			items:         items,
			progress:      []Progress{{ItemID: "i1", CompletedAt: now}, {ItemID: "i2", CompletedAt: now}, {ItemID: "i4", CompletedAt: now}},
			wantItems:     3,
			wantCompleted: 2,
			wantRequired:  2,
			wantPercent:   100,
		},
		{name: "nothing required", items: items[2:3], wantItems: 1, wantPercent: 100},
		{name: "no items", wantPercent: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cl := buildChecklist("t1", tc.items, tc.progress)
			assert.Equal(t, "t1", cl.TraineeID)
			assert.Len(t, cl.Items, tc.wantItems)
			assert.Equal(t, tc.wantCompleted, cl.Completed)
			assert.Equal(t, tc.wantRequired, cl.Required)
			assert.Equal(t, tc.wantPercent, cl.Percent)
		})
	}
}

func TestBuildChecklist_Verified(t *testing.T) {
	now := time.Now().UTC()
	items := []Item{{ID: "i1", IsRequired: true, IsActive: true}}

	cl := buildChecklist("t1", items, []Progress{{ItemID: "i1", TraineeID: "t1", CompletedAt: now, VerifiedBy: "a1"}})
	if assert.Len(t, cl.Items, 1) {
		assert.True(t, cl.Items[0].Completed)
		assert.Equal(t, now, *cl.Items[0].CompletedAt)
		assert.Equal(t, "a1", cl.Items[0].VerifiedBy)
	}
}

func TestItem_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	ni := NewItem{Title: "  Setup \t  laptop ", Description: "  Bring\n  the charger  "}
	require.NoError(t, ni.Validate(validate))
	assert.Equal(t, "Setup laptop", ni.Title)
	assert.Equal(t, "Bring\n  the charger", ni.Description)

	ui := UpdateItem{Title: " Get   badge"}
	require.NoError(t, ui.Validate(validate))
	assert.Equal(t, "Get badge", ui.Title)

	blank := NewItem{Title: "   "}
	assert.Error(t, blank.Validate(validate))
}
