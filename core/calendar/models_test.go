package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

func TestEvent_normalize(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	start := time.Date(2024, time.May, 1, 10, 30, 0, 0, nairobi)
	end := time.Date(2024, time.May, 3, 1, 0, 0, 0, nairobi)

	e := Event{StartAt: start, EndAt: end}
	e.normalize()
	assert.Equal(t, start.UTC(), e.StartAt)
	assert.Equal(t, end.UTC(), e.EndAt)

	e = Event{StartAt: start, EndAt: end, AllDay: true}
	e.normalize()
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), e.StartAt)
	// 01:00 EAT is still May 2nd in UTC
	assert.Equal(t, time.Date(2024, time.May, 2, 23, 59, 59, 0, time.UTC), e.EndAt)
}

func TestCheckWindow(t *testing.T) {
	jan1 := core.NewDate(2024, time.January, 1)

	tests := []struct {
		name      string
		filter    FeedFilter
		wantField string
	}{
		{name: "single day", filter: FeedFilter{From: jan1, To: jan1}},
		{name: "full leap year", filter: FeedFilter{From: jan1, To: jan1.AddDays(365)}},
		{name: "too long", filter: FeedFilter{From: jan1, To: jan1.AddDays(366)}, wantField: "to"},
		{name: "reversed", filter: FeedFilter{From: jan1, To: jan1.AddDays(-1)}, wantField: "to"},
		{name: "missing from", filter: FeedFilter{To: jan1}, wantField: "from"},
		{name: "missing to", filter: FeedFilter{From: jan1}, wantField: "to"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := checkWindow(tc.filter)
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			if assert.ErrorAs(t, err, &vErr) {
				assert.Equal(t, tc.wantField, vErr.Fields[0].Field)
			}
		})
	}
}
