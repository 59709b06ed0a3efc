package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
	"github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	return vErr.Fields
}

func entriesOfKind(entries []calendar.Entry, kind string) []calendar.Entry {
	res := make([]calendar.Entry, 0)
	for _, e := range entries {
		if e.Kind == kind {
			res = append(res, e)
		}
	}
	return res
}

func TestService_Events(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := app.Admin(t, "admin")
	trainer := app.Trainer(t, "trainer")
	trainee := app.Trainee(t, "hero")
	start := core.NewDate(2030, time.January, 1)
	b := app.Batch(t, "B1", start, start.AddDays(89))
	app.AddMembers(t, b, batch.MemberTrainer, trainer)

	day := time.Date(2030, time.January, 10, 9, 30, 0, 0, time.UTC)
	_, err := app.CalendarSvc.Create(ctx, trainee, calendar.NewEvent{Title: "Party", Kind: calendar.KindEvent, StartAt: day, EndAt: day})
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))
	_, err = app.CalendarSvc.Create(ctx, trainer, calendar.NewEvent{Title: "Holiday", Kind: calendar.KindHoliday, StartAt: day, EndAt: day})
	require.NoError(t, err, "trainers may create global events")
	_, err = app.CalendarSvc.Create(ctx, admin, calendar.NewEvent{BatchID: "nope", Title: "Lost", Kind: calendar.KindEvent, StartAt: day, EndAt: day})
	assert.Equal(t, []core.FieldError{{Field: "batch_id", Error: batch.ErrNotFound.Error()}}, fieldErrors(t, err))

	other := app.Batch(t, "B2", start, start.AddDays(89))
	_, err = app.CalendarSvc.Create(ctx, trainer, calendar.NewEvent{BatchID: other.ID, Title: "Intrusion", Kind: calendar.KindSession, StartAt: day, EndAt: day})
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	session, err := app.CalendarSvc.Create(ctx, trainer, calendar.NewEvent{BatchID: b.ID, Title: "Review", Kind: calendar.KindSession, StartAt: day, EndAt: day.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, trainer.ID, session.CreatedBy)

	t.Run("update", func(t *testing.T) {
		before := day.Add(-time.Hour)
		_, err := app.CalendarSvc.Update(ctx, trainer, session, calendar.UpdateEvent{EndAt: &before})
		assert.Equal(t, []core.FieldError{{Field: "end_at", Error: "end must not be before start"}}, fieldErrors(t, err))

		allDay := true
		updated, err := app.CalendarSvc.Update(ctx, trainer, session, calendar.UpdateEvent{AllDay: &allDay})
		require.NoError(t, err)
		assert.Equal(t, start.AddDays(9).Time(), updated.StartAt)
		assert.Equal(t, start.AddDays(9).EndOfDay(), updated.EndAt)

		colleague := app.Trainer(t, "colleague")
		app.AddMembers(t, b, batch.MemberTrainer, colleague)
		_, err = app.CalendarSvc.Update(ctx, colleague, updated, calendar.UpdateEvent{Title: "Mine"})
		assert.Equal(t, core.ErrForbidden, errors.Cause(err))
		assert.Equal(t, core.ErrForbidden, errors.Cause(app.CalendarSvc.Delete(ctx, colleague, updated)))

		updated, err = app.CalendarSvc.Update(ctx, admin, updated, calendar.UpdateEvent{Title: "Review day"})
		require.NoError(t, err)
		assert.Equal(t, "Review day", updated.Title)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, app.CalendarSvc.Delete(ctx, trainer, session))
		_, err := app.CalendarSvc.GetByID(ctx, session.ID)
		assert.Equal(t, calendar.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Feed(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	admin := app.Admin(t, "admin")
	trainer := app.Trainer(t, "trainer")
	trainee := app.Trainee(t, "hero")
	start := core.NewDate(2030, time.January, 1)
	b1 := app.Batch(t, "B1", start, start.AddDays(89))
	b2 := app.Batch(t, "B2", start, start.AddDays(89))
	app.AddMembers(t, b1, batch.MemberTrainee, trainee)

	golang := app.Course(t, trainer, "GO101", true)
	sql := app.Course(t, trainer, "SQL101", true)
	basics := app.Module(t, golang.ID, "Basics")
	queries := app.Module(t, sql.ID, "Queries")
	for _, b := range []batch.Batch{b1, b2} {
		quarters, err := app.BatchSvc.GenerateQuarters(ctx, b, 1)
		require.NoError(t, err)
		_, err = app.BatchSvc.CreateSchedule(ctx, b, batch.NewSchedule{QuarterID: quarters[0].ID, ModuleID: basics.ID})
		require.NoError(t, err)
		if b.ID == b1.ID {
			_, err = app.BatchSvc.CreateSchedule(ctx, b, batch.NewSchedule{QuarterID: quarters[0].ID, ModuleID: queries.ID})
			require.NoError(t, err)
		}
	}

	goDue := time.Date(2030, time.January, 15, 10, 0, 0, 0, time.UTC)
	sqlDue := time.Date(2030, time.January, 20, 10, 0, 0, 0, time.UTC)
	lateDue := time.Date(2030, time.June, 1, 10, 0, 0, 0, time.UTC)
	goQuiz, err := app.AssessmentSvc.Create(ctx, trainer, golang, assessment.NewAssessment{Title: "Go quiz", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 10, DueAt: &goDue})
	require.NoError(t, err)
	sqlQuiz, err := app.AssessmentSvc.Create(ctx, trainer, sql, assessment.NewAssessment{Title: "SQL quiz", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 10, DueAt: &sqlDue})
	require.NoError(t, err)
	_, err = app.AssessmentSvc.Create(ctx, trainer, sql, assessment.NewAssessment{Title: "Later", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 10, DueAt: &lateDue})
	require.NoError(t, err)

	newYear := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	holiday, err := app.CalendarSvc.Create(ctx, admin, calendar.NewEvent{Title: "New Year", Kind: calendar.KindHoliday, StartAt: newYear, EndAt: newYear, AllDay: true})
	require.NoError(t, err)
	_, err = app.CalendarSvc.Create(ctx, admin, calendar.NewEvent{BatchID: b2.ID, Title: "B2 only", Kind: calendar.KindEvent, StartAt: goDue, EndAt: goDue})
	require.NoError(t, err)

	january := calendar.FeedFilter{From: start, To: core.NewDate(2030, time.January, 31)}

	t.Run("window", func(t *testing.T) {
		_, err := app.CalendarSvc.Feed(ctx, trainee, calendar.FeedFilter{From: start})
		assert.Equal(t, []core.FieldError{{Field: "to", Error: "this field is required"}}, fieldErrors(t, err))
		_, err = app.CalendarSvc.Feed(ctx, trainee, calendar.FeedFilter{From: start, To: start.AddDays(calendar.MaxWindowDays)})
		assert.Equal(t, []core.FieldError{{Field: "to", Error: "the calendar window cannot exceed 366 days"}}, fieldErrors(t, err))
		_, err = app.CalendarSvc.Feed(ctx, trainee, calendar.FeedFilter{From: start, To: start.AddDays(calendar.MaxWindowDays - 1)})
		assert.NoError(t, err)
	})

	t.Run("trainee", func(t *testing.T) {
		entries, err := app.CalendarSvc.Feed(ctx, trainee, january)
		require.NoError(t, err)

		titles := make([]string, 0, len(entries))
		for _, e := range entries {
			titles = append(titles, e.Title)
		}
		assert.Equal(t, []string{"Basics", "New Year", "Queries", "Go quiz", "SQL quiz"}, titles)
		if assert.Len(t, entries, 5) {
			assert.Equal(t, holiday.ID, entries[1].RefID)
		}
		modules := entriesOfKind(entries, calendar.EntryModule)
		if assert.Len(t, modules, 2) {
			assert.Equal(t, "Basics", modules[0].Title)
			assert.Equal(t, "Queries", modules[1].Title)
			assert.True(t, modules[0].AllDay)
			assert.Equal(t, b1.ID, modules[0].BatchID)
		}
		deadlines := entriesOfKind(entries, calendar.EntryDeadline)
		if assert.Len(t, deadlines, 2) {
			assert.Equal(t, goQuiz.ID, deadlines[0].RefID)
			assert.Equal(t, b1.ID, deadlines[0].BatchID)
			assert.Equal(t, sqlQuiz.ID, deadlines[1].RefID)
		}

		_, err = app.CalendarSvc.Feed(ctx, trainee, calendar.FeedFilter{From: january.From, To: january.To, BatchID: b2.ID})
		assert.Equal(t, core.ErrForbidden, errors.Cause(err))
	})

	t.Run("admin", func(t *testing.T) {
		entries, err := app.CalendarSvc.Feed(ctx, admin, january)
		require.NoError(t, err)
		assert.Len(t, entriesOfKind(entries, calendar.EntryModule), 3)
		assert.Len(t, entriesOfKind(entries, calendar.KindEvent), 1)

		deadlines := entriesOfKind(entries, calendar.EntryDeadline)
		if assert.Len(t, deadlines, 2) {
			// GO101 is taught to both batches
			assert.Empty(t, deadlines[0].BatchID)
			assert.Equal(t, b1.ID, deadlines[1].BatchID)
		}

		entries, err = app.CalendarSvc.Feed(ctx, admin, calendar.FeedFilter{From: january.From, To: january.To, BatchID: b2.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 4)
	})

	t.Run("outsider", func(t *testing.T) {
		entries, err := app.CalendarSvc.Feed(ctx, trainer, january)
		require.NoError(t, err)
		if assert.Len(t, entries, 1) {
			assert.Equal(t, holiday.ID, entries[0].RefID)
		}
	})
}
