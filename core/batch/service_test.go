package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
	"github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	return vErr.Fields
}

func TestService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	start := core.NewDate(2030, time.January, 1)

	b := app.Batch(t, "B1", start, start.AddDays(99))
	assert.Equal(t, "Batch B1", b.Name)

	_, err := app.BatchSvc.Create(ctx, batch.NewBatch{Code: "B1", Name: "Again", StartDate: start, EndDate: start})
	assert.Equal(t, []core.FieldError{{Field: "code", Error: batch.ErrCodeExists.Error()}}, fieldErrors(t, err))

	_, err = app.BatchSvc.Create(ctx, batch.NewBatch{Code: "B2", Name: "Backwards", StartDate: start, EndDate: start.AddDays(-1)})
	assert.Equal(t, []core.FieldError{{Field: "end_date", Error: "end date must not be before start date"}}, fieldErrors(t, err))

	t.Run("update", func(t *testing.T) {
		other := app.Batch(t, "B3", start, start.AddDays(9))
		_, err := app.BatchSvc.Update(ctx, other, batch.UpdateBatch{Code: "B1"})
		assert.Equal(t, []core.FieldError{{Field: "code", Error: batch.ErrCodeExists.Error()}}, fieldErrors(t, err))

		_, err = app.BatchSvc.GenerateQuarters(ctx, other, 2)
		require.NoError(t, err)
		_, err = app.BatchSvc.Update(ctx, other, batch.UpdateBatch{EndDate: start.AddDays(5)})
		assert.Equal(t, []core.FieldError{{Field: "end_date", Error: "batch dates must contain all of its quarters"}}, fieldErrors(t, err))

		updated, err := app.BatchSvc.Update(ctx, other, batch.UpdateBatch{Name: "Renamed", EndDate: start.AddDays(20)})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "B3", updated.Code)
		assert.Equal(t, start.AddDays(20), updated.EndDate)
	})
}

func TestService_Members(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	today := core.DateOf(time.Now().UTC())

	trainer := app.Trainer(t, "trainer")
	trainee := app.Trainee(t, "hero")
	inactive := testutil.CreateUser(t, app.UserRepo, "Gone", "gone", "gone@lms.test", "", []string{user.RoleTrainee}, false)

	ongoing := app.Batch(t, "ONGOING", today.AddDays(-10), today.AddDays(50))
	overlapping := app.Batch(t, "OVERLAP", today.AddDays(40), today.AddDays(120))
	later := app.Batch(t, "LATER", today.AddDays(200), today.AddDays(300))
	finished := app.Batch(t, "OLD", today.AddDays(-300), today.AddDays(-200))

	members, err := app.BatchSvc.AddMembers(ctx, ongoing, batch.NewMembers{UserIDs: []string{trainer.ID}, Role: batch.MemberTrainer})
	require.NoError(t, err)
	if assert.Len(t, members, 1) {
		assert.Equal(t, trainer.ID, members[0].UserID)
		if assert.NotNil(t, members[0].User) {
			assert.Equal(t, trainer.Username, members[0].User.Username)
		}
	}

	tests := []struct {
		name    string
		b       batch.Batch
		userID  string
		role    string
		wantMsg string
	}{
		{"unknown user", ongoing, "nope", batch.MemberTrainee, "user nope: " + user.ErrNotFound.Error()},
		{"inactive user", ongoing, inactive.ID, batch.MemberTrainee, "user " + inactive.ID + ": account is deactivated"},
		{"role mismatch", ongoing, trainer.ID, batch.MemberTrainee, "user " + trainer.ID + ": does not have the role of this membership"},
		{"not a trainer", ongoing, trainee.ID, batch.MemberTrainer, "user " + trainee.ID + ": does not have the role of this membership"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.BatchSvc.AddMembers(ctx, tc.b, batch.NewMembers{UserIDs: []string{tc.userID}, Role: tc.role})
			assert.Equal(t, []core.FieldError{{Field: "user_ids", Error: tc.wantMsg}}, fieldErrors(t, err))
		})
	}

	t.Run("single ongoing batch", func(t *testing.T) {
		app.AddMembers(t, ongoing, batch.MemberTrainee, trainee)

		_, err := app.BatchSvc.AddMembers(ctx, overlapping, batch.NewMembers{UserIDs: []string{trainee.ID}, Role: batch.MemberTrainee})
		wantMsg := "user " + trainee.ID + ": is already a trainee of an ongoing batch"
		assert.Equal(t, []core.FieldError{{Field: "user_ids", Error: wantMsg}}, fieldErrors(t, err))

		// re-adding to the same batch is not a conflict
		app.AddMembers(t, ongoing, batch.MemberTrainee, trainee)
		app.AddMembers(t, later, batch.MemberTrainee, trainee)
		app.AddMembers(t, finished, batch.MemberTrainee, trainee)

		batches, err := app.BatchSvc.UserBatches(ctx, trainee.ID, batch.MemberTrainee)
		require.NoError(t, err)
		if assert.Len(t, batches, 3) {
			assert.Equal(t, finished.ID, batches[0].ID)
			assert.Equal(t, ongoing.ID, batches[1].ID)
			assert.Equal(t, later.ID, batches[2].ID)
		}

		current, err := app.BatchSvc.CurrentBatch(ctx, trainee.ID)
		require.NoError(t, err)
		assert.Equal(t, ongoing.ID, current.ID)

		_, err = app.BatchSvc.CurrentBatch(ctx, trainer.ID)
		assert.Equal(t, batch.ErrNotFound, errors.Cause(err))
	})

	t.Run("moving dates keeps a single ongoing batch", func(t *testing.T) {
		_, err := app.BatchSvc.Update(ctx, later, batch.UpdateBatch{StartDate: today.AddDays(30)})
		wantMsg := "trainee " + trainee.ID + " is already in an ongoing batch over these dates"
		assert.Equal(t, []core.FieldError{{Field: "start_date", Error: wantMsg}}, fieldErrors(t, err))

		updated, err := app.BatchSvc.Update(ctx, later, batch.UpdateBatch{StartDate: today.AddDays(60)})
		require.NoError(t, err)
		assert.True(t, today.AddDays(60).Equal(updated.StartDate))

		// only the trainees of the moved batch matter
		_, err = app.BatchSvc.Update(ctx, overlapping, batch.UpdateBatch{StartDate: today.AddDays(-5)})
		require.NoError(t, err)
	})

	t.Run("is member", func(t *testing.T) {
		ok, err := app.BatchSvc.IsMember(ctx, ongoing.ID, trainee.ID, "")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = app.BatchSvc.IsMember(ctx, ongoing.ID, trainee.ID, batch.MemberTrainer)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = app.BatchSvc.IsMember(ctx, overlapping.ID, trainee.ID, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("remove members", func(t *testing.T) {
		c := app.Course(t, trainer, "GO101", true)
		m := app.Module(t, c.ID, "Basics")
		quarters, err := app.BatchSvc.GenerateQuarters(ctx, ongoing, 1)
		require.NoError(t, err)
		s, err := app.BatchSvc.CreateSchedule(ctx, ongoing, batch.NewSchedule{QuarterID: quarters[0].ID, ModuleID: m.ID, TrainerID: trainer.ID})
		require.NoError(t, err)
		assert.Equal(t, trainer.ID, s.TrainerID)

		require.NoError(t, app.BatchSvc.RemoveMembers(ctx, ongoing, []string{trainer.ID}))
		members, err := app.BatchSvc.ListMembers(ctx, ongoing, "")
		require.NoError(t, err)
		if assert.Len(t, members, 1) {
			assert.Equal(t, trainee.ID, members[0].UserID)
		}

		// the curriculum entry loses its trainer
		s, err = app.BatchSvc.GetSchedule(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, s.TrainerID)
	})
}

func TestService_Quarters(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	start := core.NewDate(2030, time.January, 1)
	b := app.Batch(t, "B1", start, start.AddDays(99))

	_, err := app.BatchSvc.CreateQuarter(ctx, b, batch.NewQuarter{Number: 1, StartDate: start.AddDays(-1), EndDate: start.AddDays(10)})
	assert.Equal(t, []core.FieldError{{Field: "start_date", Error: "dates must lie within the batch dates"}}, fieldErrors(t, err))

	quarters, err := app.BatchSvc.GenerateQuarters(ctx, b, 9)
	require.NoError(t, err)
	require.Len(t, quarters, batch.MaxQuarters)
	for i, q := range quarters {
		assert.Equal(t, i+1, q.Number)
		assert.Equal(t, start.AddDays(i*25), q.StartDate)
	}
	assert.Equal(t, b.EndDate, quarters[3].EndDate)

	_, err = app.BatchSvc.GenerateQuarters(ctx, b, 2)
	assert.Equal(t, []core.FieldError{{Field: "count", Error: "this batch already has quarters"}}, fieldErrors(t, err))

	_, err = app.BatchSvc.UpdateQuarter(ctx, quarters[0], batch.UpdateQuarter{Number: 2})
	assert.Equal(t, []core.FieldError{{Field: "number", Error: "this batch already has a quarter with this number"}}, fieldErrors(t, err))
	_, err = app.BatchSvc.UpdateQuarter(ctx, quarters[0], batch.UpdateQuarter{EndDate: start.AddDays(30)})
	assert.Equal(t, []core.FieldError{{Field: "start_date", Error: "quarter overlaps another quarter of this batch"}}, fieldErrors(t, err))

	listed, err := app.BatchSvc.ListQuarters(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, quarters, listed)

	t.Run("curriculum", func(t *testing.T) {
		trainer := app.Trainer(t, "trainer")
		outsider := app.Trainer(t, "outsider")
		app.AddMembers(t, b, batch.MemberTrainer, trainer)
		c := app.Course(t, trainer, "GO101", true)
		basics := app.Module(t, c.ID, "Basics")
		advanced := app.Module(t, c.ID, "Advanced")
		q1, q2 := quarters[0], quarters[1]

		s, err := app.BatchSvc.CreateSchedule(ctx, b, batch.NewSchedule{QuarterID: q1.ID, ModuleID: basics.ID})
		require.NoError(t, err)
		assert.Equal(t, c.ID, s.CourseID)
		assert.Equal(t, q1.StartDate, s.StartDate)
		assert.Equal(t, q1.EndDate, s.EndDate)
		assert.Empty(t, s.TrainerID)

		tests := []struct {
			name    string
			ns      batch.NewSchedule
			wantErr core.FieldError
		}{
			{
				name:    "module already scheduled",
				ns:      batch.NewSchedule{QuarterID: q2.ID, ModuleID: basics.ID},
				wantErr: core.FieldError{Field: "module_id", Error: "this module is already scheduled for this batch"},
			},
			{
				name:    "unknown module",
				ns:      batch.NewSchedule{QuarterID: q2.ID, ModuleID: "nope"},
				wantErr: core.FieldError{Field: "module_id", Error: "module not found"},
			},
			{
				name:    "unknown quarter",
				ns:      batch.NewSchedule{QuarterID: "nope", ModuleID: advanced.ID},
				wantErr: core.FieldError{Field: "quarter_id", Error: batch.ErrQuarterNotFound.Error()},
			},
			{
				name:    "outside quarter",
				ns:      batch.NewSchedule{QuarterID: q2.ID, ModuleID: advanced.ID, StartDate: q1.StartDate, EndDate: q2.EndDate},
				wantErr: core.FieldError{Field: "start_date", Error: "dates must lie within the quarter dates"},
			},
			{
				name:    "trainer not a member",
				ns:      batch.NewSchedule{QuarterID: q2.ID, ModuleID: advanced.ID, TrainerID: outsider.ID},
				wantErr: core.FieldError{Field: "trainer_id", Error: "trainer must be a trainer member of the batch"},
			},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := app.BatchSvc.CreateSchedule(ctx, b, tc.ns)
				assert.Equal(t, []core.FieldError{tc.wantErr}, fieldErrors(t, err))
			})
		}

		// moving to another quarter resets the range to the quarter's
		s, err = app.BatchSvc.UpdateSchedule(ctx, s, batch.UpdateSchedule{QuarterID: q2.ID, TrainerID: &trainer.ID})
		require.NoError(t, err)
		assert.Equal(t, q2.ID, s.QuarterID)
		assert.Equal(t, q2.StartDate, s.StartDate)
		assert.Equal(t, q2.EndDate, s.EndDate)
		assert.Equal(t, trainer.ID, s.TrainerID)

		_, err = app.BatchSvc.UpdateQuarter(ctx, q2, batch.UpdateQuarter{EndDate: q2.EndDate.AddDays(-1)})
		assert.Equal(t, []core.FieldError{{Field: "end_date", Error: "quarter dates must contain all of its curriculum entries"}}, fieldErrors(t, err))

		byTrainer, err := app.BatchSvc.ListSchedules(ctx, batch.ScheduleFilter{TrainerID: trainer.ID})
		require.NoError(t, err)
		if assert.Len(t, byTrainer, 1) {
			assert.Equal(t, s.ID, byTrainer[0].ID)
		}

		require.NoError(t, app.BatchSvc.DeleteSchedule(ctx, s.ID))
		_, err = app.BatchSvc.GetSchedule(ctx, s.ID)
		assert.Equal(t, batch.ErrScheduleNotFound, errors.Cause(err))
	})
}
