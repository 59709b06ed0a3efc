package dashboard_test

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
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/dashboard"
	"github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func TestService_Get(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	roleless := testutil.CreateUser(t, app.UserRepo, "Nobody", "nobody", "nobody@lms.test", "", nil, true)
	_, err := app.DashboardSvc.Get(ctx, roleless)
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	admin := app.Admin(t, "admin")
	trainer := app.Trainer(t, "trainer")

	t.Run("empty", func(t *testing.T) {
		dash, err := app.DashboardSvc.Get(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, dashboard.UserStats{Total: 3, Active: 3, Admins: 1, Trainers: 1}, dash.Admin.Users)
		assert.Equal(t, dashboard.BatchStats{}, dash.Admin.Batches)
		assert.Zero(t, dash.Admin.Onboarding.Trainees)

		dash, err = app.DashboardSvc.Get(ctx, trainer)
		require.NoError(t, err)
		assert.Equal(t, dashboard.ViewTrainer, dash.View)
		assert.Empty(t, dash.Trainer.Batches)
		assert.NotNil(t, dash.Trainer.Today)
		assert.NotNil(t, dash.Trainer.MissingGrades)
	})

	t.Run("deadline horizon", func(t *testing.T) {
		trainee := app.Trainee(t, "hero")
		today := core.DateOf(time.Now().UTC())
		b := app.Batch(t, "B1", today.AddDays(-1), today.AddDays(60))
		app.AddMembers(t, b, batch.MemberTrainer, trainer)
		app.AddMembers(t, b, batch.MemberTrainee, trainee)

		c := app.Course(t, trainer, "GO101", true)
		m := app.Module(t, c.ID, "Basics")
		quarters, err := app.BatchSvc.GenerateQuarters(ctx, b, 1)
		require.NoError(t, err)
		// the module is taught by someone else
		_, err = app.BatchSvc.CreateSchedule(ctx, b, batch.NewSchedule{QuarterID: quarters[0].ID, ModuleID: m.ID})
		require.NoError(t, err)

		soon := time.Now().UTC().Add(24 * time.Hour)
		far := time.Now().UTC().AddDate(0, 0, dashboard.UpcomingDays+2)
		quiz, err := app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{Title: "Soon", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 10, DueAt: &soon})
		require.NoError(t, err)
		_, err = app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{Title: "Far", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 10, DueAt: &far})
		require.NoError(t, err)

		dash, err := app.DashboardSvc.Get(ctx, trainee)
		require.NoError(t, err)
		if assert.Len(t, dash.Trainee.Deadlines, 1) {
			assert.Equal(t, quiz.ID, dash.Trainee.Deadlines[0].ID)
		}

		dash, err = app.DashboardSvc.Get(ctx, trainer)
		require.NoError(t, err)
		assert.Len(t, dash.Trainer.Batches, 1)
		assert.Empty(t, dash.Trainer.Today, "only the modules the trainer teaches are listed")
		assert.Empty(t, dash.Trainer.Deadlines)
	})
}
