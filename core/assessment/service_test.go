package assessment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	emailsvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/email"
	"github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	return vErr.Fields
}

func score(f float64) *float64 { return &f }

func TestService(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()

	trainer := app.Trainer(t, "trainer")
	hero := app.Trainee(t, "hero")
	alice := app.Trainee(t, "alice")
	c := app.Course(t, trainer, "GO101", true)
	other := app.Course(t, trainer, "SQL101", true)
	m := app.Module(t, c.ID, "Basics")
	foreign := app.Module(t, other.ID, "Joins")

	due := time.Date(2030, time.March, 1, 17, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))
	quiz, err := app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{ModuleID: m.ID, Title: "Quiz 1", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 40, DueAt: &due})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, quiz.DueAt.Location())
	assert.True(t, due.Equal(*quiz.DueAt))
	assert.Equal(t, trainer.ID, quiz.CreatedBy)
	exam, err := app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{Title: "Final", Kind: assessment.KindExam, MaxScore: 100, Weight: 60})
	require.NoError(t, err)

	t.Run("create", func(t *testing.T) {
		_, err := app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{ModuleID: foreign.ID, Title: "Lost", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 1})
		assert.Equal(t, []core.FieldError{{Field: "module_id", Error: "module does not belong to this course"}}, fieldErrors(t, err))

		_, err = app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{ModuleID: "nope", Title: "Lost", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 1})
		assert.Equal(t, []core.FieldError{{Field: "module_id", Error: "module not found"}}, fieldErrors(t, err))

		_, err = app.AssessmentSvc.Create(ctx, trainer, c, assessment.NewAssessment{Title: "Extra", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 0.5})
		assert.Equal(t, []core.FieldError{{Field: "weight", Error: "the weights of a course's assessments cannot add up to more than 100"}}, fieldErrors(t, err))

		// weights are capped per course
		_, err = app.AssessmentSvc.Create(ctx, trainer, other, assessment.NewAssessment{Title: "Extra", Kind: assessment.KindQuiz, MaxScore: 10, Weight: 100})
		require.NoError(t, err)
	})

	t.Run("concurrent creates", func(t *testing.T) {
		crowded := app.Course(t, trainer, "CON101", true)

		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = app.AssessmentSvc.Create(ctx, trainer, crowded, assessment.NewAssessment{Title: "Lab", Kind: assessment.KindProject, MaxScore: 10, Weight: 30})
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
			}
		}
		assert.Equal(t, 3, created)
		assessments, err := app.AssessmentSvc.Query(ctx, &assessment.QueryFilter{CourseIDs: []string{crowded.ID}}, nil)
		require.NoError(t, err)
		assert.Len(t, assessments, 3)
	})

	t.Run("query", func(t *testing.T) {
		assessments, err := app.AssessmentSvc.Query(ctx, &assessment.QueryFilter{CourseIDs: []string{c.ID}}, nil)
		require.NoError(t, err)
		if assert.Len(t, assessments, 2) {
			assert.Equal(t, quiz.ID, assessments[0].ID)
			assert.Equal(t, exam.ID, assessments[1].ID)
		}

		assessments, err = app.AssessmentSvc.Query(ctx, &assessment.QueryFilter{CourseIDs: []string{c.ID}, Kind: " EXAM "}, nil)
		require.NoError(t, err)
		if assert.Len(t, assessments, 1) {
			assert.Equal(t, exam.ID, assessments[0].ID)
		}
	})

	t.Run("update", func(t *testing.T) {
		w := 50.0
		_, err := app.AssessmentSvc.Update(ctx, quiz, assessment.UpdateAssessment{Weight: &w})
		assert.Equal(t, []core.FieldError{{Field: "weight", Error: "the weights of a course's assessments cannot add up to more than 100"}}, fieldErrors(t, err))

		w = 40
		courseWide := ""
		updated, err := app.AssessmentSvc.Update(ctx, quiz, assessment.UpdateAssessment{Weight: &w, ModuleID: &courseWide, Title: "Quiz One"})
		require.NoError(t, err)
		assert.Empty(t, updated.ModuleID)
		assert.Equal(t, "Quiz One", updated.Title)
		assert.Equal(t, quiz.DueAt, updated.DueAt)

		updated, err = app.AssessmentSvc.Update(ctx, updated, assessment.UpdateAssessment{ClearDueAt: true, DueAt: &due})
		require.NoError(t, err)
		assert.Nil(t, updated.DueAt)

		quiz, err = app.AssessmentSvc.Update(ctx, updated, assessment.UpdateAssessment{DueAt: &due, Title: "Quiz 1"})
		require.NoError(t, err)
	})

	t.Run("record grades", func(t *testing.T) {
		emailsvc.ResetSentMessages()

		_, err := app.AssessmentSvc.RecordGrades(ctx, trainer, quiz, []assessment.GradeInput{{TraineeID: trainer.ID, Score: score(5)}})
		assert.Equal(t, []core.FieldError{{Field: "grades[0].trainee_id", Error: "user is not an active trainee"}}, fieldErrors(t, err))

		_, err = app.AssessmentSvc.RecordGrades(ctx, trainer, quiz, []assessment.GradeInput{{TraineeID: hero.ID, Score: score(5)}, {TraineeID: alice.ID, Score: score(11)}})
		assert.Equal(t, []core.FieldError{{Field: "grades[1].score", Error: "score must be between 0 and the maximum score"}}, fieldErrors(t, err))

		grades, err := app.AssessmentSvc.ListGrades(ctx, quiz)
		require.NoError(t, err)
		assert.Empty(t, grades, "no grade is recorded when one input is invalid")
		assert.Empty(t, emailsvc.GetSentMessages())

		grades, err = app.AssessmentSvc.RecordGrades(ctx, trainer, quiz, []assessment.GradeInput{{TraineeID: hero.ID, Score: score(7), Feedback: "Good"}})
		require.NoError(t, err)
		require.Len(t, grades, 1)
		first := grades[0]
		assert.Equal(t, trainer.ID, first.GradedBy)

		// regrading overwrites
		grades, err = app.AssessmentSvc.RecordGrades(ctx, trainer, quiz, []assessment.GradeInput{{TraineeID: hero.ID, Score: score(8)}})
		require.NoError(t, err)
		assert.Equal(t, first.ID, grades[0].ID)

		grades, err = app.AssessmentSvc.ListGrades(ctx, quiz)
		require.NoError(t, err)
		if assert.Len(t, grades, 1) {
			assert.Equal(t, float64(8), grades[0].Score)
			assert.Empty(t, grades[0].Feedback)
		}

		msgs := emailsvc.GetSentMessages()
		if assert.Len(t, msgs, 2) {
			assert.Equal(t, "Grade published: Quiz 1", msgs[1].Subject)
			assert.Equal(t, hero.Email, msgs[1].To[0].Address)
			data := msgs[1].TemplateData.(map[string]interface{})
			assert.Equal(t, "8", data["score"])
			assert.Equal(t, "10", data["max_score"])
			assert.Equal(t, c.Title, data["course"])
		}

		maxScore := 5.0
		_, err = app.AssessmentSvc.Update(ctx, quiz, assessment.UpdateAssessment{MaxScore: &maxScore})
		assert.Equal(t, []core.FieldError{{Field: "max_score", Error: "maximum score is below an existing grade"}}, fieldErrors(t, err))
	})

	t.Run("summary", func(t *testing.T) {
		sum, err := app.AssessmentSvc.Summary(ctx, hero.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, float64(40), sum.GradedWeight)
		assert.Equal(t, float64(100), sum.TotalWeight)
		assert.Equal(t, float64(80), sum.CurrentPercent)
		assert.Equal(t, float64(32), sum.FinalPercent)
		assert.False(t, sum.Passed)
		if assert.Len(t, sum.Items, 2) {
			assert.Equal(t, float64(32), sum.Items[0].Contribution)
			assert.Nil(t, sum.Items[1].Score)
		}

		_, err = app.AssessmentSvc.RecordGrades(ctx, trainer, exam, []assessment.GradeInput{{TraineeID: hero.ID, Score: score(90)}})
		require.NoError(t, err)
		sum, err = app.AssessmentSvc.Summary(ctx, hero.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, float64(86), sum.FinalPercent)
		assert.Equal(t, sum.FinalPercent, sum.CurrentPercent)
		assert.True(t, sum.Passed)

		sum, err = app.AssessmentSvc.Summary(ctx, alice.ID, c.ID)
		require.NoError(t, err)
		assert.Zero(t, sum.GradedWeight)
		assert.Zero(t, sum.FinalPercent)
		assert.False(t, sum.Passed)
	})

	t.Run("gradebook", func(t *testing.T) {
		start := core.NewDate(2030, time.January, 1)
		b := app.Batch(t, "B1", start, start.AddDays(99))
		app.AddMembers(t, b, batch.MemberTrainee, hero, alice)

		book, err := app.AssessmentSvc.Gradebook(ctx, b, c.ID)
		require.NoError(t, err)
		assert.Len(t, book.Assessments, 2)
		if assert.Len(t, book.Rows, 2) {
			assert.Equal(t, alice.ID, book.Rows[0].Trainee.ID)
			assert.Zero(t, book.Rows[0].Summary.FinalPercent)
			assert.Equal(t, hero.ID, book.Rows[1].Trainee.ID)
			assert.Equal(t, float64(86), book.Rows[1].Summary.FinalPercent)
		}

		// alice has no grades yet but follows SQL101
		quarters, err := app.BatchSvc.GenerateQuarters(ctx, b, 1)
		require.NoError(t, err)
		_, err = app.BatchSvc.CreateSchedule(ctx, b, batch.NewSchedule{QuarterID: quarters[0].ID, ModuleID: foreign.ID})
		require.NoError(t, err)

		sums, err := app.AssessmentSvc.TraineeSummaries(ctx, alice.ID)
		require.NoError(t, err)
		if assert.Len(t, sums, 1) {
			assert.Equal(t, other.ID, sums[0].CourseID)
		}
		sums, err = app.AssessmentSvc.TraineeSummaries(ctx, hero.ID)
		require.NoError(t, err)
		assert.Len(t, sums, 2)

		sums, err = app.AssessmentSvc.TraineeSummaries(ctx, trainer.ID)
		require.NoError(t, err)
		assert.Empty(t, sums)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, app.AssessmentSvc.Delete(ctx, exam.ID))
		_, err := app.AssessmentSvc.GetByID(ctx, exam.ID)
		assert.Equal(t, assessment.ErrNotFound, errors.Cause(err))
		assert.Equal(t, assessment.ErrNotFound, errors.Cause(app.AssessmentSvc.Delete(ctx, exam.ID)))
	})
}
