package assessment

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("assessment not found")

	errWeightExceeded = fmt.Errorf("the weights of a course's assessments cannot add up to more than %g", MaxCourseWeight)
	errModuleCourse   = errors.New("module does not belong to this course")
	errScoreRange     = errors.New("score must be between 0 and the maximum score")
	errNotTrainee     = errors.New("user is not an active trainee")
	errMaxScoreGraded = errors.New("maximum score is below an existing grade")
)

type (
	Repository interface {
		CreateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
		// QueryAssessments lists assessments ordered by due date (undated last) when no ordering is given.
		QueryAssessments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Assessment, error)
		GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (Assessment, error)
		UpdateAssessment(ctx context.Context, a Assessment, exec ...core.DBExecutor) (Assessment, error)
		DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error
		// LockCourse locks the course row until the transaction exec belongs to ends.
		LockCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) error
		// CourseWeight sums the weights of a course's assessments, excluding excludedID.
		CourseWeight(ctx context.Context, courseID, excludedID string, exec ...core.DBExecutor) (float64, error)

		// UpsertGrade creates the grade of a trainee for an assessment or overwrites the existing one.
		UpsertGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		QueryGrades(ctx context.Context, filter GradeFilter, exec ...core.DBExecutor) ([]Grade, error)
	}

	Service interface {
		Create(ctx context.Context, author user.User, c course.Course, na NewAssessment) (Assessment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assessment, error)
		GetByID(ctx context.Context, id string) (Assessment, error)
		Update(ctx context.Context, a Assessment, ua UpdateAssessment) (Assessment, error)
		Delete(ctx context.Context, id string) error

		// RecordGrades upserts grades in a single transaction and notifies the graded trainees.
		RecordGrades(ctx context.Context, grader user.User, a Assessment, inputs []GradeInput) ([]Grade, error)
		ListGrades(ctx context.Context, a Assessment) ([]Grade, error)
		Summary(ctx context.Context, traineeID, courseID string) (GradeSummary, error)
		// TraineeSummaries summarizes every course the trainee has grades in or is scheduled to follow.
		TraineeSummaries(ctx context.Context, traineeID string) ([]GradeSummary, error)
		Gradebook(ctx context.Context, b batch.Batch, courseID string) (Gradebook, error)
	}

	service struct {
		repo      Repository
		txRunner  core.TxRunner
		userSvc   user.Service
		courseSvc course.Service
		batchSvc  batch.Service
		mailSvc   core.EmailService
		conf      *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	txRunner core.TxRunner,
	userSvc user.Service,
	courseSvc course.Service,
	batchSvc batch.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) Service {
	return &service{
		repo:      repo,
		txRunner:  txRunner,
		userSvc:   userSvc,
		courseSvc: courseSvc,
		batchSvc:  batchSvc,
		mailSvc:   mailSvc,
		conf:      conf,
	}
}

// checkWeight must run in the transaction that writes the weight, after LockCourse.
func (svc *service) checkWeight(ctx context.Context, tx core.DBExecutor, courseID, excludedID string, weight float64) error {
	total, err := svc.repo.CourseWeight(ctx, courseID, excludedID, tx)
	if err != nil {
		return errors.Wrap(err, "summing course weights")
	}
	if core.Round2(total+weight) > MaxCourseWeight {
		return core.NewValidationError(errWeightExceeded, core.FieldError{Field: "weight", Error: errWeightExceeded.Error()})
	}
	return nil
}

func (svc *service) checkModule(ctx context.Context, courseID, moduleID string) error {
	if moduleID == "" {
		return nil
	}
	m, err := svc.courseSvc.GetModule(ctx, moduleID)
	if err != nil {
		if errors.Cause(err) == course.ErrModuleNotFound {
			return core.NewFieldError("module_id", course.ErrModuleNotFound.Error())
		}
		return errors.Wrap(err, "finding module")
	}
	if m.CourseID != courseID {
		return core.NewFieldError("module_id", errModuleCourse.Error())
	}
	return nil
}

func (svc *service) Create(ctx context.Context, author user.User, c course.Course, na NewAssessment) (Assessment, error) {
	if err := svc.checkModule(ctx, c.ID, na.ModuleID); err != nil {
		return Assessment{}, err
	}

	now := time.Now().UTC()
	a := Assessment{
		CourseID:    c.ID,
		ModuleID:    na.ModuleID,
		Title:       na.Title,
		Description: na.Description,
		Kind:        na.Kind,
		MaxScore:    na.MaxScore,
		Weight:      na.Weight,
		DueAt:       utcPtr(na.DueAt),
		CreatedBy:   author.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := svc.txRunner.RunInTx(ctx, func(tx core.DBExecutor) error {
		if err := svc.repo.LockCourse(ctx, c.ID, tx); err != nil {
			return errors.Wrap(err, "locking course")
		}
		if err := svc.checkWeight(ctx, tx, c.ID, "", a.Weight); err != nil {
			return err
		}
		var err error
		a, err = svc.repo.CreateAssessment(ctx, a, tx)
		return errors.Wrap(err, "creating assessment")
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assessment, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryAssessments(ctx, filter, core.FilterOrdering(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, id string) (Assessment, error) {
	return svc.repo.GetAssessment(ctx, id)
}

func (svc *service) Update(ctx context.Context, a Assessment, ua UpdateAssessment) (Assessment, error) {
	if ua.ModuleID != nil {
		if err := svc.checkModule(ctx, a.CourseID, *ua.ModuleID); err != nil {
			return Assessment{}, err
		}
		a.ModuleID = *ua.ModuleID
	}
	weightChanged := ua.Weight != nil && *ua.Weight != a.Weight
	if ua.Weight != nil {
		a.Weight = *ua.Weight
	}
	if ua.MaxScore != nil && *ua.MaxScore != a.MaxScore {
		grades, err := svc.repo.QueryGrades(ctx, GradeFilter{AssessmentIDs: []string{a.ID}})
		if err != nil {
			return Assessment{}, errors.Wrap(err, "listing grades")
		}
		for _, g := range grades {
			if g.Score > *ua.MaxScore {
				return Assessment{}, core.NewFieldError("max_score", errMaxScoreGraded.Error())
			}
		}
		a.MaxScore = *ua.MaxScore
	}
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Description != nil {
		a.Description = core.CleanString(*ua.Description)
	}
	if ua.Kind != "" {
		a.Kind = ua.Kind
	}
	if ua.ClearDueAt {
		a.DueAt = nil
	} else if ua.DueAt != nil {
		a.DueAt = utcPtr(ua.DueAt)
	}

	a.UpdatedAt = time.Now().UTC()
	err := svc.txRunner.RunInTx(ctx, func(tx core.DBExecutor) error {
		if weightChanged {
			if err := svc.repo.LockCourse(ctx, a.CourseID, tx); err != nil {
				return errors.Wrap(err, "locking course")
			}
			if err := svc.checkWeight(ctx, tx, a.CourseID, a.ID, a.Weight); err != nil {
				return err
			}
		}
		var err error
		a, err = svc.repo.UpdateAssessment(ctx, a, tx)
		return errors.Wrap(err, "updating assessment")
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAssessment(ctx, id)
}

// Grades

func (svc *service) RecordGrades(ctx context.Context, grader user.User, a Assessment, inputs []GradeInput) ([]Grade, error) {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.TraineeID)
	}
	trainees, err := svc.userSvc.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding trainees")
	}
	byID := make(map[string]user.User, len(trainees))
	for _, u := range trainees {
		byID[u.ID] = u
	}

	now := time.Now().UTC()
	grades := make([]Grade, 0, len(inputs))
	for i, in := range inputs {
		trainee, ok := byID[in.TraineeID]
		if !ok || !trainee.Active() || !trainee.IsTrainee() {
			return nil, core.NewFieldError(fmt.Sprintf("grades[%d].trainee_id", i), errNotTrainee.Error())
		}
		if in.Score == nil || *in.Score < 0 || *in.Score > a.MaxScore {
			return nil, core.NewFieldError(fmt.Sprintf("grades[%d].score", i), errScoreRange.Error())
		}
		grades = append(grades, Grade{
			AssessmentID: a.ID,
			TraineeID:    in.TraineeID,
			Score:        *in.Score,
			Feedback:     in.Feedback,
			GradedBy:     grader.ID,
			GradedAt:     now,
		})
	}

	err = svc.txRunner.RunInTx(ctx, func(tx core.DBExecutor) error {
		for i, g := range grades {
			saved, err := svc.repo.UpsertGrade(ctx, g, tx)
			if err != nil {
				return err
			}
			grades[i] = saved
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "recording grades")
	}

	c, err := svc.courseSvc.GetByID(ctx, a.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "finding assessment course")
	}
	svc.sendGradePublishedMails(a, c, grades, byID)
	return grades, nil
}

func (svc *service) sendGradePublishedMails(a Assessment, c course.Course, grades []Grade, trainees map[string]user.User) {
	msgs := make([]*core.EmailMessage, 0, len(grades))
	for _, g := range grades {
		usr := trainees[g.TraineeID]
		if usr.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Grade published: " + a.Title,
			TemplateName: "grade_published",
			TemplateData: map[string]interface{}{
				"name":       usr.DisplayName(),
				"assessment": a.Title,
				"course":     c.Title,
				"score":      strconv.FormatFloat(g.Score, 'f', -1, 64),
				"max_score":  strconv.FormatFloat(a.MaxScore, 'f', -1, 64),
				"feedback":   g.Feedback,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) ListGrades(ctx context.Context, a Assessment) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, GradeFilter{AssessmentIDs: []string{a.ID}})
}

func (svc *service) Summary(ctx context.Context, traineeID, courseID string) (GradeSummary, error) {
	sums, err := svc.summaries(ctx, []string{traineeID}, courseID)
	if err != nil {
		return GradeSummary{}, err
	}
	return sums[traineeID], nil
}

// summaries computes the course grade summaries of several trainees.
func (svc *service) summaries(ctx context.Context, traineeIDs []string, courseID string) (map[string]GradeSummary, error) {
	assessments, err := svc.repo.QueryAssessments(ctx, &QueryFilter{CourseIDs: []string{courseID}}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing course assessments")
	}
	grades, err := svc.repo.QueryGrades(ctx, GradeFilter{TraineeIDs: traineeIDs, CourseIDs: []string{courseID}})
	if err != nil {
		return nil, errors.Wrap(err, "listing grades")
	}

	byTrainee := make(map[string]map[string]Grade, len(traineeIDs))
	for _, g := range grades {
		if byTrainee[g.TraineeID] == nil {
			byTrainee[g.TraineeID] = make(map[string]Grade)
		}
		byTrainee[g.TraineeID][g.AssessmentID] = g
	}

	sums := make(map[string]GradeSummary, len(traineeIDs))
	for _, id := range traineeIDs {
		sums[id] = Summarize(id, courseID, assessments, byTrainee[id], svc.conf.PassingGrade)
	}
	return sums, nil
}

func (svc *service) TraineeSummaries(ctx context.Context, traineeID string) ([]GradeSummary, error) {
	grades, err := svc.repo.QueryGrades(ctx, GradeFilter{TraineeIDs: []string{traineeID}})
	if err != nil {
		return nil, errors.Wrap(err, "listing trainee grades")
	}
	gradesByAssessment := make(map[string]Grade, len(grades))
	for _, g := range grades {
		gradesByAssessment[g.AssessmentID] = g
	}

	courseIDs := make([]string, 0)
	if len(grades) > 0 {
		ids := make([]string, 0, len(grades))
		for _, g := range grades {
			ids = append(ids, g.AssessmentID)
		}
		graded, err := svc.repo.QueryAssessments(ctx, &QueryFilter{IDs: ids}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "listing graded assessments")
		}
		for _, a := range graded {
			courseIDs = append(courseIDs, a.CourseID)
		}
	}

	batches, err := svc.batchSvc.UserBatches(ctx, traineeID, batch.MemberTrainee)
	if err != nil {
		return nil, errors.Wrap(err, "listing trainee batches")
	}
	if len(batches) > 0 {
		batchIDs := make([]string, 0, len(batches))
		for _, b := range batches {
			batchIDs = append(batchIDs, b.ID)
		}
		schedules, err := svc.batchSvc.ListSchedules(ctx, batch.ScheduleFilter{BatchIDs: batchIDs})
		if err != nil {
			return nil, errors.Wrap(err, "listing trainee curriculum")
		}
		for _, s := range schedules {
			courseIDs = append(courseIDs, s.CourseID)
		}
	}

	courseIDs = core.UniqueStrings(courseIDs)
	if len(courseIDs) == 0 {
		return []GradeSummary{}, nil
	}
	assessments, err := svc.repo.QueryAssessments(ctx, &QueryFilter{CourseIDs: courseIDs}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing course assessments")
	}
	byCourse := make(map[string][]Assessment, len(courseIDs))
	for _, a := range assessments {
		byCourse[a.CourseID] = append(byCourse[a.CourseID], a)
	}

	sort.Strings(courseIDs)
	sums := make([]GradeSummary, 0, len(courseIDs))
	for _, id := range courseIDs {
		sums = append(sums, Summarize(traineeID, id, byCourse[id], gradesByAssessment, svc.conf.PassingGrade))
	}
	return sums, nil
}

func (svc *service) Gradebook(ctx context.Context, b batch.Batch, courseID string) (Gradebook, error) {
	trainees, err := svc.batchSvc.ListMembers(ctx, b, batch.MemberTrainee)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "listing batch trainees")
	}
	ids := make([]string, 0, len(trainees))
	for _, m := range trainees {
		ids = append(ids, m.UserID)
	}

	assessments, err := svc.repo.QueryAssessments(ctx, &QueryFilter{CourseIDs: []string{courseID}}, nil)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "listing course assessments")
	}
	sums, err := svc.summaries(ctx, ids, courseID)
	if err != nil {
		return Gradebook{}, err
	}

	book := Gradebook{
		BatchID:     b.ID,
		CourseID:    courseID,
		Assessments: assessments,
		Rows:        make([]GradebookRow, 0, len(trainees)),
	}
	for _, m := range trainees {
		row := GradebookRow{Summary: sums[m.UserID]}
		if m.User != nil {
			row.Trainee = *m.User
		}
		book.Rows = append(book.Rows, row)
	}
	sort.SliceStable(book.Rows, func(i, j int) bool {
		return book.Rows[i].Trainee.DisplayName() < book.Rows[j].Trainee.DisplayName()
	})
	return book, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
