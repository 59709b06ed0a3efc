package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type (
	// StatsRepository computes aggregate statistics.
	StatsRepository interface {
		UserStats(ctx context.Context, exec ...core.DBExecutor) (UserStats, error)
		BatchStats(ctx context.Context, today core.Date, exec ...core.DBExecutor) (BatchStats, error)
		CourseStats(ctx context.Context, exec ...core.DBExecutor) (CourseStats, error)
	}

	Service interface {
		// Get returns the dashboard of the highest role of usr.
		Get(ctx context.Context, usr user.User) (Dashboard, error)
	}

	service struct {
		stats         StatsRepository
		batchSvc      batch.Service
		courseSvc     course.Service
		assessmentSvc assessment.Service
		onboardingSvc onboarding.Service
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	stats StatsRepository,
	batchSvc batch.Service,
	courseSvc course.Service,
	assessmentSvc assessment.Service,
	onboardingSvc onboarding.Service,
) Service {
	return &service{
		stats:         stats,
		batchSvc:      batchSvc,
		courseSvc:     courseSvc,
		assessmentSvc: assessmentSvc,
		onboardingSvc: onboardingSvc,
	}
}

func (svc *service) Get(ctx context.Context, usr user.User) (Dashboard, error) {
	switch {
	case usr.IsAdmin():
		view, err := svc.admin(ctx)
		return Dashboard{View: ViewAdmin, Admin: view}, err
	case usr.IsTrainer():
		view, err := svc.trainer(ctx, usr)
		return Dashboard{View: ViewTrainer, Trainer: view}, err
	case usr.IsTrainee():
		view, err := svc.trainee(ctx, usr)
		return Dashboard{View: ViewTrainee, Trainee: view}, err
	default:
		return Dashboard{}, core.ErrForbidden
	}
}

func (svc *service) admin(ctx context.Context) (*AdminView, error) {
	view := new(AdminView)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		view.Users, err = svc.stats.UserStats(ctx)
		return errors.Wrap(err, "computing user stats")
	})
	g.Go(func() (err error) {
		view.Batches, err = svc.stats.BatchStats(ctx, core.DateOf(nowFunc()))
		return errors.Wrap(err, "computing batch stats")
	})
	g.Go(func() (err error) {
		view.Courses, err = svc.stats.CourseStats(ctx)
		return errors.Wrap(err, "computing course stats")
	})
	g.Go(func() (err error) {
		view.Onboarding, err = svc.onboardingSvc.Summary(ctx)
		return errors.Wrap(err, "computing onboarding summary")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (svc *service) trainer(ctx context.Context, usr user.User) (*TrainerView, error) {
	batches, err := svc.batchSvc.UserBatches(ctx, usr.ID, batch.MemberTrainer)
	if err != nil {
		return nil, errors.Wrap(err, "listing trained batches")
	}
	view := &TrainerView{Batches: batches}
	if len(batches) == 0 {
		view.Today = []ScheduledModule{}
		view.Deadlines = []assessment.Assessment{}
		view.MissingGrades = []MissingGrades{}
		return view, nil
	}

	batchIDs := make([]string, 0, len(batches))
	for _, b := range batches {
		batchIDs = append(batchIDs, b.ID)
	}
	taught, err := svc.batchSvc.ListSchedules(ctx, batch.ScheduleFilter{BatchIDs: batchIDs, TrainerID: usr.ID})
	if err != nil {
		return nil, errors.Wrap(err, "listing taught curriculum")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Today, err = svc.today(gctx, taught)
		return err
	})
	g.Go(func() (err error) {
		view.Deadlines, err = svc.deadlines(gctx, taught)
		return err
	})
	g.Go(func() (err error) {
		view.MissingGrades, err = svc.missingGrades(gctx, taught)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (svc *service) trainee(ctx context.Context, usr user.User) (*TraineeView, error) {
	view := new(TraineeView)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := svc.batchSvc.CurrentBatch(gctx, usr.ID)
		if err != nil {
			if errors.Cause(err) == batch.ErrNotFound {
				view.Today = []ScheduledModule{}
				view.Deadlines = []assessment.Assessment{}
				return nil
			}
			return errors.Wrap(err, "finding current batch")
		}
		view.CurrentBatch = &b

		schedules, err := svc.batchSvc.ListSchedules(gctx, batch.ScheduleFilter{BatchIDs: []string{b.ID}})
		if err != nil {
			return errors.Wrap(err, "listing batch curriculum")
		}
		if view.Today, err = svc.today(gctx, schedules); err != nil {
			return err
		}
		view.Deadlines, err = svc.deadlines(gctx, schedules)
		return err
	})
	g.Go(func() (err error) {
		view.Grades, err = svc.assessmentSvc.TraineeSummaries(gctx, usr.ID)
		return errors.Wrap(err, "computing grade summaries")
	})
	g.Go(func() (err error) {
		view.Onboarding, err = svc.onboardingSvc.Checklist(gctx, usr)
		return errors.Wrap(err, "building onboarding checklist")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// today keeps the schedules running today, with their module and course titles.
func (svc *service) today(ctx context.Context, schedules []batch.Schedule) ([]ScheduledModule, error) {
	day := core.DateOf(nowFunc())
	var current []batch.Schedule
	var moduleIDs, courseIDs []string
	for _, s := range schedules {
		if day.Within(s.StartDate, s.EndDate) {
			current = append(current, s)
			moduleIDs = append(moduleIDs, s.ModuleID)
			courseIDs = append(courseIDs, s.CourseID)
		}
	}
	modules := make([]ScheduledModule, 0, len(current))
	if len(current) == 0 {
		return modules, nil
	}

	mods, err := svc.courseSvc.GetModulesByIDs(ctx, moduleIDs)
	if err != nil {
		return nil, errors.Wrap(err, "finding scheduled modules")
	}
	courses, err := svc.courseSvc.GetByIDs(ctx, courseIDs)
	if err != nil {
		return nil, errors.Wrap(err, "finding scheduled courses")
	}
	titles := make(map[string]string, len(mods)+len(courses))
	for _, m := range mods {
		titles[m.ID] = m.Title
	}
	for _, c := range courses {
		titles[c.ID] = c.Title
	}
	for _, s := range current {
		modules = append(modules, ScheduledModule{Schedule: s, ModuleTitle: titles[s.ModuleID], CourseTitle: titles[s.CourseID]})
	}
	return modules, nil
}

// deadlines lists the assessments due in the coming days for the courses of schedules.
func (svc *service) deadlines(ctx context.Context, schedules []batch.Schedule) ([]assessment.Assessment, error) {
	courseIDs := scheduledCourses(schedules)
	if len(courseIDs) == 0 {
		return []assessment.Assessment{}, nil
	}
	from := nowFunc()
	to := core.DateOf(from).AddDays(UpcomingDays).EndOfDay()
	due, err := svc.assessmentSvc.Query(ctx, &assessment.QueryFilter{CourseIDs: courseIDs, DueFrom: &from, DueTo: &to}, nil)
	return due, errors.Wrap(err, "listing upcoming deadlines")
}

// missingGrades counts, for every past-due assessment of the courses taught, the trainees not graded yet.
func (svc *service) missingGrades(ctx context.Context, taught []batch.Schedule) ([]MissingGrades, error) {
	missing := make([]MissingGrades, 0)
	courseIDs := scheduledCourses(taught)
	if len(courseIDs) == 0 {
		return missing, nil
	}

	now := nowFunc()
	pastDue, err := svc.assessmentSvc.Query(ctx, &assessment.QueryFilter{CourseIDs: courseIDs, DueTo: &now}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing past-due assessments")
	}
	if len(pastDue) == 0 {
		return missing, nil
	}

	// trainees expected to be graded on each course
	expected := make(map[string]map[string]struct{}, len(courseIDs))
	membersCache := make(map[string][]batch.Member)
	for _, s := range taught {
		members, ok := membersCache[s.BatchID]
		if !ok {
			members, err = svc.batchSvc.ListMembers(ctx, batch.Batch{ID: s.BatchID}, batch.MemberTrainee)
			if err != nil {
				return nil, errors.Wrap(err, "listing batch trainees")
			}
			membersCache[s.BatchID] = members
		}
		if expected[s.CourseID] == nil {
			expected[s.CourseID] = make(map[string]struct{})
		}
		for _, m := range members {
			expected[s.CourseID][m.UserID] = struct{}{}
		}
	}

	for _, a := range pastDue {
		grades, err := svc.assessmentSvc.ListGrades(ctx, a)
		if err != nil {
			return nil, errors.Wrap(err, "listing grades")
		}
		graded := make(map[string]struct{}, len(grades))
		for _, g := range grades {
			graded[g.TraineeID] = struct{}{}
		}
		count := 0
		for id := range expected[a.CourseID] {
			if _, ok := graded[id]; !ok {
				count++
			}
		}
		if count > 0 {
			missing = append(missing, MissingGrades{Assessment: a, Missing: count})
		}
	}
	return missing, nil
}

func scheduledCourses(schedules []batch.Schedule) []string {
	ids := make([]string, 0, len(schedules))
	for _, s := range schedules {
		ids = append(ids, s.CourseID)
	}
	return core.UniqueStrings(ids)
}
