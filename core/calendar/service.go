package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("event not found")

	errEndBeforeStart = errors.New("end must not be before start")
	errWindowTooLong  = fmt.Errorf("the calendar window cannot exceed %d days", MaxWindowDays)
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		// QueryEvents lists events ordered by start.
		QueryEvents(ctx context.Context, filter EventFilter, exec ...core.DBExecutor) ([]Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		UpdateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		Update(ctx context.Context, actor user.User, e Event, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, actor user.User, e Event) error
		// Feed merges the events, curriculum entries and assessment deadlines visible to usr in the window.
		Feed(ctx context.Context, usr user.User, filter FeedFilter) ([]Entry, error)
	}

	service struct {
		repo          Repository
		batchSvc      batch.Service
		courseSvc     course.Service
		assessmentSvc assessment.Service
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, batchSvc batch.Service, courseSvc course.Service, assessmentSvc assessment.Service) Service {
	return &service{
		repo:          repo,
		batchSvc:      batchSvc,
		courseSvc:     courseSvc,
		assessmentSvc: assessmentSvc,
	}
}

// checkTarget checks that actor may manage events of batchID. Trainers may only target the batches they train.
func (svc *service) checkTarget(ctx context.Context, actor user.User, batchID string) error {
	if batchID != "" {
		if _, err := svc.batchSvc.GetByID(ctx, batchID); err != nil {
			if errors.Cause(err) == batch.ErrNotFound {
				return core.NewFieldError("batch_id", batch.ErrNotFound.Error())
			}
			return errors.Wrap(err, "finding event batch")
		}
	}
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsTrainer() {
		return core.ErrForbidden
	}
	if batchID == "" {
		return nil
	}
	ok, err := svc.batchSvc.IsMember(ctx, batchID, actor.ID, batch.MemberTrainer)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrForbidden
	}
	return nil
}

func checkEventRange(e Event) error {
	if e.EndAt.Before(e.StartAt) {
		return core.NewFieldError("end_at", errEndBeforeStart.Error())
	}
	return nil
}

func (svc *service) Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error) {
	if err := svc.checkTarget(ctx, actor, ne.BatchID); err != nil {
		return Event{}, err
	}

	now := time.Now().UTC()
	e := Event{
		BatchID:     ne.BatchID,
		Title:       ne.Title,
		Description: ne.Description,
		Kind:        ne.Kind,
		StartAt:     ne.StartAt,
		EndAt:       ne.EndAt,
		AllDay:      ne.AllDay,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.normalize()
	if err := checkEventRange(e); err != nil {
		return Event{}, err
	}
	e, err := svc.repo.CreateEvent(ctx, e)
	return e, errors.Wrap(err, "creating event")
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

// checkOwnership checks that actor may modify e: admins any event, trainers the ones they created.
func checkOwnership(actor user.User, e Event) error {
	if actor.IsAdmin() || (actor.IsTrainer() && e.CreatedBy == actor.ID) {
		return nil
	}
	return core.ErrForbidden
}

func (svc *service) Update(ctx context.Context, actor user.User, e Event, ue UpdateEvent) (Event, error) {
	if err := checkOwnership(actor, e); err != nil {
		return Event{}, err
	}
	if err := svc.checkTarget(ctx, actor, e.BatchID); err != nil {
		return Event{}, err
	}

	if ue.Title != "" {
		e.Title = ue.Title
	}
	if ue.Description != nil {
		e.Description = core.CleanString(*ue.Description)
	}
	if ue.Kind != "" {
		e.Kind = ue.Kind
	}
	if ue.StartAt != nil {
		e.StartAt = *ue.StartAt
	}
	if ue.EndAt != nil {
		e.EndAt = *ue.EndAt
	}
	if ue.AllDay != nil {
		e.AllDay = *ue.AllDay
	}
	e.normalize()
	if err := checkEventRange(e); err != nil {
		return Event{}, err
	}

	e.UpdatedAt = time.Now().UTC()
	e, err := svc.repo.UpdateEvent(ctx, e)
	return e, errors.Wrap(err, "updating event")
}

func (svc *service) Delete(ctx context.Context, actor user.User, e Event) error {
	if err := checkOwnership(actor, e); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, e.ID)
}

func checkWindow(filter FeedFilter) error {
	if filter.From.IsZero() {
		return core.NewFieldError("from", "this field is required")
	}
	if filter.To.IsZero() {
		return core.NewFieldError("to", "this field is required")
	}
	if filter.To.Before(filter.From) {
		return core.NewFieldError("to", errEndBeforeStart.Error())
	}
	if filter.From.DaysUntil(filter.To)+1 > MaxWindowDays {
		return core.NewFieldError("to", errWindowTooLong.Error())
	}
	return nil
}

// feedBatches returns the batches whose entries usr may see. all is true for admins not filtering by batch.
func (svc *service) feedBatches(ctx context.Context, usr user.User, batchID string) (ids []string, all bool, err error) {
	if usr.IsAdmin() {
		if batchID == "" {
			return nil, true, nil
		}
		return []string{batchID}, false, nil
	}

	batches, err := svc.batchSvc.UserBatches(ctx, usr.ID, "")
	if err != nil {
		return nil, false, errors.Wrap(err, "listing user batches")
	}
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	if batchID != "" {
		if !core.StringsContain(ids, batchID) {
			return nil, false, core.ErrForbidden
		}
		ids = []string{batchID}
	}
	return ids, false, nil
}

func (svc *service) Feed(ctx context.Context, usr user.User, filter FeedFilter) ([]Entry, error) {
	if err := checkWindow(filter); err != nil {
		return nil, err
	}
	batchIDs, all, err := svc.feedBatches(ctx, usr, filter.BatchID)
	if err != nil {
		return nil, err
	}
	from, to := filter.From.Time(), filter.To.EndOfDay()

	events, err := svc.repo.QueryEvents(ctx, EventFilter{BatchIDs: batchIDs, AllBatches: all, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "listing events")
	}
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, Entry{
			Kind:    e.Kind,
			Title:   e.Title,
			Start:   e.StartAt,
			End:     e.EndAt,
			AllDay:  e.AllDay,
			BatchID: e.BatchID,
			RefID:   e.ID,
		})
	}

	if all || len(batchIDs) > 0 {
		curriculum, err := svc.curriculumEntries(ctx, batchIDs, filter)
		if err != nil {
			return nil, err
		}
		entries = append(entries, curriculum...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Start.Equal(entries[j].Start) {
			return entries[i].Start.Before(entries[j].Start)
		}
		return entries[i].Title < entries[j].Title
	})
	return entries, nil
}

// curriculumEntries lists the modules taught and the assessment deadlines of the batches in the window.
// A nil batchIDs selects every batch.
func (svc *service) curriculumEntries(ctx context.Context, batchIDs []string, filter FeedFilter) ([]Entry, error) {
	schedules, err := svc.batchSvc.ListSchedules(ctx, batch.ScheduleFilter{BatchIDs: batchIDs})
	if err != nil {
		return nil, errors.Wrap(err, "listing curriculum")
	}

	var (
		inWindow  []batch.Schedule
		moduleIDs []string
		courseIDs []string
		// courseBatch tracks the batch of courses scheduled in a single batch.
		courseBatch = make(map[string]string)
	)
	for _, s := range schedules {
		courseIDs = append(courseIDs, s.CourseID)
		if prev, ok := courseBatch[s.CourseID]; ok && prev != s.BatchID {
			courseBatch[s.CourseID] = ""
		} else if !ok {
			courseBatch[s.CourseID] = s.BatchID
		}
		if !s.EndDate.Before(filter.From) && !s.StartDate.After(filter.To) {
			inWindow = append(inWindow, s)
			moduleIDs = append(moduleIDs, s.ModuleID)
		}
	}

	entries := make([]Entry, 0, len(inWindow))
	if len(inWindow) > 0 {
		modules, err := svc.courseSvc.GetModulesByIDs(ctx, moduleIDs)
		if err != nil {
			return nil, errors.Wrap(err, "finding scheduled modules")
		}
		titles := make(map[string]string, len(modules))
		for _, m := range modules {
			titles[m.ID] = m.Title
		}
		for _, s := range inWindow {
			entries = append(entries, Entry{
				Kind:    EntryModule,
				Title:   titles[s.ModuleID],
				Start:   s.StartDate.Time(),
				End:     s.EndDate.EndOfDay(),
				AllDay:  true,
				BatchID: s.BatchID,
				RefID:   s.ID,
			})
		}
	}

	courseIDs = core.UniqueStrings(courseIDs)
	if len(courseIDs) == 0 {
		return entries, nil
	}
	from, to := filter.From.Time(), filter.To.EndOfDay()
	assessments, err := svc.assessmentSvc.Query(ctx, &assessment.QueryFilter{CourseIDs: courseIDs, DueFrom: &from, DueTo: &to}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing deadlines")
	}
	for _, a := range assessments {
		if a.DueAt == nil {
			continue
		}
		entries = append(entries, Entry{
			Kind:    EntryDeadline,
			Title:   a.Title,
			Start:   *a.DueAt,
			End:     *a.DueAt,
			BatchID: courseBatch[a.CourseID],
			RefID:   a.ID,
		})
	}
	return entries, nil
}
