package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("batch not found")
	ErrQuarterNotFound  = errors.New("quarter not found")
	ErrScheduleNotFound = errors.New("curriculum entry not found")
	ErrCodeExists       = errors.New("a batch with this code already exists")

	errRoleMismatch   = errors.New("does not have the role of this membership")
	errInactive       = errors.New("account is deactivated")
	errAlreadyTrainee = errors.New("is already a trainee of an ongoing batch")

	todayFunc = func() core.Date { return core.DateOf(time.Now().UTC()) } // mockable
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists if a batch other than excludedID already uses code.
		CheckCodeUniqueness(ctx context.Context, code, excludedID string, exec ...core.DBExecutor) error
		CreateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		QueryBatches(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Batch, error)
		GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (Batch, error)
		GetBatchesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Batch, error)
		UpdateBatch(ctx context.Context, b Batch, exec ...core.DBExecutor) (Batch, error)
		DeleteBatch(ctx context.Context, id string, exec ...core.DBExecutor) error

		// AddMembers inserts members, overwriting the role of existing ones.
		AddMembers(ctx context.Context, members []Member, exec ...core.DBExecutor) error
		RemoveMembers(ctx context.Context, batchID string, userIDs []string, exec ...core.DBExecutor) (int, error)
		// ListMembers lists the members of a batch, optionally restricted to role, ordered by join date.
		ListMembers(ctx context.Context, batchID, role string, exec ...core.DBExecutor) ([]Member, error)
		ListMemberships(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Member, error)

		CreateQuarter(ctx context.Context, q Quarter, exec ...core.DBExecutor) (Quarter, error)
		// ListQuarters lists the quarters of a batch ordered by number.
		ListQuarters(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]Quarter, error)
		GetQuarter(ctx context.Context, id string, exec ...core.DBExecutor) (Quarter, error)
		UpdateQuarter(ctx context.Context, q Quarter, exec ...core.DBExecutor) (Quarter, error)
		DeleteQuarter(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateSchedule(ctx context.Context, s Schedule, exec ...core.DBExecutor) (Schedule, error)
		// QuerySchedules lists curriculum entries ordered by start date.
		QuerySchedules(ctx context.Context, filter ScheduleFilter, exec ...core.DBExecutor) ([]Schedule, error)
		GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule, exec ...core.DBExecutor) (Schedule, error)
		DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nb NewBatch) (Batch, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Batch, error)
		GetByID(ctx context.Context, id string) (Batch, error)
		GetByIDs(ctx context.Context, ids []string) ([]Batch, error)
		Update(ctx context.Context, b Batch, ub UpdateBatch) (Batch, error)
		Delete(ctx context.Context, id string) error

		AddMembers(ctx context.Context, b Batch, nm NewMembers) ([]Member, error)
		RemoveMembers(ctx context.Context, b Batch, userIDs []string) error
		ListMembers(ctx context.Context, b Batch, role string) ([]Member, error)
		IsMember(ctx context.Context, batchID, userID, role string) (bool, error)
		// UserBatches lists the batches userID is a member of with role (any role if empty).
		UserBatches(ctx context.Context, userID, role string) ([]Batch, error)
		// CurrentBatch returns the ongoing batch of a trainee, or ErrNotFound.
		CurrentBatch(ctx context.Context, traineeID string) (Batch, error)

		CreateQuarter(ctx context.Context, b Batch, nq NewQuarter) (Quarter, error)
		GenerateQuarters(ctx context.Context, b Batch, n int) ([]Quarter, error)
		ListQuarters(ctx context.Context, b Batch) ([]Quarter, error)
		GetQuarter(ctx context.Context, id string) (Quarter, error)
		UpdateQuarter(ctx context.Context, q Quarter, uq UpdateQuarter) (Quarter, error)
		DeleteQuarter(ctx context.Context, id string) error

		CreateSchedule(ctx context.Context, b Batch, ns NewSchedule) (Schedule, error)
		ListSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
		GetSchedule(ctx context.Context, id string) (Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule, us UpdateSchedule) (Schedule, error)
		DeleteSchedule(ctx context.Context, id string) error
	}

	service struct {
		repo      Repository
		txRunner  core.TxRunner
		userSvc   user.Service
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, txRunner core.TxRunner, userSvc user.Service, courseSvc course.Service) Service {
	return &service{
		repo:      repo,
		txRunner:  txRunner,
		userSvc:   userSvc,
		courseSvc: courseSvc,
	}
}

func (svc *service) checkCodeUniqueness(ctx context.Context, code, excludedID string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludedID); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return errors.Wrap(err, "checking batch code uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nb NewBatch) (Batch, error) {
	if err := checkRange(nb.StartDate, nb.EndDate); err != nil {
		return Batch{}, err
	}
	if err := svc.checkCodeUniqueness(ctx, nb.Code, ""); err != nil {
		return Batch{}, err
	}
	now := time.Now().UTC()
	b, err := svc.repo.CreateBatch(ctx, Batch{
		Code:      nb.Code,
		Name:      nb.Name,
		StartDate: nb.StartDate,
		EndDate:   nb.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return b, errors.Wrap(err, "creating batch")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Batch, error) {
	if filter != nil {
		filter.Clean()
		filter.Today = todayFunc()
	}
	return svc.repo.QueryBatches(ctx, filter, core.FilterOrdering(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatch(ctx, id)
}

func (svc *service) GetByIDs(ctx context.Context, ids []string) ([]Batch, error) {
	if len(ids) == 0 {
		return []Batch{}, nil
	}
	return svc.repo.GetBatchesByID(ctx, core.UniqueStrings(ids))
}

func (svc *service) Update(ctx context.Context, b Batch, ub UpdateBatch) (Batch, error) {
	if ub.Code != "" && ub.Code != b.Code {
		if err := svc.checkCodeUniqueness(ctx, ub.Code, b.ID); err != nil {
			return Batch{}, err
		}
		b.Code = ub.Code
	}
	if ub.Name != "" {
		b.Name = ub.Name
	}
	start, end := b.StartDate, b.EndDate
	if !ub.StartDate.IsZero() {
		b.StartDate = ub.StartDate
	}
	if !ub.EndDate.IsZero() {
		b.EndDate = ub.EndDate
	}
	if err := checkRange(b.StartDate, b.EndDate); err != nil {
		return Batch{}, err
	}

	quarters, err := svc.repo.ListQuarters(ctx, b.ID)
	if err != nil {
		return Batch{}, errors.Wrap(err, "listing quarters")
	}
	for _, q := range quarters {
		if err := checkInside(q.StartDate, q.EndDate, b.StartDate, b.EndDate, errOrphanQuarters); err != nil {
			return Batch{}, err
		}
	}
	if !b.StartDate.Equal(start) || !b.EndDate.Equal(end) {
		if err := svc.checkTraineesOverlap(ctx, b); err != nil {
			return Batch{}, err
		}
	}

	b.UpdatedAt = time.Now().UTC()
	b, err = svc.repo.UpdateBatch(ctx, b)
	return b, errors.Wrap(err, "updating batch")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteBatch(ctx, id)
}

// Members

func (svc *service) AddMembers(ctx context.Context, b Batch, nm NewMembers) ([]Member, error) {
	users, err := svc.userSvc.GetByIDs(ctx, nm.UserIDs)
	if err != nil {
		return nil, errors.Wrap(err, "finding users")
	}
	byID := make(map[string]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	today := todayFunc()
	now := time.Now().UTC()
	members := make([]Member, 0, len(nm.UserIDs))
	for _, id := range nm.UserIDs {
		usr, ok := byID[id]
		if !ok {
			return nil, memberErr(id, user.ErrNotFound)
		}
		if !usr.Active() {
			return nil, memberErr(id, errInactive)
		}
		if (nm.Role == MemberTrainer && !usr.IsTrainer()) || (nm.Role == MemberTrainee && !usr.IsTrainee()) {
			return nil, memberErr(id, errRoleMismatch)
		}
		if nm.Role == MemberTrainee && b.Status(today) != StatusFinished {
			busy, err := svc.inOtherOngoingBatch(ctx, b, id, today)
			if err != nil {
				return nil, err
			}
			if busy {
				return nil, memberErr(id, errAlreadyTrainee)
			}
		}
		members = append(members, Member{BatchID: b.ID, UserID: id, Role: nm.Role, JoinedAt: now})
	}

	err = svc.txRunner.RunInTx(ctx, func(tx core.DBExecutor) error {
		return svc.repo.AddMembers(ctx, members, tx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "adding members")
	}
	return svc.ListMembers(ctx, b, "")
}

// inOtherOngoingBatch reports whether userID is a trainee of another unfinished batch whose dates overlap b's.
func (svc *service) inOtherOngoingBatch(ctx context.Context, b Batch, userID string, today core.Date) (bool, error) {
	memberships, err := svc.repo.ListMemberships(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "listing memberships")
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if m.Role == MemberTrainee && m.BatchID != b.ID {
			ids = append(ids, m.BatchID)
		}
	}
	if len(ids) == 0 {
		return false, nil
	}
	batches, err := svc.repo.GetBatchesByID(ctx, ids)
	if err != nil {
		return false, errors.Wrap(err, "finding batches")
	}
	for _, other := range batches {
		if other.Status(today) != StatusFinished && overlaps(b.StartDate, b.EndDate, other.StartDate, other.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

// checkTraineesOverlap checks that the new dates of b do not put one of its trainees in two ongoing batches.
func (svc *service) checkTraineesOverlap(ctx context.Context, b Batch) error {
	today := todayFunc()
	if b.Status(today) == StatusFinished {
		return nil
	}
	trainees, err := svc.repo.ListMembers(ctx, b.ID, MemberTrainee)
	if err != nil {
		return errors.Wrap(err, "listing trainees")
	}
	for _, m := range trainees {
		busy, err := svc.inOtherOngoingBatch(ctx, b, m.UserID, today)
		if err != nil {
			return err
		}
		if busy {
			msg := fmt.Sprintf("trainee %s is already in an ongoing batch over these dates", m.UserID)
			return core.NewValidationError(errors.New(msg), core.FieldError{Field: "start_date", Error: msg})
		}
	}
	return nil
}

func (svc *service) RemoveMembers(ctx context.Context, b Batch, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := svc.repo.RemoveMembers(ctx, b.ID, userIDs)
	return errors.Wrap(err, "removing members")
}

func (svc *service) ListMembers(ctx context.Context, b Batch, role string) ([]Member, error) {
	members, err := svc.repo.ListMembers(ctx, b.ID, role)
	if err != nil {
		return nil, errors.Wrap(err, "listing members")
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := svc.userSvc.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding member users")
	}
	byID := make(map[string]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range members {
		if u, ok := byID[members[i].UserID]; ok {
			members[i].User = &u
		}
	}
	return members, nil
}

func (svc *service) IsMember(ctx context.Context, batchID, userID, role string) (bool, error) {
	memberships, err := svc.repo.ListMemberships(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "listing memberships")
	}
	for _, m := range memberships {
		if m.BatchID == batchID && (role == "" || m.Role == role) {
			return true, nil
		}
	}
	return false, nil
}

func (svc *service) UserBatches(ctx context.Context, userID, role string) ([]Batch, error) {
	memberships, err := svc.repo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing memberships")
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if role == "" || m.Role == role {
			ids = append(ids, m.BatchID)
		}
	}
	batches, err := svc.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding batches")
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].StartDate.Before(batches[j].StartDate) })
	return batches, nil
}

func (svc *service) CurrentBatch(ctx context.Context, traineeID string) (Batch, error) {
	batches, err := svc.UserBatches(ctx, traineeID, MemberTrainee)
	if err != nil {
		return Batch{}, err
	}
	today := todayFunc()
	for _, b := range batches {
		if b.Status(today) == StatusOngoing {
			return b, nil
		}
	}
	return Batch{}, ErrNotFound
}

// Quarters

func (svc *service) CreateQuarter(ctx context.Context, b Batch, nq NewQuarter) (Quarter, error) {
	quarters, err := svc.repo.ListQuarters(ctx, b.ID)
	if err != nil {
		return Quarter{}, errors.Wrap(err, "listing quarters")
	}
	q := Quarter{BatchID: b.ID, Number: nq.Number, StartDate: nq.StartDate, EndDate: nq.EndDate}
	if err := checkQuarter(q, b, quarters); err != nil {
		return Quarter{}, err
	}
	q, err = svc.repo.CreateQuarter(ctx, q)
	return q, errors.Wrap(err, "creating quarter")
}

func (svc *service) GenerateQuarters(ctx context.Context, b Batch, n int) ([]Quarter, error) {
	existing, err := svc.repo.ListQuarters(ctx, b.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing quarters")
	}
	if len(existing) > 0 {
		return nil, rangeErr("count", errQuartersExist)
	}
	if n > MaxQuarters {
		n = MaxQuarters
	}
	ranges, err := splitRange(b.StartDate, b.EndDate, n)
	if err != nil {
		return nil, err
	}

	quarters := make([]Quarter, 0, n)
	err = svc.txRunner.RunInTx(ctx, func(tx core.DBExecutor) error {
		for i, r := range ranges {
			q, err := svc.repo.CreateQuarter(ctx, Quarter{BatchID: b.ID, Number: i + 1, StartDate: r[0], EndDate: r[1]}, tx)
			if err != nil {
				return err
			}
			quarters = append(quarters, q)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating quarters")
	}
	return quarters, nil
}

func (svc *service) ListQuarters(ctx context.Context, b Batch) ([]Quarter, error) {
	return svc.repo.ListQuarters(ctx, b.ID)
}

func (svc *service) GetQuarter(ctx context.Context, id string) (Quarter, error) {
	return svc.repo.GetQuarter(ctx, id)
}

func (svc *service) UpdateQuarter(ctx context.Context, q Quarter, uq UpdateQuarter) (Quarter, error) {
	b, err := svc.repo.GetBatch(ctx, q.BatchID)
	if err != nil {
		return Quarter{}, errors.Wrap(err, "finding quarter batch")
	}
	if uq.Number != 0 {
		q.Number = uq.Number
	}
	if !uq.StartDate.IsZero() {
		q.StartDate = uq.StartDate
	}
	if !uq.EndDate.IsZero() {
		q.EndDate = uq.EndDate
	}

	quarters, err := svc.repo.ListQuarters(ctx, b.ID)
	if err != nil {
		return Quarter{}, errors.Wrap(err, "listing quarters")
	}
	if err := checkQuarter(q, b, quarters); err != nil {
		return Quarter{}, err
	}

	schedules, err := svc.repo.QuerySchedules(ctx, ScheduleFilter{QuarterID: q.ID})
	if err != nil {
		return Quarter{}, errors.Wrap(err, "listing curriculum")
	}
	for _, s := range schedules {
		if err := checkInside(s.StartDate, s.EndDate, q.StartDate, q.EndDate, errOrphanSchedules); err != nil {
			return Quarter{}, err
		}
	}

	q, err = svc.repo.UpdateQuarter(ctx, q)
	return q, errors.Wrap(err, "updating quarter")
}

func (svc *service) DeleteQuarter(ctx context.Context, id string) error {
	return svc.repo.DeleteQuarter(ctx, id)
}

// Curriculum

func (svc *service) CreateSchedule(ctx context.Context, b Batch, ns NewSchedule) (Schedule, error) {
	q, err := svc.scheduleQuarter(ctx, b, ns.QuarterID)
	if err != nil {
		return Schedule{}, err
	}
	m, err := svc.courseSvc.GetModule(ctx, ns.ModuleID)
	if err != nil {
		if errors.Cause(err) == course.ErrModuleNotFound {
			return Schedule{}, rangeErr("module_id", course.ErrModuleNotFound)
		}
		return Schedule{}, errors.Wrap(err, "finding module")
	}

	now := time.Now().UTC()
	s := Schedule{
		BatchID:   b.ID,
		QuarterID: q.ID,
		ModuleID:  m.ID,
		CourseID:  m.CourseID,
		TrainerID: ns.TrainerID,
		StartDate: ns.StartDate,
		EndDate:   ns.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.StartDate.IsZero() {
		s.StartDate = q.StartDate
	}
	if s.EndDate.IsZero() {
		s.EndDate = q.EndDate
	}
	if err := svc.checkSchedule(ctx, s, q); err != nil {
		return Schedule{}, err
	}

	s, err = svc.repo.CreateSchedule(ctx, s)
	return s, errors.Wrap(err, "creating curriculum entry")
}

func (svc *service) scheduleQuarter(ctx context.Context, b Batch, quarterID string) (Quarter, error) {
	q, err := svc.repo.GetQuarter(ctx, quarterID)
	if err != nil {
		if errors.Cause(err) == ErrQuarterNotFound {
			return Quarter{}, rangeErr("quarter_id", ErrQuarterNotFound)
		}
		return Quarter{}, errors.Wrap(err, "finding quarter")
	}
	if q.BatchID != b.ID {
		return Quarter{}, rangeErr("quarter_id", errWrongQuarter)
	}
	return q, nil
}

// checkSchedule enforces the curriculum invariants on s, scheduled during q.
func (svc *service) checkSchedule(ctx context.Context, s Schedule, q Quarter) error {
	if err := checkRange(s.StartDate, s.EndDate); err != nil {
		return err
	}
	if err := checkInside(s.StartDate, s.EndDate, q.StartDate, q.EndDate, errOutsideQuarter); err != nil {
		return err
	}

	scheduled, err := svc.repo.QuerySchedules(ctx, ScheduleFilter{BatchIDs: []string{s.BatchID}, ModuleID: s.ModuleID})
	if err != nil {
		return errors.Wrap(err, "listing curriculum")
	}
	for _, other := range scheduled {
		if other.ID != s.ID {
			return rangeErr("module_id", errModuleScheduled)
		}
	}

	if s.TrainerID != "" {
		ok, err := svc.IsMember(ctx, s.BatchID, s.TrainerID, MemberTrainer)
		if err != nil {
			return err
		}
		if !ok {
			return rangeErr("trainer_id", errNotBatchTrainer)
		}
	}
	return nil
}

func (svc *service) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error) {
	return svc.repo.QuerySchedules(ctx, filter)
}

func (svc *service) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

func (svc *service) UpdateSchedule(ctx context.Context, s Schedule, us UpdateSchedule) (Schedule, error) {
	b, err := svc.repo.GetBatch(ctx, s.BatchID)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "finding curriculum batch")
	}

	quarterID := s.QuarterID
	if us.QuarterID != "" {
		quarterID = us.QuarterID
	}
	q, err := svc.scheduleQuarter(ctx, b, quarterID)
	if err != nil {
		return Schedule{}, err
	}
	if quarterID != s.QuarterID && us.StartDate.IsZero() && us.EndDate.IsZero() {
		s.StartDate, s.EndDate = q.StartDate, q.EndDate
	}
	s.QuarterID = q.ID

	if us.TrainerID != nil {
		s.TrainerID = *us.TrainerID
	}
	if !us.StartDate.IsZero() {
		s.StartDate = us.StartDate
	}
	if !us.EndDate.IsZero() {
		s.EndDate = us.EndDate
	}
	if err := svc.checkSchedule(ctx, s, q); err != nil {
		return Schedule{}, err
	}

	s.UpdatedAt = time.Now().UTC()
	s, err = svc.repo.UpdateSchedule(ctx, s)
	return s, errors.Wrap(err, "updating curriculum entry")
}

func (svc *service) DeleteSchedule(ctx context.Context, id string) error {
	return svc.repo.DeleteSchedule(ctx, id)
}
