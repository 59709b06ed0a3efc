package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
)

type batchRepository struct {
	db *DB
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *DB) batch.Repository {
	return &batchRepository{db: db}
}

func (repo *batchRepository) CheckCodeUniqueness(_ context.Context, code, excludedID string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkCode(code, excludedID)
}

func (repo *batchRepository) checkCode(code, excludedID string) error {
	for _, b := range repo.db.batches {
		if b.Code == code && b.ID != excludedID {
			return batch.ErrCodeExists
		}
	}
	return nil
}

func (repo *batchRepository) CreateBatch(_ context.Context, b batch.Batch, _ ...core.DBExecutor) (batch.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkCode(b.Code, ""); err != nil {
		return batch.Batch{}, err
	}
	b.ID = uuid.New().String()
	repo.db.batches[b.ID] = b
	return b, nil
}

func (repo *batchRepository) QueryBatches(_ context.Context, filter *batch.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]batch.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	batches := make([]batch.Batch, 0)
	for _, b := range repo.db.batches {
		if filter != nil {
			if filter.Search != "" && !containsFold(b.Code, filter.Search) && !containsFold(b.Name, filter.Search) {
				continue
			}
			if filter.Status != "" && b.Status(filter.Today) != filter.Status {
				continue
			}
			if filter.MemberID != "" {
				if _, ok := repo.db.members[memberKey{b.ID, filter.MemberID}]; !ok {
					continue
				}
			}
		}
		batches = append(batches, b)
	}
	sortByOrdering(batches, ordering, batchField, func(a, b batch.Batch) bool {
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		return a.Code < b.Code
	})
	return batches, nil
}

func batchField(b batch.Batch, field string) interface{} {
	switch field {
	case "code":
		return b.Code
	case "name":
		return b.Name
	case "start_date":
		return b.StartDate
	case "end_date":
		return b.EndDate
	default:
		return b.CreatedAt
	}
}

func (repo *batchRepository) GetBatch(_ context.Context, id string, _ ...core.DBExecutor) (batch.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return b, nil
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *batchRepository) GetBatchesByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]batch.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	batches := make([]batch.Batch, 0, len(ids))
	for _, id := range ids {
		if b, ok := repo.db.batches[id]; ok {
			batches = append(batches, b)
		}
	}
	return batches, nil
}

func (repo *batchRepository) UpdateBatch(_ context.Context, b batch.Batch, _ ...core.DBExecutor) (batch.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.batches[b.ID]; !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	if err := repo.checkCode(b.Code, b.ID); err != nil {
		return batch.Batch{}, err
	}
	repo.db.batches[b.ID] = b
	return b, nil
}

func (repo *batchRepository) DeleteBatch(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.batches[id]; !ok {
		return batch.ErrNotFound
	}
	delete(repo.db.batches, id)
	for k := range repo.db.members {
		if k.batchID == id {
			delete(repo.db.members, k)
		}
	}
	for qID, q := range repo.db.quarters {
		if q.BatchID == id {
			delete(repo.db.quarters, qID)
		}
	}
	for sID, s := range repo.db.schedules {
		if s.BatchID == id {
			delete(repo.db.schedules, sID)
		}
	}
	for eID, e := range repo.db.events {
		if e.BatchID == id {
			delete(repo.db.events, eID)
		}
	}
	return nil
}

// Members

func (repo *batchRepository) AddMembers(_ context.Context, members []batch.Member, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, m := range members {
		if _, ok := repo.db.batches[m.BatchID]; !ok {
			return batch.ErrNotFound
		}
		k := memberKey{m.BatchID, m.UserID}
		if existing, ok := repo.db.members[k]; ok {
			m.JoinedAt = existing.JoinedAt
		}
		m.User = nil
		repo.db.members[k] = m
	}
	return nil
}

func (repo *batchRepository) RemoveMembers(_ context.Context, batchID string, userIDs []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cnt := 0
	for _, id := range userIDs {
		k := memberKey{batchID, id}
		if _, ok := repo.db.members[k]; ok {
			delete(repo.db.members, k)
			cnt++
		}
		for sID, s := range repo.db.schedules {
			if s.BatchID == batchID && s.TrainerID == id {
				s.TrainerID = ""
				repo.db.schedules[sID] = s
			}
		}
	}
	return cnt, nil
}

func sortMembers(members []batch.Member) {
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
}

func (repo *batchRepository) ListMembers(_ context.Context, batchID, role string, _ ...core.DBExecutor) ([]batch.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]batch.Member, 0)
	for k, m := range repo.db.members {
		if k.batchID == batchID && (role == "" || m.Role == role) {
			members = append(members, m)
		}
	}
	sortMembers(members)
	return members, nil
}

func (repo *batchRepository) ListMemberships(_ context.Context, userID string, _ ...core.DBExecutor) ([]batch.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]batch.Member, 0)
	for k, m := range repo.db.members {
		if k.userID == userID {
			members = append(members, m)
		}
	}
	sortMembers(members)
	return members, nil
}

// Quarters

func (repo *batchRepository) CreateQuarter(_ context.Context, q batch.Quarter, _ ...core.DBExecutor) (batch.Quarter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.batches[q.BatchID]; !ok {
		return batch.Quarter{}, batch.ErrNotFound
	}
	q.ID = uuid.New().String()
	repo.db.quarters[q.ID] = q
	return q, nil
}

func (repo *batchRepository) ListQuarters(_ context.Context, batchID string, _ ...core.DBExecutor) ([]batch.Quarter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	quarters := make([]batch.Quarter, 0)
	for _, q := range repo.db.quarters {
		if q.BatchID == batchID {
			quarters = append(quarters, q)
		}
	}
	sort.Slice(quarters, func(i, j int) bool { return quarters[i].Number < quarters[j].Number })
	return quarters, nil
}

func (repo *batchRepository) GetQuarter(_ context.Context, id string, _ ...core.DBExecutor) (batch.Quarter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.quarters[id]; ok {
		return q, nil
	}
	return batch.Quarter{}, batch.ErrQuarterNotFound
}

func (repo *batchRepository) UpdateQuarter(_ context.Context, q batch.Quarter, _ ...core.DBExecutor) (batch.Quarter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.quarters[q.ID]; !ok {
		return batch.Quarter{}, batch.ErrQuarterNotFound
	}
	repo.db.quarters[q.ID] = q
	return q, nil
}

func (repo *batchRepository) DeleteQuarter(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.quarters[id]; !ok {
		return batch.ErrQuarterNotFound
	}
	delete(repo.db.quarters, id)
	for sID, s := range repo.db.schedules {
		if s.QuarterID == id {
			delete(repo.db.schedules, sID)
		}
	}
	return nil
}

// Curriculum

func (repo *batchRepository) CreateSchedule(_ context.Context, s batch.Schedule, _ ...core.DBExecutor) (batch.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.quarters[s.QuarterID]; !ok {
		return batch.Schedule{}, batch.ErrQuarterNotFound
	}
	s.ID = uuid.New().String()
	repo.db.schedules[s.ID] = s
	return s, nil
}

func (repo *batchRepository) QuerySchedules(_ context.Context, filter batch.ScheduleFilter, _ ...core.DBExecutor) ([]batch.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var batchIDs, courseIDs map[string]struct{}
	if filter.BatchIDs != nil {
		batchIDs = idSet(filter.BatchIDs)
	}
	if filter.CourseIDs != nil {
		courseIDs = idSet(filter.CourseIDs)
	}

	schedules := make([]batch.Schedule, 0)
	for _, s := range repo.db.schedules {
		if _, ok := batchIDs[s.BatchID]; batchIDs != nil && !ok {
			continue
		}
		if _, ok := courseIDs[s.CourseID]; courseIDs != nil && !ok {
			continue
		}
		if filter.QuarterID != "" && s.QuarterID != filter.QuarterID {
			continue
		}
		if filter.TrainerID != "" && s.TrainerID != filter.TrainerID {
			continue
		}
		if filter.ModuleID != "" && s.ModuleID != filter.ModuleID {
			continue
		}
		if !filter.From.IsZero() && s.EndDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.StartDate.After(filter.To) {
			continue
		}
		schedules = append(schedules, s)
	}
	sort.Slice(schedules, func(i, j int) bool {
		if !schedules[i].StartDate.Equal(schedules[j].StartDate) {
			return schedules[i].StartDate.Before(schedules[j].StartDate)
		}
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})
	return schedules, nil
}

func (repo *batchRepository) GetSchedule(_ context.Context, id string, _ ...core.DBExecutor) (batch.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return s, nil
	}
	return batch.Schedule{}, batch.ErrScheduleNotFound
}

func (repo *batchRepository) UpdateSchedule(_ context.Context, s batch.Schedule, _ ...core.DBExecutor) (batch.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.schedules[s.ID]; !ok {
		return batch.Schedule{}, batch.ErrScheduleNotFound
	}
	repo.db.schedules[s.ID] = s
	return s, nil
}

func (repo *batchRepository) DeleteSchedule(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.schedules[id]; !ok {
		return batch.ErrScheduleNotFound
	}
	delete(repo.db.schedules, id)
	return nil
}
