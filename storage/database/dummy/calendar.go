package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
)

type calendarRepository struct {
	db *DB
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *DB) calendar.Repository {
	return &calendarRepository{db: db}
}

func (repo *calendarRepository) CreateEvent(_ context.Context, e calendar.Event, _ ...core.DBExecutor) (calendar.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = uuid.New().String()
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *calendarRepository) QueryEvents(_ context.Context, filter calendar.EventFilter, _ ...core.DBExecutor) ([]calendar.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	batchIDs := idSet(filter.BatchIDs)
	events := make([]calendar.Event, 0)
	for _, e := range repo.db.events {
		if _, ok := batchIDs[e.BatchID]; e.BatchID != "" && !filter.AllBatches && !ok {
			continue
		}
		if !filter.From.IsZero() && e.EndAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.StartAt.After(filter.To) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartAt.Equal(events[j].StartAt) {
			return events[i].StartAt.Before(events[j].StartAt)
		}
		return events[i].Title < events[j].Title
	})
	return events, nil
}

func (repo *calendarRepository) GetEvent(_ context.Context, id string, _ ...core.DBExecutor) (calendar.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.events[id]; ok {
		return e, nil
	}
	return calendar.Event{}, calendar.ErrNotFound
}

func (repo *calendarRepository) UpdateEvent(_ context.Context, e calendar.Event, _ ...core.DBExecutor) (calendar.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[e.ID]; !ok {
		return calendar.Event{}, calendar.ErrNotFound
	}
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *calendarRepository) DeleteEvent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return calendar.ErrNotFound
	}
	delete(repo.db.events, id)
	return nil
}
