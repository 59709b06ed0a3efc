package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
)

type onboardingRepository struct {
	db *DB
}

var _ onboarding.Repository = (*onboardingRepository)(nil) // interface compliance check

func NewOnboardingRepository(db *DB) onboarding.Repository {
	return &onboardingRepository{db: db}
}

func (repo *onboardingRepository) NextItemPosition(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pos := 0
	for _, it := range repo.db.items {
		if it.Position > pos {
			pos = it.Position
		}
	}
	return pos + 1, nil
}

func (repo *onboardingRepository) CreateItem(_ context.Context, it onboarding.Item, _ ...core.DBExecutor) (onboarding.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	it.ID = uuid.New().String()
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *onboardingRepository) ListItems(_ context.Context, activeOnly bool, _ ...core.DBExecutor) ([]onboarding.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]onboarding.Item, 0, len(repo.db.items))
	for _, it := range repo.db.items {
		if activeOnly && !it.IsActive {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (repo *onboardingRepository) GetItem(_ context.Context, id string, _ ...core.DBExecutor) (onboarding.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if it, ok := repo.db.items[id]; ok {
		return it, nil
	}
	return onboarding.Item{}, onboarding.ErrNotFound
}

func (repo *onboardingRepository) UpdateItem(_ context.Context, it onboarding.Item, _ ...core.DBExecutor) (onboarding.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.items[it.ID]; !ok {
		return onboarding.Item{}, onboarding.ErrNotFound
	}
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *onboardingRepository) DeleteItem(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.items[id]; !ok {
		return onboarding.ErrNotFound
	}
	delete(repo.db.items, id)
	for k := range repo.db.progress {
		if k.itemID == id {
			delete(repo.db.progress, k)
		}
	}
	return nil
}

func (repo *onboardingRepository) ListProgress(_ context.Context, traineeIDs []string, _ ...core.DBExecutor) ([]onboarding.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[string]struct{}
	if traineeIDs != nil {
		ids = idSet(traineeIDs)
	}
	progress := make([]onboarding.Progress, 0)
	for k, p := range repo.db.progress {
		if _, ok := ids[k.traineeID]; ids != nil && !ok {
			continue
		}
		progress = append(progress, p)
	}
	return progress, nil
}

func (repo *onboardingRepository) UpsertProgress(_ context.Context, p onboarding.Progress, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.items[p.ItemID]; !ok {
		return onboarding.ErrNotFound
	}
	repo.db.progress[progressKey{p.ItemID, p.TraineeID}] = p
	return nil
}

func (repo *onboardingRepository) DeleteProgress(_ context.Context, itemID, traineeID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.progress, progressKey{itemID, traineeID})
	return nil
}
