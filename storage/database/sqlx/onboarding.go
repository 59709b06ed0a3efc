package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
)

var (
	itemColumns     = []string{"id", "title", "description", "position", "is_required", "is_active", "created_at", "updated_at"}
	progressColumns = []string{"item_id", "trainee_id", "completed_at", "verified_by", "updated_at"}
)

type itemRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Position    int       `db:"position"`
	IsRequired  bool      `db:"is_required"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type progressRow struct {
	ItemID      string      `db:"item_id"`
	TraineeID   string      `db:"trainee_id"`
	CompletedAt null.Time   `db:"completed_at"`
	VerifiedBy  null.String `db:"verified_by"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type onboardingRepository struct {
	repository
}

var _ onboarding.Repository = (*onboardingRepository)(nil) // interface compliance check

func NewOnboardingRepository(exec core.DBExecutor) onboarding.Repository {
	return &onboardingRepository{repository{exec: exec}}
}

func (repo onboardingRepository) NextItemPosition(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var pos int
	if err := repo.get(ctx, exec, &pos, psql.Select("COALESCE(MAX(position), 0) + 1").From("onboarding_item")); err != nil {
		return 0, errors.Wrap(err, "computing item position")
	}
	return pos, nil
}

func (repo onboardingRepository) CreateItem(ctx context.Context, it onboarding.Item, exec ...core.DBExecutor) (onboarding.Item, error) {
	it.ID = uuid.New().String()
	b := psql.Insert("onboarding_item").Columns(itemColumns...).Values(
		it.ID, it.Title, it.Description, it.Position, it.IsRequired, it.IsActive, it.CreatedAt.UTC(), it.UpdatedAt.UTC(),
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		return onboarding.Item{}, errors.Wrap(err, "inserting onboarding item")
	}
	return it, nil
}

func (repo onboardingRepository) ListItems(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]onboarding.Item, error) {
	b := psql.Select(itemColumns...).From("onboarding_item").OrderBy("position ASC", "created_at ASC")
	if activeOnly {
		b = b.Where(sq.Eq{"is_active": true})
	}

	var rows []itemRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying onboarding items")
	}
	items := make([]onboarding.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, onboarding.Item(r))
	}
	return items, nil
}

func (repo onboardingRepository) GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (onboarding.Item, error) {
	if !validUUID(id) {
		return onboarding.Item{}, onboarding.ErrNotFound
	}
	var row itemRow
	if err := repo.get(ctx, exec, &row, psql.Select(itemColumns...).From("onboarding_item").Where(sq.Eq{"id": id})); err != nil {
		return onboarding.Item{}, trapNoRowsErr(err, onboarding.ErrNotFound, "finding onboarding item")
	}
	return onboarding.Item(row), nil
}

func (repo onboardingRepository) UpdateItem(ctx context.Context, it onboarding.Item, exec ...core.DBExecutor) (onboarding.Item, error) {
	b := psql.Update("onboarding_item").SetMap(map[string]interface{}{
		"title":       it.Title,
		"description": it.Description,
		"position":    it.Position,
		"is_required": it.IsRequired,
		"is_active":   it.IsActive,
		"updated_at":  it.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": it.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return onboarding.Item{}, errors.Wrap(err, "updating onboarding item")
	}
	if n == 0 {
		return onboarding.Item{}, onboarding.ErrNotFound
	}
	return it, nil
}

func (repo onboardingRepository) DeleteItem(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return onboarding.ErrNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("onboarding_item").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting onboarding item")
	}
	if n == 0 {
		return onboarding.ErrNotFound
	}
	return nil
}

func (repo onboardingRepository) ListProgress(ctx context.Context, traineeIDs []string, exec ...core.DBExecutor) ([]onboarding.Progress, error) {
	b := psql.Select(progressColumns...).From("onboarding_progress").Where(sq.NotEq{"completed_at": nil})
	if traineeIDs != nil {
		b = b.Where(sq.Eq{"trainee_id": validUUIDs(traineeIDs)})
	}

	var rows []progressRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying onboarding progress")
	}
	progress := make([]onboarding.Progress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, onboarding.Progress{
			ItemID:      r.ItemID,
			TraineeID:   r.TraineeID,
			CompletedAt: r.CompletedAt.Time,
			VerifiedBy:  r.VerifiedBy.String,
		})
	}
	return progress, nil
}

func (repo onboardingRepository) UpsertProgress(ctx context.Context, p onboarding.Progress, exec ...core.DBExecutor) error {
	b := psql.Insert("onboarding_progress").Columns(progressColumns...).Values(
		p.ItemID, p.TraineeID, null.TimeFrom(p.CompletedAt.UTC()), null.NewString(p.VerifiedBy, p.VerifiedBy != ""),
		time.Now().UTC(),
	).Suffix(
		"ON CONFLICT (item_id, trainee_id) DO UPDATE SET " +
			"completed_at = EXCLUDED.completed_at, verified_by = EXCLUDED.verified_by, updated_at = EXCLUDED.updated_at",
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if fkViolation(err) {
			return onboarding.ErrNotFound
		}
		return errors.Wrap(err, "upserting onboarding progress")
	}
	return nil
}

func (repo onboardingRepository) DeleteProgress(ctx context.Context, itemID, traineeID string, exec ...core.DBExecutor) error {
	if !validUUID(itemID) || !validUUID(traineeID) {
		return nil
	}
	b := psql.Delete("onboarding_progress").Where(sq.Eq{"item_id": itemID, "trainee_id": traineeID})
	if _, err := repo.execute(ctx, exec, b); err != nil {
		return errors.Wrap(err, "deleting onboarding progress")
	}
	return nil
}
