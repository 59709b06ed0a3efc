package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
)

var eventColumns = []string{
	"id", "batch_id", "title", "description", "kind", "start_at", "end_at", "all_day", "created_by", "created_at", "updated_at",
}

type eventRow struct {
	ID          string      `db:"id"`
	BatchID     null.String `db:"batch_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Kind        string      `db:"kind"`
	StartAt     time.Time   `db:"start_at"`
	EndAt       time.Time   `db:"end_at"`
	AllDay      bool        `db:"all_day"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row eventRow) unboil() calendar.Event {
	return calendar.Event{
		ID:          row.ID,
		BatchID:     row.BatchID.String,
		Title:       row.Title,
		Description: row.Description,
		Kind:        row.Kind,
		StartAt:     row.StartAt.UTC(),
		EndAt:       row.EndAt.UTC(),
		AllDay:      row.AllDay,
		CreatedBy:   row.CreatedBy.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type calendarRepository struct {
	repository
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(exec core.DBExecutor) calendar.Repository {
	return &calendarRepository{repository{exec: exec}}
}

func (repo calendarRepository) CreateEvent(ctx context.Context, e calendar.Event, exec ...core.DBExecutor) (calendar.Event, error) {
	e.ID = uuid.New().String()
	b := psql.Insert("calendar_event").Columns(eventColumns...).Values(
		e.ID, null.NewString(e.BatchID, e.BatchID != ""), e.Title, e.Description, e.Kind, e.StartAt.UTC(), e.EndAt.UTC(),
		e.AllDay, null.NewString(e.CreatedBy, e.CreatedBy != ""), e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		return calendar.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo calendarRepository) QueryEvents(ctx context.Context, filter calendar.EventFilter, exec ...core.DBExecutor) ([]calendar.Event, error) {
	b := psql.Select(eventColumns...).From("calendar_event")
	if !filter.AllBatches {
		// global events are always included
		b = b.Where(sq.Or{sq.Eq{"batch_id": nil}, sq.Eq{"batch_id": validUUIDs(filter.BatchIDs)}})
	}
	if !filter.From.IsZero() {
		b = b.Where(sq.GtOrEq{"end_at": filter.From.UTC()})
	}
	if !filter.To.IsZero() {
		b = b.Where(sq.LtOrEq{"start_at": filter.To.UTC()})
	}
	b = b.OrderBy("start_at ASC", "title ASC")

	var rows []eventRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]calendar.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.unboil())
	}
	return events, nil
}

func (repo calendarRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (calendar.Event, error) {
	if !validUUID(id) {
		return calendar.Event{}, calendar.ErrNotFound
	}
	var row eventRow
	if err := repo.get(ctx, exec, &row, psql.Select(eventColumns...).From("calendar_event").Where(sq.Eq{"id": id})); err != nil {
		return calendar.Event{}, trapNoRowsErr(err, calendar.ErrNotFound, "finding event")
	}
	return row.unboil(), nil
}

func (repo calendarRepository) UpdateEvent(ctx context.Context, e calendar.Event, exec ...core.DBExecutor) (calendar.Event, error) {
	b := psql.Update("calendar_event").SetMap(map[string]interface{}{
		"batch_id":    null.NewString(e.BatchID, e.BatchID != ""),
		"title":       e.Title,
		"description": e.Description,
		"kind":        e.Kind,
		"start_at":    e.StartAt.UTC(),
		"end_at":      e.EndAt.UTC(),
		"all_day":     e.AllDay,
		"updated_at":  e.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": e.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return calendar.Event{}, errors.Wrap(err, "updating event")
	}
	if n == 0 {
		return calendar.Event{}, calendar.ErrNotFound
	}
	return e, nil
}

func (repo calendarRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return calendar.ErrNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("calendar_event").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n == 0 {
		return calendar.ErrNotFound
	}
	return nil
}
