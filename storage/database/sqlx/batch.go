package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
)

var (
	batchColumns    = []string{"id", "code", "name", "start_date", "end_date", "created_at", "updated_at"}
	memberColumns   = []string{"batch_id", "user_id", "role", "joined_at"}
	quarterColumns  = []string{"id", "batch_id", "number", "start_date", "end_date"}
	scheduleColumns = []string{
		"id", "batch_id", "quarter_id", "module_id", "course_id", "trainer_id", "start_date", "end_date",
		"created_at", "updated_at",
	}
)

type batchRow struct {
	ID        string    `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	StartDate core.Date `db:"start_date"`
	EndDate   core.Date `db:"end_date"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type memberRow struct {
	BatchID  string    `db:"batch_id"`
	UserID   string    `db:"user_id"`
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
}

type quarterRow struct {
	ID        string    `db:"id"`
	BatchID   string    `db:"batch_id"`
	Number    int       `db:"number"`
	StartDate core.Date `db:"start_date"`
	EndDate   core.Date `db:"end_date"`
}

type scheduleRow struct {
	ID        string      `db:"id"`
	BatchID   string      `db:"batch_id"`
	QuarterID string      `db:"quarter_id"`
	ModuleID  string      `db:"module_id"`
	CourseID  string      `db:"course_id"`
	TrainerID null.String `db:"trainer_id"`
	StartDate core.Date   `db:"start_date"`
	EndDate   core.Date   `db:"end_date"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row scheduleRow) unboil() batch.Schedule {
	return batch.Schedule{
		ID:        row.ID,
		BatchID:   row.BatchID,
		QuarterID: row.QuarterID,
		ModuleID:  row.ModuleID,
		CourseID:  row.CourseID,
		TrainerID: row.TrainerID.String,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type batchRepository struct {
	repository
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(exec core.DBExecutor) batch.Repository {
	return &batchRepository{repository{exec: exec}}
}

func (repo batchRepository) CheckCodeUniqueness(ctx context.Context, code, excludedID string, exec ...core.DBExecutor) error {
	b := psql.Select("1").Prefix("SELECT EXISTS (").From("batch").Where(sq.Eq{"code": code}).Suffix(")")
	if validUUID(excludedID) {
		b = b.Where(sq.NotEq{"id": excludedID})
	}

	var exists bool
	if err := repo.get(ctx, exec, &exists, b); err != nil {
		return errors.Wrap(err, "checking batch code uniqueness")
	}
	if exists {
		return batch.ErrCodeExists
	}
	return nil
}

func (repo batchRepository) CreateBatch(ctx context.Context, bt batch.Batch, exec ...core.DBExecutor) (batch.Batch, error) {
	bt.ID = uuid.New().String()
	b := psql.Insert("batch").Columns(batchColumns...).Values(
		bt.ID, bt.Code, bt.Name, bt.StartDate, bt.EndDate, bt.CreatedAt.UTC(), bt.UpdatedAt.UTC(),
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return batch.Batch{}, batch.ErrCodeExists
		}
		return batch.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return bt, nil
}

func (repo batchRepository) selectBatches(ctx context.Context, exec []core.DBExecutor, b sq.SelectBuilder) ([]batch.Batch, error) {
	var rows []batchRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	batches := make([]batch.Batch, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, batch.Batch(r))
	}
	return batches, nil
}

func (repo batchRepository) QueryBatches(ctx context.Context, filter *batch.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]batch.Batch, error) {
	b := psql.Select(batchColumns...).From("batch")
	if filter != nil {
		if filter.Search != "" {
			b = b.Where(likeAny([]string{"code", "name"}, filter.Search))
		}
		switch filter.Status {
		case batch.StatusUpcoming:
			b = b.Where(sq.Gt{"start_date": filter.Today})
		case batch.StatusOngoing:
			b = b.Where(sq.LtOrEq{"start_date": filter.Today}).Where(sq.GtOrEq{"end_date": filter.Today})
		case batch.StatusFinished:
			b = b.Where(sq.Lt{"end_date": filter.Today})
		}
		if filter.MemberID != "" {
			if !validUUID(filter.MemberID) {
				return []batch.Batch{}, nil
			}
			b = b.Where("id IN (SELECT batch_id FROM batch_member WHERE user_id = ?)", filter.MemberID)
		}
	}
	b = orderBy(b, ordering, batch.OrderingFields, "start_date DESC", "code ASC")
	return repo.selectBatches(ctx, exec, b)
}

func (repo batchRepository) GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Batch, error) {
	if !validUUID(id) {
		return batch.Batch{}, batch.ErrNotFound
	}
	var row batchRow
	if err := repo.get(ctx, exec, &row, psql.Select(batchColumns...).From("batch").Where(sq.Eq{"id": id})); err != nil {
		return batch.Batch{}, trapNoRowsErr(err, batch.ErrNotFound, "finding batch")
	}
	return batch.Batch(row), nil
}

func (repo batchRepository) GetBatchesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]batch.Batch, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []batch.Batch{}, nil
	}
	b := psql.Select(batchColumns...).From("batch").Where(sq.Eq{"id": ids}).OrderBy("start_date DESC", "code ASC")
	return repo.selectBatches(ctx, exec, b)
}

func (repo batchRepository) UpdateBatch(ctx context.Context, bt batch.Batch, exec ...core.DBExecutor) (batch.Batch, error) {
	b := psql.Update("batch").SetMap(map[string]interface{}{
		"code":       bt.Code,
		"name":       bt.Name,
		"start_date": bt.StartDate,
		"end_date":   bt.EndDate,
		"updated_at": bt.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": bt.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return batch.Batch{}, batch.ErrCodeExists
		}
		return batch.Batch{}, errors.Wrap(err, "updating batch")
	}
	if n == 0 {
		return batch.Batch{}, batch.ErrNotFound
	}
	return bt, nil
}

// DeleteBatch relies on ON DELETE CASCADE for members, quarters, schedules and batch events.
func (repo batchRepository) DeleteBatch(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return batch.ErrNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("batch").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	if n == 0 {
		return batch.ErrNotFound
	}
	return nil
}

// Members

func (repo batchRepository) AddMembers(ctx context.Context, members []batch.Member, exec ...core.DBExecutor) error {
	if len(members) == 0 {
		return nil
	}
	b := psql.Insert("batch_member").Columns(memberColumns...)
	for _, m := range members {
		b = b.Values(m.BatchID, m.UserID, m.Role, m.JoinedAt.UTC())
	}
	b = b.Suffix("ON CONFLICT (batch_id, user_id) DO UPDATE SET role = EXCLUDED.role")

	if _, err := repo.execute(ctx, exec, b); err != nil {
		if fkViolation(err) {
			return batch.ErrNotFound
		}
		return errors.Wrap(err, "inserting members")
	}
	return nil
}

func (repo batchRepository) RemoveMembers(ctx context.Context, batchID string, userIDs []string, exec ...core.DBExecutor) (int, error) {
	userIDs = validUUIDs(userIDs)
	if !validUUID(batchID) || len(userIDs) == 0 {
		return 0, nil
	}

	unassign := psql.Update("curriculum_schedule").
		Set("trainer_id", nil).
		Where(sq.Eq{"batch_id": batchID, "trainer_id": userIDs})
	if _, err := repo.execute(ctx, exec, unassign); err != nil {
		return 0, errors.Wrap(err, "unassigning trainers")
	}

	cnt, err := repo.execute(ctx, exec, psql.Delete("batch_member").Where(sq.Eq{"batch_id": batchID, "user_id": userIDs}))
	if err != nil {
		return 0, errors.Wrap(err, "removing members")
	}
	return cnt, nil
}

func (repo batchRepository) selectMembers(ctx context.Context, exec []core.DBExecutor, b sq.SelectBuilder) ([]batch.Member, error) {
	var rows []memberRow
	if err := repo.selectAll(ctx, exec, &rows, b.OrderBy("joined_at ASC", "user_id ASC")); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	members := make([]batch.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, batch.Member{BatchID: r.BatchID, UserID: r.UserID, Role: r.Role, JoinedAt: r.JoinedAt})
	}
	return members, nil
}

func (repo batchRepository) ListMembers(ctx context.Context, batchID, role string, exec ...core.DBExecutor) ([]batch.Member, error) {
	if !validUUID(batchID) {
		return []batch.Member{}, nil
	}
	b := psql.Select(memberColumns...).From("batch_member").Where(sq.Eq{"batch_id": batchID})
	if role != "" {
		b = b.Where(sq.Eq{"role": role})
	}
	return repo.selectMembers(ctx, exec, b)
}

func (repo batchRepository) ListMemberships(ctx context.Context, userID string, exec ...core.DBExecutor) ([]batch.Member, error) {
	if !validUUID(userID) {
		return []batch.Member{}, nil
	}
	return repo.selectMembers(ctx, exec, psql.Select(memberColumns...).From("batch_member").Where(sq.Eq{"user_id": userID}))
}

// Quarters

func (repo batchRepository) CreateQuarter(ctx context.Context, q batch.Quarter, exec ...core.DBExecutor) (batch.Quarter, error) {
	q.ID = uuid.New().String()
	b := psql.Insert("quarter").Columns(quarterColumns...).Values(q.ID, q.BatchID, q.Number, q.StartDate, q.EndDate)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if fkViolation(err) {
			return batch.Quarter{}, batch.ErrNotFound
		}
		return batch.Quarter{}, errors.Wrap(err, "inserting quarter")
	}
	return q, nil
}

func (repo batchRepository) ListQuarters(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]batch.Quarter, error) {
	if !validUUID(batchID) {
		return []batch.Quarter{}, nil
	}
	b := psql.Select(quarterColumns...).From("quarter").Where(sq.Eq{"batch_id": batchID}).OrderBy("number ASC")

	var rows []quarterRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying quarters")
	}
	quarters := make([]batch.Quarter, 0, len(rows))
	for _, r := range rows {
		quarters = append(quarters, batch.Quarter(r))
	}
	return quarters, nil
}

func (repo batchRepository) GetQuarter(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Quarter, error) {
	if !validUUID(id) {
		return batch.Quarter{}, batch.ErrQuarterNotFound
	}
	var row quarterRow
	if err := repo.get(ctx, exec, &row, psql.Select(quarterColumns...).From("quarter").Where(sq.Eq{"id": id})); err != nil {
		return batch.Quarter{}, trapNoRowsErr(err, batch.ErrQuarterNotFound, "finding quarter")
	}
	return batch.Quarter(row), nil
}

func (repo batchRepository) UpdateQuarter(ctx context.Context, q batch.Quarter, exec ...core.DBExecutor) (batch.Quarter, error) {
	b := psql.Update("quarter").SetMap(map[string]interface{}{
		"number":     q.Number,
		"start_date": q.StartDate,
		"end_date":   q.EndDate,
	}).Where(sq.Eq{"id": q.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return batch.Quarter{}, errors.Wrap(err, "updating quarter")
	}
	if n == 0 {
		return batch.Quarter{}, batch.ErrQuarterNotFound
	}
	return q, nil
}

func (repo batchRepository) DeleteQuarter(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return batch.ErrQuarterNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("quarter").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting quarter")
	}
	if n == 0 {
		return batch.ErrQuarterNotFound
	}
	return nil
}

// Curriculum

func (repo batchRepository) CreateSchedule(ctx context.Context, s batch.Schedule, exec ...core.DBExecutor) (batch.Schedule, error) {
	s.ID = uuid.New().String()
	b := psql.Insert("curriculum_schedule").Columns(scheduleColumns...).Values(
		s.ID, s.BatchID, s.QuarterID, s.ModuleID, s.CourseID, null.NewString(s.TrainerID, s.TrainerID != ""),
		s.StartDate, s.EndDate, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if fkViolation(err) {
			return batch.Schedule{}, batch.ErrQuarterNotFound
		}
		return batch.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return s, nil
}

func (repo batchRepository) QuerySchedules(ctx context.Context, filter batch.ScheduleFilter, exec ...core.DBExecutor) ([]batch.Schedule, error) {
	b := psql.Select(scheduleColumns...).From("curriculum_schedule")
	if filter.BatchIDs != nil {
		b = b.Where(sq.Eq{"batch_id": validUUIDs(filter.BatchIDs)})
	}
	if filter.CourseIDs != nil {
		b = b.Where(sq.Eq{"course_id": validUUIDs(filter.CourseIDs)})
	}
	if filter.QuarterID != "" {
		b = b.Where(sq.Eq{"quarter_id": validUUIDs([]string{filter.QuarterID})})
	}
	if filter.TrainerID != "" {
		b = b.Where(sq.Eq{"trainer_id": validUUIDs([]string{filter.TrainerID})})
	}
	if filter.ModuleID != "" {
		b = b.Where(sq.Eq{"module_id": validUUIDs([]string{filter.ModuleID})})
	}
	// entries overlapping [From, To]
	if !filter.From.IsZero() {
		b = b.Where(sq.GtOrEq{"end_date": filter.From})
	}
	if !filter.To.IsZero() {
		b = b.Where(sq.LtOrEq{"start_date": filter.To})
	}
	b = b.OrderBy("start_date ASC", "created_at ASC")

	var rows []scheduleRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	schedules := make([]batch.Schedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, r.unboil())
	}
	return schedules, nil
}

func (repo batchRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (batch.Schedule, error) {
	if !validUUID(id) {
		return batch.Schedule{}, batch.ErrScheduleNotFound
	}
	var row scheduleRow
	if err := repo.get(ctx, exec, &row, psql.Select(scheduleColumns...).From("curriculum_schedule").Where(sq.Eq{"id": id})); err != nil {
		return batch.Schedule{}, trapNoRowsErr(err, batch.ErrScheduleNotFound, "finding schedule")
	}
	return row.unboil(), nil
}

func (repo batchRepository) UpdateSchedule(ctx context.Context, s batch.Schedule, exec ...core.DBExecutor) (batch.Schedule, error) {
	b := psql.Update("curriculum_schedule").SetMap(map[string]interface{}{
		"quarter_id": s.QuarterID,
		"trainer_id": null.NewString(s.TrainerID, s.TrainerID != ""),
		"start_date": s.StartDate,
		"end_date":   s.EndDate,
		"updated_at": s.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": s.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		if fkViolation(err) {
			return batch.Schedule{}, batch.ErrQuarterNotFound
		}
		return batch.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n == 0 {
		return batch.Schedule{}, batch.ErrScheduleNotFound
	}
	return s, nil
}

func (repo batchRepository) DeleteSchedule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return batch.ErrScheduleNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("curriculum_schedule").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if n == 0 {
		return batch.ErrScheduleNotFound
	}
	return nil
}
