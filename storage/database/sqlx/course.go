package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
)

var (
	courseColumns  = []string{"id", "code", "title", "description", "is_published", "created_by", "created_at", "updated_at"}
	moduleColumns  = []string{"id", "course_id", "title", "description", "position", "created_at", "updated_at"}
	lectureColumns = []string{
		"id", "module_id", "title", "body", "position", "material_key", "material_filename", "material_type",
		"material_size", "material_uploaded_at", "created_at", "updated_at",
	}
)

type courseRow struct {
	ID          string      `db:"id"`
	Code        string      `db:"code"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	IsPublished bool        `db:"is_published"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row courseRow) unboil() course.Course {
	return course.Course{
		ID:          row.ID,
		Code:        row.Code,
		Title:       row.Title,
		Description: row.Description,
		IsPublished: row.IsPublished,
		CreatedBy:   row.CreatedBy.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type moduleRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Position    int       `db:"position"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row moduleRow) unboil() course.Module {
	return course.Module(row)
}

type lectureRow struct {
	ID                 string      `db:"id"`
	ModuleID           string      `db:"module_id"`
	Title              string      `db:"title"`
	Body               string      `db:"body"`
	Position           int         `db:"position"`
	MaterialKey        null.String `db:"material_key"`
	MaterialFilename   null.String `db:"material_filename"`
	MaterialType       null.String `db:"material_type"`
	MaterialSize       null.Int64  `db:"material_size"`
	MaterialUploadedAt null.Time   `db:"material_uploaded_at"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func boilLecture(l course.Lecture) lectureRow {
	row := lectureRow{
		ID:        l.ID,
		ModuleID:  l.ModuleID,
		Title:     l.Title,
		Body:      l.Body,
		Position:  l.Position,
		CreatedAt: l.CreatedAt.UTC(),
		UpdatedAt: l.UpdatedAt.UTC(),
	}
	if m := l.Material; m != nil {
		row.MaterialKey = null.StringFrom(m.Key)
		row.MaterialFilename = null.StringFrom(m.Filename)
		row.MaterialType = null.StringFrom(m.ContentType)
		row.MaterialSize = null.Int64From(m.Size)
		row.MaterialUploadedAt = null.TimeFrom(m.UploadedAt.UTC())
	}
	return row
}

func (row lectureRow) unboil() course.Lecture {
	l := course.Lecture{
		ID:        row.ID,
		ModuleID:  row.ModuleID,
		Title:     row.Title,
		Body:      row.Body,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.MaterialKey.Valid {
		l.Material = &course.Material{
			Key:         row.MaterialKey.String,
			Filename:    row.MaterialFilename.String,
			ContentType: row.MaterialType.String,
			Size:        row.MaterialSize.Int64,
			UploadedAt:  row.MaterialUploadedAt.Time,
		}
	}
	return l
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) course.Repository {
	return &courseRepository{repository{exec: exec}}
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code, excludedID string, exec ...core.DBExecutor) error {
	b := psql.Select("1").Prefix("SELECT EXISTS (").From("course").Where(sq.Eq{"code": code}).Suffix(")")
	if validUUID(excludedID) {
		b = b.Where(sq.NotEq{"id": excludedID})
	}

	var exists bool
	if err := repo.get(ctx, exec, &exists, b); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	c.ID = uuid.New().String()
	b := psql.Insert("course").Columns(courseColumns...).Values(
		c.ID, c.Code, c.Title, c.Description, c.IsPublished, null.NewString(c.CreatedBy, c.CreatedBy != ""),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	b := psql.Select(courseColumns...).From("course")
	if filter != nil {
		if filter.Search != "" {
			b = b.Where(likeAny([]string{"code", "title"}, filter.Search))
		}
		if filter.IsPublished != nil {
			b = b.Where(sq.Eq{"is_published": *filter.IsPublished})
		}
	}
	b = orderBy(b, ordering, course.OrderingFields, "code ASC")
	return repo.selectCourses(ctx, exec, b)
}

func (repo courseRepository) selectCourses(ctx context.Context, exec []core.DBExecutor, b sq.SelectBuilder) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unboil())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if !validUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.get(ctx, exec, &row, psql.Select(courseColumns...).From("course").Where(sq.Eq{"id": id})); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.unboil(), nil
}

func (repo courseRepository) GetCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]course.Course, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []course.Course{}, nil
	}
	return repo.selectCourses(ctx, exec, psql.Select(courseColumns...).From("course").Where(sq.Eq{"id": ids}).OrderBy("code ASC"))
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	b := psql.Update("course").SetMap(map[string]interface{}{
		"code":         c.Code,
		"title":        c.Title,
		"description":  c.Description,
		"is_published": c.IsPublished,
		"updated_at":   c.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": c.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

// DeleteCourse relies on ON DELETE CASCADE for modules, lectures, assessments and schedules.
func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return course.ErrNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("course").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

// Modules

func (repo courseRepository) NextModulePosition(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	var pos int
	b := psql.Select("COALESCE(MAX(position), 0) + 1").From("course_module").Where(sq.Eq{"course_id": courseID})
	if err := repo.get(ctx, exec, &pos, b); err != nil {
		return 0, errors.Wrap(err, "computing module position")
	}
	return pos, nil
}

func (repo courseRepository) CreateModule(ctx context.Context, m course.Module, exec ...core.DBExecutor) (course.Module, error) {
	m.ID = uuid.New().String()
	b := psql.Insert("course_module").Columns(moduleColumns...).Values(
		m.ID, m.CourseID, m.Title, m.Description, m.Position, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if fkViolation(err) {
			return course.Module{}, course.ErrNotFound
		}
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo courseRepository) selectModules(ctx context.Context, exec []core.DBExecutor, b sq.SelectBuilder) ([]course.Module, error) {
	var rows []moduleRow
	if err := repo.selectAll(ctx, exec, &rows, b.OrderBy("position ASC", "created_at ASC")); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for _, r := range rows {
		modules = append(modules, r.unboil())
	}
	return modules, nil
}

func (repo courseRepository) ListModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Module, error) {
	if !validUUID(courseID) {
		return []course.Module{}, nil
	}
	return repo.selectModules(ctx, exec, psql.Select(moduleColumns...).From("course_module").Where(sq.Eq{"course_id": courseID}))
}

func (repo courseRepository) GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (course.Module, error) {
	if !validUUID(id) {
		return course.Module{}, course.ErrModuleNotFound
	}
	var row moduleRow
	if err := repo.get(ctx, exec, &row, psql.Select(moduleColumns...).From("course_module").Where(sq.Eq{"id": id})); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "finding module")
	}
	return row.unboil(), nil
}

func (repo courseRepository) GetModulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]course.Module, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []course.Module{}, nil
	}
	return repo.selectModules(ctx, exec, psql.Select(moduleColumns...).From("course_module").Where(sq.Eq{"id": ids}))
}

func (repo courseRepository) UpdateModule(ctx context.Context, m course.Module, exec ...core.DBExecutor) (course.Module, error) {
	b := psql.Update("course_module").SetMap(map[string]interface{}{
		"title":       m.Title,
		"description": m.Description,
		"position":    m.Position,
		"updated_at":  m.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": m.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return course.Module{}, errors.Wrap(err, "updating module")
	}
	if n == 0 {
		return course.Module{}, course.ErrModuleNotFound
	}
	return m, nil
}

func (repo courseRepository) DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return course.ErrModuleNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("course_module").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	if n == 0 {
		return course.ErrModuleNotFound
	}
	return nil
}

// Lectures

func (repo courseRepository) NextLecturePosition(ctx context.Context, moduleID string, exec ...core.DBExecutor) (int, error) {
	var pos int
	b := psql.Select("COALESCE(MAX(position), 0) + 1").From("lecture").Where(sq.Eq{"module_id": moduleID})
	if err := repo.get(ctx, exec, &pos, b); err != nil {
		return 0, errors.Wrap(err, "computing lecture position")
	}
	return pos, nil
}

func (repo courseRepository) CreateLecture(ctx context.Context, l course.Lecture, exec ...core.DBExecutor) (course.Lecture, error) {
	l.ID = uuid.New().String()
	row := boilLecture(l)
	b := psql.Insert("lecture").Columns(lectureColumns...).Values(
		row.ID, row.ModuleID, row.Title, row.Body, row.Position, row.MaterialKey, row.MaterialFilename,
		row.MaterialType, row.MaterialSize, row.MaterialUploadedAt, row.CreatedAt, row.UpdatedAt,
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		if fkViolation(err) {
			return course.Lecture{}, course.ErrModuleNotFound
		}
		return course.Lecture{}, errors.Wrap(err, "inserting lecture")
	}
	return l, nil
}

func (repo courseRepository) selectLectures(ctx context.Context, exec []core.DBExecutor, b sq.SelectBuilder) ([]course.Lecture, error) {
	var rows []lectureRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying lectures")
	}
	lectures := make([]course.Lecture, 0, len(rows))
	for _, r := range rows {
		lectures = append(lectures, r.unboil())
	}
	return lectures, nil
}

func (repo courseRepository) ListLectures(ctx context.Context, moduleID string, exec ...core.DBExecutor) ([]course.Lecture, error) {
	if !validUUID(moduleID) {
		return []course.Lecture{}, nil
	}
	b := psql.Select(lectureColumns...).From("lecture").
		Where(sq.Eq{"module_id": moduleID}).
		OrderBy("position ASC", "created_at ASC")
	return repo.selectLectures(ctx, exec, b)
}

func (repo courseRepository) ListCourseLectures(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Lecture, error) {
	if !validUUID(courseID) {
		return []course.Lecture{}, nil
	}
	cols := make([]string, 0, len(lectureColumns))
	for _, c := range lectureColumns {
		cols = append(cols, "l."+c)
	}
	b := psql.Select(cols...).From("lecture l").
		Join("course_module m ON m.id = l.module_id").
		Where(sq.Eq{"m.course_id": courseID}).
		OrderBy("m.position ASC", "m.created_at ASC", "l.position ASC", "l.created_at ASC")
	return repo.selectLectures(ctx, exec, b)
}

func (repo courseRepository) GetLecture(ctx context.Context, id string, exec ...core.DBExecutor) (course.Lecture, error) {
	if !validUUID(id) {
		return course.Lecture{}, course.ErrLectureNotFound
	}
	var row lectureRow
	if err := repo.get(ctx, exec, &row, psql.Select(lectureColumns...).From("lecture").Where(sq.Eq{"id": id})); err != nil {
		return course.Lecture{}, trapNoRowsErr(err, course.ErrLectureNotFound, "finding lecture")
	}
	return row.unboil(), nil
}

func (repo courseRepository) UpdateLecture(ctx context.Context, l course.Lecture, exec ...core.DBExecutor) (course.Lecture, error) {
	row := boilLecture(l)
	b := psql.Update("lecture").SetMap(map[string]interface{}{
		"title":                row.Title,
		"body":                 row.Body,
		"position":             row.Position,
		"material_key":         row.MaterialKey,
		"material_filename":    row.MaterialFilename,
		"material_type":        row.MaterialType,
		"material_size":        row.MaterialSize,
		"material_uploaded_at": row.MaterialUploadedAt,
		"updated_at":           row.UpdatedAt,
	}).Where(sq.Eq{"id": row.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return course.Lecture{}, errors.Wrap(err, "updating lecture")
	}
	if n == 0 {
		return course.Lecture{}, course.ErrLectureNotFound
	}
	return l, nil
}

func (repo courseRepository) DeleteLecture(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return course.ErrLectureNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("lecture").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting lecture")
	}
	if n == 0 {
		return course.ErrLectureNotFound
	}
	return nil
}
