package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
)

var (
	assessmentColumns = []string{
		"id", "course_id", "module_id", "title", "description", "kind", "max_score", "weight", "due_at",
		"created_by", "created_at", "updated_at",
	}
	gradeColumns = []string{"id", "assessment_id", "trainee_id", "score", "feedback", "graded_by", "graded_at"}
)

type assessmentRow struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	ModuleID    null.String `db:"module_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Kind        string      `db:"kind"`
	MaxScore    float64     `db:"max_score"`
	Weight      float64     `db:"weight"`
	DueAt       null.Time   `db:"due_at"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func boilAssessment(a assessment.Assessment) assessmentRow {
	row := assessmentRow{
		ID:          a.ID,
		CourseID:    a.CourseID,
		ModuleID:    null.NewString(a.ModuleID, a.ModuleID != ""),
		Title:       a.Title,
		Description: a.Description,
		Kind:        a.Kind,
		MaxScore:    a.MaxScore,
		Weight:      a.Weight,
		CreatedBy:   null.NewString(a.CreatedBy, a.CreatedBy != ""),
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
	if a.DueAt != nil {
		row.DueAt = null.TimeFrom(a.DueAt.UTC())
	}
	return row
}

func (row assessmentRow) unboil() assessment.Assessment {
	return assessment.Assessment{
		ID:          row.ID,
		CourseID:    row.CourseID,
		ModuleID:    row.ModuleID.String,
		Title:       row.Title,
		Description: row.Description,
		Kind:        row.Kind,
		MaxScore:    row.MaxScore,
		Weight:      row.Weight,
		DueAt:       row.DueAt.Ptr(),
		CreatedBy:   row.CreatedBy.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type gradeRow struct {
	ID           string      `db:"id"`
	AssessmentID string      `db:"assessment_id"`
	TraineeID    string      `db:"trainee_id"`
	Score        float64     `db:"score"`
	Feedback     string      `db:"feedback"`
	GradedBy     null.String `db:"graded_by"`
	GradedAt     time.Time   `db:"graded_at"`
}

func (row gradeRow) unboil() assessment.Grade {
	return assessment.Grade{
		ID:           row.ID,
		AssessmentID: row.AssessmentID,
		TraineeID:    row.TraineeID,
		Score:        row.Score,
		Feedback:     row.Feedback,
		GradedBy:     row.GradedBy.String,
		GradedAt:     row.GradedAt,
	}
}

type assessmentRepository struct {
	repository
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(exec core.DBExecutor) assessment.Repository {
	return &assessmentRepository{repository{exec: exec}}
}

func (repo assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	a.ID = uuid.New().String()
	row := boilAssessment(a)
	b := psql.Insert("assessment").Columns(assessmentColumns...).Values(
		row.ID, row.CourseID, row.ModuleID, row.Title, row.Description, row.Kind, row.MaxScore, row.Weight,
		row.DueAt, row.CreatedBy, row.CreatedAt, row.UpdatedAt,
	)
	if _, err := repo.execute(ctx, exec, b); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return a, nil
}

func (repo assessmentRepository) QueryAssessments(ctx context.Context, filter *assessment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]assessment.Assessment, error) {
	b := psql.Select(assessmentColumns...).From("assessment")
	if filter != nil {
		if filter.IDs != nil {
			b = b.Where(sq.Eq{"id": validUUIDs(filter.IDs)})
		}
		if filter.CourseIDs != nil {
			b = b.Where(sq.Eq{"course_id": validUUIDs(filter.CourseIDs)})
		}
		if filter.ModuleID != "" {
			b = b.Where(sq.Eq{"module_id": validUUIDs([]string{filter.ModuleID})})
		}
		if filter.Kind != "" {
			b = b.Where(sq.Eq{"kind": filter.Kind})
		}
		if filter.DueFrom != nil {
			b = b.Where(sq.GtOrEq{"due_at": filter.DueFrom.UTC()})
		}
		if filter.DueTo != nil {
			b = b.Where(sq.LtOrEq{"due_at": filter.DueTo.UTC()})
		}
	}
	b = orderBy(b, ordering, assessment.OrderingFields, "due_at ASC NULLS LAST", "created_at ASC")

	var rows []assessmentRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	assessments := make([]assessment.Assessment, 0, len(rows))
	for _, r := range rows {
		assessments = append(assessments, r.unboil())
	}
	return assessments, nil
}

func (repo assessmentRepository) GetAssessment(ctx context.Context, id string, exec ...core.DBExecutor) (assessment.Assessment, error) {
	if !validUUID(id) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	var row assessmentRow
	if err := repo.get(ctx, exec, &row, psql.Select(assessmentColumns...).From("assessment").Where(sq.Eq{"id": id})); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "finding assessment")
	}
	return row.unboil(), nil
}

func (repo assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment, exec ...core.DBExecutor) (assessment.Assessment, error) {
	row := boilAssessment(a)
	b := psql.Update("assessment").SetMap(map[string]interface{}{
		"module_id":   row.ModuleID,
		"title":       row.Title,
		"description": row.Description,
		"kind":        row.Kind,
		"max_score":   row.MaxScore,
		"weight":      row.Weight,
		"due_at":      row.DueAt,
		"updated_at":  row.UpdatedAt,
	}).Where(sq.Eq{"id": row.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	if n == 0 {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	return a, nil
}

func (repo assessmentRepository) DeleteAssessment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validUUID(id) {
		return assessment.ErrNotFound
	}
	n, err := repo.execute(ctx, exec, psql.Delete("assessment").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	if n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (repo assessmentRepository) LockCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	if !validUUID(courseID) {
		return course.ErrNotFound
	}
	b := psql.Select("id").From("course").Where(sq.Eq{"id": courseID}).Suffix("FOR UPDATE")

	var id string
	return trapNoRowsErr(repo.get(ctx, exec, &id, b), course.ErrNotFound, "locking course")
}

func (repo assessmentRepository) CourseWeight(ctx context.Context, courseID, excludedID string, exec ...core.DBExecutor) (float64, error) {
	b := psql.Select("COALESCE(SUM(weight), 0)").From("assessment").Where(sq.Eq{"course_id": courseID})
	if validUUID(excludedID) {
		b = b.Where(sq.NotEq{"id": excludedID})
	}

	var total float64
	if err := repo.get(ctx, exec, &total, b); err != nil {
		return 0, errors.Wrap(err, "summing course weights")
	}
	return total, nil
}

func (repo assessmentRepository) UpsertGrade(ctx context.Context, g assessment.Grade, exec ...core.DBExecutor) (assessment.Grade, error) {
	b := psql.Insert("grade").Columns(gradeColumns...).Values(
		uuid.New().String(), g.AssessmentID, g.TraineeID, g.Score, g.Feedback,
		null.NewString(g.GradedBy, g.GradedBy != ""), g.GradedAt.UTC(),
	).Suffix(
		"ON CONFLICT (assessment_id, trainee_id) DO UPDATE SET " +
			"score = EXCLUDED.score, feedback = EXCLUDED.feedback, graded_by = EXCLUDED.graded_by, graded_at = EXCLUDED.graded_at " +
			"RETURNING id",
	)

	var id string
	if err := repo.get(ctx, exec, &id, b); err != nil {
		if fkViolation(err) {
			return assessment.Grade{}, assessment.ErrNotFound
		}
		return assessment.Grade{}, errors.Wrap(err, "upserting grade")
	}
	g.ID = id
	return g, nil
}

func (repo assessmentRepository) QueryGrades(ctx context.Context, filter assessment.GradeFilter, exec ...core.DBExecutor) ([]assessment.Grade, error) {
	cols := make([]string, 0, len(gradeColumns))
	for _, c := range gradeColumns {
		cols = append(cols, "g."+c)
	}
	b := psql.Select(cols...).From("grade g")
	if filter.AssessmentIDs != nil {
		b = b.Where(sq.Eq{"g.assessment_id": validUUIDs(filter.AssessmentIDs)})
	}
	if filter.TraineeIDs != nil {
		b = b.Where(sq.Eq{"g.trainee_id": validUUIDs(filter.TraineeIDs)})
	}
	if filter.CourseIDs != nil {
		b = b.Join("assessment a ON a.id = g.assessment_id").
			Where(sq.Eq{"a.course_id": validUUIDs(filter.CourseIDs)})
	}
	b = b.OrderBy("g.graded_at ASC", "g.trainee_id ASC")

	var rows []gradeRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]assessment.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.unboil())
	}
	return grades, nil
}
