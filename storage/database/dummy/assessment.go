package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessment(_ context.Context, a assessment.Assessment, _ ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.assessments[a.ID] = a
	return a, nil
}

func (repo *assessmentRepository) QueryAssessments(_ context.Context, filter *assessment.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids, courseIDs map[string]struct{}
	if filter != nil {
		if filter.IDs != nil {
			ids = idSet(filter.IDs)
		}
		if filter.CourseIDs != nil {
			courseIDs = idSet(filter.CourseIDs)
		}
	}

	assessments := make([]assessment.Assessment, 0)
	for _, a := range repo.db.assessments {
		if filter != nil {
			if _, ok := ids[a.ID]; ids != nil && !ok {
				continue
			}
			if _, ok := courseIDs[a.CourseID]; courseIDs != nil && !ok {
				continue
			}
			if filter.ModuleID != "" && a.ModuleID != filter.ModuleID {
				continue
			}
			if filter.Kind != "" && a.Kind != filter.Kind {
				continue
			}
			if filter.DueFrom != nil && (a.DueAt == nil || a.DueAt.Before(*filter.DueFrom)) {
				continue
			}
			if filter.DueTo != nil && (a.DueAt == nil || a.DueAt.After(*filter.DueTo)) {
				continue
			}
		}
		assessments = append(assessments, a)
	}
	sortByOrdering(assessments, ordering, assessmentField, func(a, b assessment.Assessment) bool {
		switch {
		case a.DueAt == nil && b.DueAt == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		case !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return assessments, nil
}

func assessmentField(a assessment.Assessment, field string) interface{} {
	switch field {
	case "title":
		return a.Title
	case "kind":
		return a.Kind
	case "weight":
		return a.Weight
	case "due_at":
		if a.DueAt == nil {
			return time.Time{}
		}
		return *a.DueAt
	default:
		return a.CreatedAt
	}
}

func (repo *assessmentRepository) GetAssessment(_ context.Context, id string, _ ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assessments[id]; ok {
		return a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) UpdateAssessment(_ context.Context, a assessment.Assessment, _ ...core.DBExecutor) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assessments[a.ID]; !ok {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	repo.db.assessments[a.ID] = a
	return a, nil
}

func (repo *assessmentRepository) DeleteAssessment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assessments[id]; !ok {
		return assessment.ErrNotFound
	}
	repo.db.deleteAssessment(id)
	return nil
}

func (t tables) deleteAssessment(id string) {
	delete(t.assessments, id)
	for gID, g := range t.grades {
		if g.AssessmentID == id {
			delete(t.grades, gID)
		}
	}
}

// LockCourse only checks the course exists: DB.RunInTx already serializes transactions.
func (repo *assessmentRepository) LockCourse(_ context.Context, courseID string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return course.ErrNotFound
	}
	return nil
}

func (repo *assessmentRepository) CourseWeight(_ context.Context, courseID, excludedID string, _ ...core.DBExecutor) (float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var total float64
	for _, a := range repo.db.assessments {
		if a.CourseID == courseID && a.ID != excludedID {
			total += a.Weight
		}
	}
	return total, nil
}

func (repo *assessmentRepository) UpsertGrade(_ context.Context, g assessment.Grade, _ ...core.DBExecutor) (assessment.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assessments[g.AssessmentID]; !ok {
		return assessment.Grade{}, assessment.ErrNotFound
	}
	for _, existing := range repo.db.grades {
		if existing.AssessmentID == g.AssessmentID && existing.TraineeID == g.TraineeID {
			g.ID = existing.ID
			break
		}
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	repo.db.grades[g.ID] = g
	return g, nil
}

func (repo *assessmentRepository) QueryGrades(_ context.Context, filter assessment.GradeFilter, _ ...core.DBExecutor) ([]assessment.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assessmentIDs, traineeIDs, courseIDs map[string]struct{}
	if filter.AssessmentIDs != nil {
		assessmentIDs = idSet(filter.AssessmentIDs)
	}
	if filter.TraineeIDs != nil {
		traineeIDs = idSet(filter.TraineeIDs)
	}
	if filter.CourseIDs != nil {
		courseIDs = idSet(filter.CourseIDs)
	}

	grades := make([]assessment.Grade, 0)
	for _, g := range repo.db.grades {
		if _, ok := assessmentIDs[g.AssessmentID]; assessmentIDs != nil && !ok {
			continue
		}
		if _, ok := traineeIDs[g.TraineeID]; traineeIDs != nil && !ok {
			continue
		}
		if _, ok := courseIDs[repo.db.assessments[g.AssessmentID].CourseID]; courseIDs != nil && !ok {
			continue
		}
		grades = append(grades, g)
	}
	sortByOrdering(grades, nil, nil, func(a, b assessment.Grade) bool {
		if !a.GradedAt.Equal(b.GradedAt) {
			return a.GradedAt.Before(b.GradedAt)
		}
		return a.TraineeID < b.TraineeID
	})
	return grades, nil
}
