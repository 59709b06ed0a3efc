package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code, excludedID string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkCode(code, excludedID)
}

func (repo *courseRepository) checkCode(code, excludedID string) error {
	for _, c := range repo.db.courses {
		if c.Code == code && c.ID != excludedID {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkCode(c.Code, ""); err != nil {
		return course.Course{}, err
	}
	c.ID = uuid.New().String()
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if filter != nil {
			if filter.Search != "" && !containsFold(c.Code, filter.Search) && !containsFold(c.Title, filter.Search) {
				continue
			}
			if filter.IsPublished != nil && c.IsPublished != *filter.IsPublished {
				continue
			}
		}
		courses = append(courses, c)
	}
	sortByOrdering(courses, ordering, courseField, func(a, b course.Course) bool { return a.Code < b.Code })
	return courses, nil
}

func courseField(c course.Course, field string) interface{} {
	switch field {
	case "code":
		return c.Code
	case "title":
		return c.Title
	case "is_published":
		return c.IsPublished
	case "updated_at":
		return c.UpdatedAt
	default:
		return c.CreatedAt
	}
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCoursesByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := repo.db.courses[id]; ok {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	if err := repo.checkCode(c.Code, c.ID); err != nil {
		return course.Course{}, err
	}
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	for mID, m := range repo.db.modules {
		if m.CourseID == id {
			repo.db.deleteModule(mID)
		}
	}
	for aID, a := range repo.db.assessments {
		if a.CourseID == id {
			repo.db.deleteAssessment(aID)
		}
	}
	for sID, s := range repo.db.schedules {
		if s.CourseID == id {
			delete(repo.db.schedules, sID)
		}
	}
	return nil
}

// Modules

func (repo *courseRepository) NextModulePosition(_ context.Context, courseID string, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pos := 0
	for _, m := range repo.db.modules {
		if m.CourseID == courseID && m.Position > pos {
			pos = m.Position
		}
	}
	return pos + 1, nil
}

func (repo *courseRepository) CreateModule(_ context.Context, m course.Module, _ ...core.DBExecutor) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[m.CourseID]; !ok {
		return course.Module{}, course.ErrNotFound
	}
	m.ID = uuid.New().String()
	repo.db.modules[m.ID] = m
	return m, nil
}

func sortModules(modules []course.Module) {
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Position != modules[j].Position {
			return modules[i].Position < modules[j].Position
		}
		return modules[i].CreatedAt.Before(modules[j].CreatedAt)
	})
}

func (repo *courseRepository) ListModules(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := make([]course.Module, 0)
	for _, m := range repo.db.modules {
		if m.CourseID == courseID {
			modules = append(modules, m)
		}
	}
	sortModules(modules)
	return modules, nil
}

func (repo *courseRepository) GetModule(_ context.Context, id string, _ ...core.DBExecutor) (course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.modules[id]; ok {
		return m, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *courseRepository) GetModulesByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := make([]course.Module, 0, len(ids))
	for _, id := range ids {
		if m, ok := repo.db.modules[id]; ok {
			modules = append(modules, m)
		}
	}
	return modules, nil
}

func (repo *courseRepository) UpdateModule(_ context.Context, m course.Module, _ ...core.DBExecutor) (course.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules[m.ID]; !ok {
		return course.Module{}, course.ErrModuleNotFound
	}
	repo.db.modules[m.ID] = m
	return m, nil
}

func (repo *courseRepository) DeleteModule(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return course.ErrModuleNotFound
	}
	repo.db.deleteModule(id)
	return nil
}

func (t tables) deleteModule(id string) {
	delete(t.modules, id)
	for lID, l := range t.lectures {
		if l.ModuleID == id {
			delete(t.lectures, lID)
		}
	}
	for aID, a := range t.assessments {
		if a.ModuleID == id {
			a.ModuleID = ""
			t.assessments[aID] = a
		}
	}
	for sID, s := range t.schedules {
		if s.ModuleID == id {
			delete(t.schedules, sID)
		}
	}
}

// Lectures

func (repo *courseRepository) NextLecturePosition(_ context.Context, moduleID string, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pos := 0
	for _, l := range repo.db.lectures {
		if l.ModuleID == moduleID && l.Position > pos {
			pos = l.Position
		}
	}
	return pos + 1, nil
}

func (repo *courseRepository) CreateLecture(_ context.Context, l course.Lecture, _ ...core.DBExecutor) (course.Lecture, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules[l.ModuleID]; !ok {
		return course.Lecture{}, course.ErrModuleNotFound
	}
	l.ID = uuid.New().String()
	repo.db.lectures[l.ID] = l
	return l, nil
}

func sortLectures(lectures []course.Lecture) {
	sort.Slice(lectures, func(i, j int) bool {
		if lectures[i].Position != lectures[j].Position {
			return lectures[i].Position < lectures[j].Position
		}
		return lectures[i].CreatedAt.Before(lectures[j].CreatedAt)
	})
}

func (repo *courseRepository) ListLectures(_ context.Context, moduleID string, _ ...core.DBExecutor) ([]course.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lectures := make([]course.Lecture, 0)
	for _, l := range repo.db.lectures {
		if l.ModuleID == moduleID {
			lectures = append(lectures, l)
		}
	}
	sortLectures(lectures)
	return lectures, nil
}

func (repo *courseRepository) ListCourseLectures(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	modules := make([]course.Module, 0)
	for _, m := range repo.db.modules {
		if m.CourseID == courseID {
			modules = append(modules, m)
		}
	}
	sortModules(modules)

	lectures := make([]course.Lecture, 0)
	for _, m := range modules {
		var modLectures []course.Lecture
		for _, l := range repo.db.lectures {
			if l.ModuleID == m.ID {
				modLectures = append(modLectures, l)
			}
		}
		sortLectures(modLectures)
		lectures = append(lectures, modLectures...)
	}
	return lectures, nil
}

func (repo *courseRepository) GetLecture(_ context.Context, id string, _ ...core.DBExecutor) (course.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lectures[id]; ok {
		return l, nil
	}
	return course.Lecture{}, course.ErrLectureNotFound
}

func (repo *courseRepository) UpdateLecture(_ context.Context, l course.Lecture, _ ...core.DBExecutor) (course.Lecture, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lectures[l.ID]; !ok {
		return course.Lecture{}, course.ErrLectureNotFound
	}
	repo.db.lectures[l.ID] = l
	return l, nil
}

func (repo *courseRepository) DeleteLecture(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lectures[id]; !ok {
		return course.ErrLectureNotFound
	}
	delete(repo.db.lectures, id)
	return nil
}
