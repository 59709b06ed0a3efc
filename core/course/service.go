package course

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrLectureNotFound = errors.New("lecture not found")
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrNoMaterial      = errors.New("lecture has no material")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists if a course other than excludedID already uses code.
		CheckCodeUniqueness(ctx context.Context, code, excludedID string, exec ...core.DBExecutor) error
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		GetCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// DeleteCourse deletes the course with its modules, lectures, assessments and curriculum entries.
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

		NextModulePosition(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error)
		CreateModule(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		ListModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)
		GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		GetModulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Module, error)
		UpdateModule(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error

		NextLecturePosition(ctx context.Context, moduleID string, exec ...core.DBExecutor) (int, error)
		CreateLecture(ctx context.Context, l Lecture, exec ...core.DBExecutor) (Lecture, error)
		ListLectures(ctx context.Context, moduleID string, exec ...core.DBExecutor) ([]Lecture, error)
		// ListCourseLectures lists the lectures of every module of a course, ordered by module then lecture position.
		ListCourseLectures(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Lecture, error)
		GetLecture(ctx context.Context, id string, exec ...core.DBExecutor) (Lecture, error)
		UpdateLecture(ctx context.Context, l Lecture, exec ...core.DBExecutor) (Lecture, error)
		DeleteLecture(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckCodeUniqueness(ctx context.Context, code, excludedID string) error
		Create(ctx context.Context, author user.User, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByIDs(ctx context.Context, ids []string) ([]Course, error)
		Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id string) error
		Tree(ctx context.Context, id string) (Tree, error)

		CreateModule(ctx context.Context, courseID string, nm NewModule) (Module, error)
		ListModules(ctx context.Context, courseID string) ([]Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		GetModulesByIDs(ctx context.Context, ids []string) ([]Module, error)
		UpdateModule(ctx context.Context, m Module, um UpdateModule) (Module, error)
		DeleteModule(ctx context.Context, id string) error

		CreateLecture(ctx context.Context, moduleID string, nl NewLecture) (Lecture, error)
		ListLectures(ctx context.Context, moduleID string) ([]Lecture, error)
		GetLecture(ctx context.Context, id string) (Lecture, error)
		// LectureCourse returns the course a lecture belongs to.
		LectureCourse(ctx context.Context, l Lecture) (Course, error)
		UpdateLecture(ctx context.Context, l Lecture, ul UpdateLecture) (Lecture, error)
		DeleteLecture(ctx context.Context, id string) error

		AttachMaterial(ctx context.Context, l Lecture, upload MaterialUpload) (Lecture, error)
		MaterialURL(ctx context.Context, l Lecture) (string, error)
		RemoveMaterial(ctx context.Context, l Lecture) (Lecture, error)
	}

	service struct {
		repo    Repository
		storage core.FileStorage
		logger  core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, storage core.FileStorage, logger core.Logger) Service {
	return &service{
		repo:    repo,
		storage: storage,
		logger:  logger,
	}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code, excludedID string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludedID); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return errors.Wrap(err, "checking course code uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, author user.User, nc NewCourse) (Course, error) {
	if err := svc.CheckCodeUniqueness(ctx, nc.Code, ""); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	c := Course{
		Code:        nc.Code,
		Title:       nc.Title,
		Description: nc.Description,
		IsPublished: nc.IsPublished,
		CreatedBy:   author.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, core.FilterOrdering(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) GetByIDs(ctx context.Context, ids []string) ([]Course, error) {
	if len(ids) == 0 {
		return []Course{}, nil
	}
	return svc.repo.GetCoursesByID(ctx, core.UniqueStrings(ids))
}

func (svc *service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	if uc.Code != "" && uc.Code != c.Code {
		if err := svc.CheckCodeUniqueness(ctx, uc.Code, c.ID); err != nil {
			return Course{}, err
		}
		c.Code = uc.Code
	}
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.IsPublished != nil {
		c.IsPublished = *uc.IsPublished
	}
	c.UpdatedAt = time.Now().UTC()
	c, err := svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	lectures, err := svc.repo.ListCourseLectures(ctx, id)
	if err != nil {
		return errors.Wrap(err, "listing course lectures")
	}
	if err := svc.repo.DeleteCourse(ctx, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.removeMaterials(ctx, lectures)
	return nil
}

func (svc *service) Tree(ctx context.Context, id string) (Tree, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Tree{}, err
	}
	modules, err := svc.repo.ListModules(ctx, id)
	if err != nil {
		return Tree{}, errors.Wrap(err, "listing modules")
	}
	lectures, err := svc.repo.ListCourseLectures(ctx, id)
	if err != nil {
		return Tree{}, errors.Wrap(err, "listing lectures")
	}

	byModule := make(map[string][]Lecture, len(modules))
	for _, l := range lectures {
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}
	tree := Tree{Course: c, Modules: make([]ModuleTree, 0, len(modules))}
	for _, m := range modules {
		lects := byModule[m.ID]
		if lects == nil {
			lects = []Lecture{}
		}
		tree.Modules = append(tree.Modules, ModuleTree{Module: m, Lectures: lects})
	}
	return tree, nil
}

// Modules

func (svc *service) CreateModule(ctx context.Context, courseID string, nm NewModule) (Module, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Module{}, err
	}
	pos, err := svc.position(nm.Position, func() (int, error) { return svc.repo.NextModulePosition(ctx, courseID) })
	if err != nil {
		return Module{}, errors.Wrap(err, "getting next module position")
	}
	now := time.Now().UTC()
	m := Module{
		CourseID:    courseID,
		Title:       nm.Title,
		Description: nm.Description,
		Position:    pos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m, err = svc.repo.CreateModule(ctx, m)
	return m, errors.Wrap(err, "creating module")
}

func (svc *service) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.ListModules(ctx, courseID)
}

func (svc *service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *service) GetModulesByIDs(ctx context.Context, ids []string) ([]Module, error) {
	if len(ids) == 0 {
		return []Module{}, nil
	}
	return svc.repo.GetModulesByID(ctx, core.UniqueStrings(ids))
}

func (svc *service) UpdateModule(ctx context.Context, m Module, um UpdateModule) (Module, error) {
	if um.Title != "" {
		m.Title = um.Title
	}
	if um.Description != nil {
		m.Description = *um.Description
	}
	if um.Position != nil {
		m.Position = *um.Position
	}
	m.UpdatedAt = time.Now().UTC()
	m, err := svc.repo.UpdateModule(ctx, m)
	return m, errors.Wrap(err, "updating module")
}

func (svc *service) DeleteModule(ctx context.Context, id string) error {
	lectures, err := svc.repo.ListLectures(ctx, id)
	if err != nil {
		return errors.Wrap(err, "listing module lectures")
	}
	if err := svc.repo.DeleteModule(ctx, id); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	svc.removeMaterials(ctx, lectures)
	return nil
}

// Lectures

func (svc *service) CreateLecture(ctx context.Context, moduleID string, nl NewLecture) (Lecture, error) {
	if _, err := svc.repo.GetModule(ctx, moduleID); err != nil {
		return Lecture{}, err
	}
	pos, err := svc.position(nl.Position, func() (int, error) { return svc.repo.NextLecturePosition(ctx, moduleID) })
	if err != nil {
		return Lecture{}, errors.Wrap(err, "getting next lecture position")
	}
	now := time.Now().UTC()
	l := Lecture{
		ModuleID:  moduleID,
		Title:     nl.Title,
		Body:      nl.Body,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l, err = svc.repo.CreateLecture(ctx, l)
	return l, errors.Wrap(err, "creating lecture")
}

func (svc *service) ListLectures(ctx context.Context, moduleID string) ([]Lecture, error) {
	if _, err := svc.repo.GetModule(ctx, moduleID); err != nil {
		return nil, err
	}
	return svc.repo.ListLectures(ctx, moduleID)
}

func (svc *service) GetLecture(ctx context.Context, id string) (Lecture, error) {
	return svc.repo.GetLecture(ctx, id)
}

func (svc *service) LectureCourse(ctx context.Context, l Lecture) (Course, error) {
	m, err := svc.repo.GetModule(ctx, l.ModuleID)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding lecture module")
	}
	return svc.repo.GetCourse(ctx, m.CourseID)
}

func (svc *service) UpdateLecture(ctx context.Context, l Lecture, ul UpdateLecture) (Lecture, error) {
	if ul.Title != "" {
		l.Title = ul.Title
	}
	if ul.Body != nil {
		l.Body = *ul.Body
	}
	if ul.Position != nil {
		l.Position = *ul.Position
	}
	l.UpdatedAt = time.Now().UTC()
	l, err := svc.repo.UpdateLecture(ctx, l)
	return l, errors.Wrap(err, "updating lecture")
}

func (svc *service) DeleteLecture(ctx context.Context, id string) error {
	l, err := svc.repo.GetLecture(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteLecture(ctx, id); err != nil {
		return errors.Wrap(err, "deleting lecture")
	}
	svc.removeMaterials(ctx, []Lecture{l})
	return nil
}

func (svc *service) position(pos *int, next func() (int, error)) (int, error) {
	if pos != nil {
		return *pos, nil
	}
	return next()
}

// removeMaterials deletes the stored materials of lectures. Failures are only logged:
// the lectures are gone already and an orphan file is harmless.
func (svc *service) removeMaterials(ctx context.Context, lectures []Lecture) {
	for _, l := range lectures {
		if l.Material == nil {
			continue
		}
		if err := svc.storage.Delete(ctx, l.Material.Key); err != nil && errors.Cause(err) != core.ErrFileNotFound {
			svc.logger.Warn(fmt.Sprintf("removing material %q: %v", l.Material.Key, err), err)
		}
	}
}
