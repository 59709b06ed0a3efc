package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublished bool      `json:"is_published"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Module struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Lecture struct {
	ID        string    `json:"id"`
	ModuleID  string    `json:"module_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Position  int       `json:"position"`
	Material  *Material `json:"material"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Material is the file attached to a Lecture. Key locates it in the file storage.
type Material struct {
	Key         string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Tree is a Course with its modules and their lectures, all ordered by position.
type Tree struct {
	Course
	Modules []ModuleTree `json:"modules"`
}

type ModuleTree struct {
	Module
	Lectures []Lecture `json:"lectures"`
}

type NewCourse struct {
	Code        string `json:"code" validate:"required,max=30,alphanum_"`
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = cleanCode(nc.Code)
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty or nil fields are left untouched.
type UpdateCourse struct {
	Code        string  `json:"code" validate:"omitempty,max=30,alphanum_"`
	Title       string  `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"is_published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Code = cleanCode(uc.Code)
	uc.Title = core.CleanString(uc.Title)
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	return validate.Struct(uc)
}

type NewModule struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	Position    *int   `json:"position" validate:"omitempty,min=1"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

type UpdateModule struct {
	Title       string  `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Position    *int    `json:"position" validate:"omitempty,min=1"`
}

func (um *UpdateModule) Validate(validate *validator.Validate) error {
	um.Title = core.CleanString(um.Title)
	if um.Description != nil {
		desc := core.CleanString(*um.Description)
		um.Description = &desc
	}
	return validate.Struct(um)
}

type NewLecture struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Body     string `json:"body"`
	Position *int   `json:"position" validate:"omitempty,min=1"`
}

func (nl *NewLecture) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type UpdateLecture struct {
	Title    string  `json:"title" validate:"omitempty,max=200"`
	Body     *string `json:"body"`
	Position *int    `json:"position" validate:"omitempty,min=1"`
}

func (ul *UpdateLecture) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanString(ul.Title)
	return validate.Struct(ul)
}

type QueryFilter struct {
	Search      string `query:"search"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields are the Course fields that can be ordered by.
var OrderingFields = []string{"code", "title", "is_published", "created_at", "updated_at"}

// cleanCode upper-cases course codes and joins their words with underscores.
func cleanCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), "_"))
}
