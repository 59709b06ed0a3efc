package course_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	return vErr.Fields
}

func TestService_Courses(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	author := app.Trainer(t, "author")

	java := app.Course(t, author, "JAVA101", true)
	sql := app.Course(t, author, "SQL101", false)
	assert.Equal(t, author.ID, java.CreatedBy)

	_, err := app.CourseSvc.Create(ctx, author, course.NewCourse{Code: "JAVA101", Title: "Again"})
	assert.Equal(t, []core.FieldError{{Field: "code", Error: course.ErrCodeExists.Error()}}, fieldErrors(t, err))

	t.Run("update", func(t *testing.T) {
		_, err := app.CourseSvc.Update(ctx, sql, course.UpdateCourse{Code: "JAVA101"})
		assert.Equal(t, []core.FieldError{{Field: "code", Error: course.ErrCodeExists.Error()}}, fieldErrors(t, err))

		published := true
		desc := "Tables and joins"
		updated, err := app.CourseSvc.Update(ctx, sql, course.UpdateCourse{Code: "SQL101", Description: &desc, IsPublished: &published})
		require.NoError(t, err)
		assert.Equal(t, "SQL101", updated.Code)
		assert.Equal(t, sql.Title, updated.Title)
		assert.Equal(t, desc, updated.Description)
		assert.True(t, updated.IsPublished)
	})

	t.Run("query", func(t *testing.T) {
		published := false
		courses, err := app.CourseSvc.Query(ctx, &course.QueryFilter{IsPublished: &published}, nil)
		require.NoError(t, err)
		assert.Empty(t, courses)

		courses, err = app.CourseSvc.Query(ctx, &course.QueryFilter{Search: " sql "}, nil)
		require.NoError(t, err)
		if assert.Len(t, courses, 1) {
			assert.Equal(t, sql.ID, courses[0].ID)
		}

		got, err := app.CourseSvc.GetByIDs(ctx, []string{java.ID, java.ID, sql.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("tree", func(t *testing.T) {
		_, err := app.CourseSvc.CreateModule(ctx, "nope", course.NewModule{Title: "Lost"})
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
		_, err = app.CourseSvc.CreateLecture(ctx, "nope", course.NewLecture{Title: "Lost"})
		assert.Equal(t, course.ErrModuleNotFound, errors.Cause(err))

		syntax := app.Module(t, java.ID, "Syntax")
		app.Module(t, java.ID, "Intro")
		empty := app.Module(t, java.ID, "Empty")
		assert.Equal(t, 3, empty.Position)
		last := 5
		syntax, err = app.CourseSvc.UpdateModule(ctx, syntax, course.UpdateModule{Position: &last})
		require.NoError(t, err)
		assert.Equal(t, "Syntax", syntax.Title)

		vars, err := app.CourseSvc.CreateLecture(ctx, syntax.ID, course.NewLecture{Title: "Variables"})
		require.NoError(t, err)
		loops, err := app.CourseSvc.CreateLecture(ctx, syntax.ID, course.NewLecture{Title: "Loops"})
		require.NoError(t, err)
		assert.Equal(t, 1, vars.Position)
		assert.Equal(t, 2, loops.Position)

		c, err := app.CourseSvc.LectureCourse(ctx, loops)
		require.NoError(t, err)
		assert.Equal(t, java.ID, c.ID)

		tree, err := app.CourseSvc.Tree(ctx, java.ID)
		require.NoError(t, err)
		assert.Equal(t, java.ID, tree.ID)
		require.Len(t, tree.Modules, 3)
		assert.Equal(t, "Intro", tree.Modules[0].Title)
		assert.Equal(t, []course.Lecture{}, tree.Modules[0].Lectures)
		assert.Equal(t, "Empty", tree.Modules[1].Title)
		assert.Equal(t, "Syntax", tree.Modules[2].Title)
		if assert.Len(t, tree.Modules[2].Lectures, 2) {
			assert.Equal(t, vars.ID, tree.Modules[2].Lectures[0].ID)
			assert.Equal(t, loops.ID, tree.Modules[2].Lectures[1].ID)
		}

		require.NoError(t, app.CourseSvc.DeleteModule(ctx, syntax.ID))
		_, err = app.CourseSvc.GetLecture(ctx, vars.ID)
		assert.Equal(t, course.ErrLectureNotFound, errors.Cause(err))
	})
}

func upload(name, content string) course.MaterialUpload {
	return course.MaterialUpload{Filename: name, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func readFile(t *testing.T, store core.FileStorage, key string) string {
	t.Helper()
	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestService_Materials(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	author := app.Trainer(t, "author")

	c := app.Course(t, author, "GO101", true)
	m := app.Module(t, c.ID, "Basics")
	l, err := app.CourseSvc.CreateLecture(ctx, m.ID, course.NewLecture{Title: "Slides"})
	require.NoError(t, err)

	_, err = app.CourseSvc.MaterialURL(ctx, l)
	assert.Equal(t, course.ErrNoMaterial, errors.Cause(err))
	_, err = app.CourseSvc.RemoveMaterial(ctx, l)
	assert.Equal(t, course.ErrNoMaterial, errors.Cause(err))

	t.Run("rejected uploads", func(t *testing.T) {
		_, err := app.CourseSvc.AttachMaterial(ctx, l, upload("empty.txt", ""))
		assert.Equal(t, []core.FieldError{{Field: "file", Error: course.ErrEmptyFile.Error()}}, fieldErrors(t, err))

		elf := "\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x3e\x00"
		_, err = app.CourseSvc.AttachMaterial(ctx, l, upload("slides.pdf", elf))
		assert.Equal(t, []core.FieldError{{Field: "file", Error: course.ErrUnsupportedFileType.Error()}}, fieldErrors(t, err))
	})

	pdf := "%PDF-1.4\n" + strings.Repeat("0", 4096) + "\n%%EOF"
	l, err = app.CourseSvc.AttachMaterial(ctx, l, upload("dir/Slides.pdf", pdf))
	require.NoError(t, err)
	require.NotNil(t, l.Material)
	pdfKey := l.Material.Key
	assert.Equal(t, "Slides.pdf", l.Material.Filename)
	assert.Equal(t, "application/pdf", l.Material.ContentType)
	assert.Equal(t, int64(len(pdf)), l.Material.Size)
	assert.True(t, strings.HasPrefix(pdfKey, "lectures/"+l.ID+"/"))
	assert.True(t, strings.HasSuffix(pdfKey, ".pdf"))
	// the sniffed header is stored along with the rest
	assert.Equal(t, pdf, readFile(t, app.Storage, pdfKey))

	url, err := app.CourseSvc.MaterialURL(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, "/media/"+pdfKey, url)

	t.Run("replace", func(t *testing.T) {
		notes := "# Notes\nGo is fun.\n"
		l, err = app.CourseSvc.AttachMaterial(ctx, l, upload("notes.md", notes))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(l.Material.Key, ".md"))
		assert.Equal(t, notes, readFile(t, app.Storage, l.Material.Key))

		_, err = app.Storage.Open(ctx, pdfKey)
		assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))
	})

	t.Run("remove", func(t *testing.T) {
		key := l.Material.Key
		l, err = app.CourseSvc.RemoveMaterial(ctx, l)
		require.NoError(t, err)
		assert.Nil(t, l.Material)
		_, err = app.Storage.Open(ctx, key)
		assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))
	})

	t.Run("deleting the course removes its materials", func(t *testing.T) {
		l, err = app.CourseSvc.AttachMaterial(ctx, l, upload("notes.txt", "plain notes"))
		require.NoError(t, err)
		key := l.Material.Key

		require.NoError(t, app.CourseSvc.Delete(ctx, c.ID))
		_, err = app.CourseSvc.GetLecture(ctx, l.ID)
		assert.Equal(t, course.ErrLectureNotFound, errors.Cause(err))
		_, err = app.Storage.Open(ctx, key)
		assert.Equal(t, core.ErrFileNotFound, errors.Cause(err))
	})
}
