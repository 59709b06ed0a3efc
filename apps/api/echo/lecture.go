package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
)

var (
	contextModuleKey  = "module"
	contextLectureKey = "lecture"
	materialField     = "file"

	errModuleNotFoundInCtx  = errors.New("module object not found in echo.Context")
	errLectureNotFoundInCtx = errors.New("lecture object not found in echo.Context")
)

type lectureApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerLectureAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := lectureApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	mg := g.Group("/modules/:id", jwt, api.moduleVisibleMiddleware)
	mg.GET("", api.retrieveModule)
	mg.PUT("", api.updateModule, staffMiddleware())
	mg.DELETE("", api.destroyModule, staffMiddleware())
	mg.GET("/lectures", api.queryLectures)
	mg.POST("/lectures", api.createLecture, staffMiddleware())

	lg := g.Group("/lectures/:id", jwt, api.lectureVisibleMiddleware)
	lg.GET("", api.retrieveLecture)
	lg.PUT("", api.updateLecture, staffMiddleware())
	lg.DELETE("", api.destroyLecture, staffMiddleware())
	lg.GET("/material", api.downloadMaterial)
	lg.POST("/material", api.uploadMaterial, staffMiddleware(), middleware.BodyLimit(deps.Conf.Server.MaxUploadSize))
	lg.DELETE("/material", api.removeMaterial, staffMiddleware())
}

// Module handlers

func (api *lectureApi) retrieveModule(ctx echo.Context) error {
	m, err := contextModule(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *lectureApi) updateModule(ctx echo.Context) error {
	m, err := contextModule(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err = api.svc.UpdateModule(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *lectureApi) destroyModule(ctx echo.Context) error {
	m, err := contextModule(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteModule(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lectureApi) queryLectures(ctx echo.Context) error {
	m, err := contextModule(ctx)
	if err != nil {
		return err
	}
	lectures, err := api.svc.ListLectures(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "listing lectures")
	}
	if lectures == nil {
		lectures = []course.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lectures)
}

func (api *lectureApi) createLecture(ctx echo.Context) error {
	m, err := contextModule(ctx)
	if err != nil {
		return err
	}

	var data course.NewLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLecture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.CreateLecture(ctx.Request().Context(), m.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating lecture")
	}
	return ctx.JSON(http.StatusCreated, l)
}

// Lecture handlers

func (api *lectureApi) retrieveLecture(ctx echo.Context) error {
	l, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lectureApi) updateLecture(ctx echo.Context) error {
	l, err := contextLecture(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLecture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err = api.svc.UpdateLecture(ctx.Request().Context(), l, data)
	if err != nil {
		return errors.Wrap(err, "updating lecture")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lectureApi) destroyLecture(ctx echo.Context) error {
	l, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteLecture(ctx.Request().Context(), l.ID); err != nil {
		return errors.Wrap(err, "deleting lecture")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Material handlers

func (api *lectureApi) uploadMaterial(ctx echo.Context) error {
	l, err := contextLecture(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile(materialField)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile || errors.Cause(err) == http.ErrNotMultipart {
			return core.NewFieldError(materialField, "this field is required")
		}
		return errors.Wrap(err, "reading multipart form")
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	l, err = api.svc.AttachMaterial(ctx.Request().Context(), l, course.MaterialUpload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  src,
	})
	if err != nil {
		return errors.Wrap(err, "attaching material")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lectureApi) downloadMaterial(ctx echo.Context) error {
	l, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	url, err := api.svc.MaterialURL(ctx.Request().Context(), l)
	if err != nil {
		return errors.Wrap(err, "getting material URL")
	}
	return ctx.Redirect(http.StatusFound, url)
}

func (api *lectureApi) removeMaterial(ctx echo.Context) error {
	l, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	if _, err := api.svc.RemoveMaterial(ctx.Request().Context(), l); err != nil {
		return errors.Wrap(err, "removing material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// moduleVisibleMiddleware loads the module of the `id` path param into the context.
// Modules of unpublished courses are hidden from trainees.
func (api *lectureApi) moduleVisibleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := api.svc.GetModule(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding module by ID")
		}
		c, err := api.svc.GetByID(ctx.Request().Context(), m.CourseID)
		if err != nil {
			return errors.Wrap(err, "finding course by ID")
		}
		if err := checkCourseVisible(ctx, c); err != nil {
			return course.ErrModuleNotFound
		}
		ctx.Set(contextModuleKey, m)
		return next(ctx)
	}
}

// lectureVisibleMiddleware loads the lecture of the `id` path param into the context.
// Lectures of unpublished courses are hidden from trainees.
func (api *lectureApi) lectureVisibleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		l, err := api.svc.GetLecture(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding lecture by ID")
		}
		c, err := api.svc.LectureCourse(ctx.Request().Context(), l)
		if err != nil {
			return errors.Wrap(err, "finding lecture course")
		}
		if err := checkCourseVisible(ctx, c); err != nil {
			return course.ErrLectureNotFound
		}
		ctx.Set(contextLectureKey, l)
		return next(ctx)
	}
}

func contextModule(ctx echo.Context) (course.Module, error) {
	m, ok := ctx.Get(contextModuleKey).(course.Module)
	if !ok {
		return course.Module{}, errors.Wrap(errModuleNotFoundInCtx, "retrieving module from context")
	}
	return m, nil
}

func contextLecture(ctx echo.Context) (course.Lecture, error) {
	l, ok := ctx.Get(contextLectureKey).(course.Lecture)
	if !ok {
		return course.Lecture{}, errors.Wrap(errLectureNotFoundInCtx, "retrieving lecture from context")
	}
	return l, nil
}
