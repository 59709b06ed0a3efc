package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	contextCourseKey       = "course"
	errCourseNotFoundInCtx = errors.New("course object not found in echo.Context")
)

type courseApi struct {
	svc           course.Service
	assessmentSvc assessment.Service
	userSvc       user.Service
	validate      *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := courseApi{
		svc:           deps.CourseSvc,
		assessmentSvc: deps.AssessmentSvc,
		userSvc:       deps.UserSvc,
		validate:      deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", courseVisibleMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware())
	dg.DELETE("", api.destroy, staffMiddleware())
	dg.GET("/tree", api.tree)
	dg.GET("/modules", api.queryModules)
	dg.POST("/modules", api.createModule, staffMiddleware())
	dg.GET("/assessments", api.queryAssessments)
	dg.POST("/assessments", api.createAssessment, staffMiddleware())
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	// trainees only see published courses
	if !isStaff(ctx) {
		published := true
		filter.IsPublished = &published
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) tree(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	tree, err := api.svc.Tree(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "building course tree")
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *courseApi) queryModules(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	modules, err := api.svc.ListModules(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	if modules == nil {
		modules = []course.Module{}
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *courseApi) createModule(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.CreateModule(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseApi) queryAssessments(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	filter := new(assessment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assessment.Assessment{})
	}
	filter.CourseIDs = []string{c.ID}
	if filter.DueFrom, err = timeParamPtr(ctx, "due_from"); err != nil {
		return err
	}
	if filter.DueTo, err = timeParamPtr(ctx, "due_to"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	assessments, err := api.assessmentSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	if assessments == nil {
		assessments = []assessment.Assessment{}
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *courseApi) createAssessment(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.assessmentSvc.Create(ctx.Request().Context(), ctxUsr, c, data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// courseVisibleMiddleware loads the course of the `id` path param into the context.
// Unpublished courses are hidden from trainees.
func courseVisibleMiddleware(svc course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding course by ID")
			}
			if err := checkCourseVisible(ctx, c); err != nil {
				return err
			}
			ctx.Set(contextCourseKey, c)
			return next(ctx)
		}
	}
}

func checkCourseVisible(ctx echo.Context, c course.Course) error {
	if !c.IsPublished && !isStaff(ctx) {
		return course.ErrNotFound
	}
	return nil
}

func contextCourse(ctx echo.Context) (course.Course, error) {
	c, ok := ctx.Get(contextCourseKey).(course.Course)
	if !ok {
		return course.Course{}, errors.Wrap(errCourseNotFoundInCtx, "retrieving course from context")
	}
	return c, nil
}
