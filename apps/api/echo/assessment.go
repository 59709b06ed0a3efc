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
	contextAssessmentKey       = "assessment"
	errAssessmentNotFoundInCtx = errors.New("assessment object not found in echo.Context")
)

type assessmentApi struct {
	svc       assessment.Service
	courseSvc course.Service
	userSvc   user.Service
	validate  *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := assessmentApi{
		svc:       deps.AssessmentSvc,
		courseSvc: deps.CourseSvc,
		userSvc:   deps.UserSvc,
		validate:  deps.Validate,
	}

	ag := g.Group("/assessments/:id", jwt, api.assessmentVisibleMiddleware)
	ag.GET("", api.retrieve)
	ag.PUT("", api.update, staffMiddleware())
	ag.DELETE("", api.destroy, staffMiddleware())
	ag.GET("/grades", api.queryGrades, staffMiddleware())
	ag.PUT("/grades", api.recordGrades, staffMiddleware())

	gg := g.Group("/grades", jwt)
	gg.GET("/me", api.mySummaries)
	gg.GET("/trainees/:id", api.traineeSummaries)
}

// Handlers

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	a, err := contextAssessment(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) update(ctx echo.Context) error {
	a, err := contextAssessment(ctx)
	if err != nil {
		return err
	}

	var data assessment.UpdateAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err = api.svc.Update(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	a, err := contextAssessment(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) queryGrades(ctx echo.Context) error {
	a, err := contextAssessment(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.ListGrades(ctx.Request().Context(), a)
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	if grades == nil {
		grades = []assessment.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *assessmentApi) recordGrades(ctx echo.Context) error {
	a, err := contextAssessment(ctx)
	if err != nil {
		return err
	}

	var data assessment.RecordGrades
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordGrades")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	grades, err := api.svc.RecordGrades(ctx.Request().Context(), ctxUsr, a, data.Grades)
	if err != nil {
		return errors.Wrap(err, "recording grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *assessmentApi) mySummaries(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return api.summaries(ctx, ctxUsr)
}

// traineeSummaries answers the grade summaries of a trainee to staff and to the trainee themselves.
func (api *assessmentApi) traineeSummaries(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctx.Param("id") != ctxUsr.ID && !isStaff(ctx) {
		return errHttpNotFound
	}
	trainee, err := api.userSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding trainee by ID")
	}
	return api.summaries(ctx, trainee)
}

func (api *assessmentApi) summaries(ctx echo.Context, trainee user.User) error {
	if courseID := ctx.QueryParam("course_id"); courseID != "" {
		c, err := api.courseSvc.GetByID(ctx.Request().Context(), courseID)
		if err != nil {
			return errors.Wrap(err, "finding course by ID")
		}
		sum, err := api.svc.Summary(ctx.Request().Context(), trainee.ID, c.ID)
		if err != nil {
			return errors.Wrap(err, "summarizing grades")
		}
		return ctx.JSON(http.StatusOK, sum)
	}

	sums, err := api.svc.TraineeSummaries(ctx.Request().Context(), trainee.ID)
	if err != nil {
		return errors.Wrap(err, "summarizing grades")
	}
	if sums == nil {
		sums = []assessment.GradeSummary{}
	}
	return ctx.JSON(http.StatusOK, sums)
}

// assessmentVisibleMiddleware loads the assessment of the `id` path param into the context.
// Assessments of unpublished courses are hidden from trainees.
func (api *assessmentApi) assessmentVisibleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		a, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding assessment by ID")
		}
		c, err := api.courseSvc.GetByID(ctx.Request().Context(), a.CourseID)
		if err != nil {
			return errors.Wrap(err, "finding course by ID")
		}
		if err := checkCourseVisible(ctx, c); err != nil {
			return assessment.ErrNotFound
		}
		ctx.Set(contextAssessmentKey, a)
		return next(ctx)
	}
}

func contextAssessment(ctx echo.Context) (assessment.Assessment, error) {
	a, ok := ctx.Get(contextAssessmentKey).(assessment.Assessment)
	if !ok {
		return assessment.Assessment{}, errors.Wrap(errAssessmentNotFoundInCtx, "retrieving assessment from context")
	}
	return a, nil
}
