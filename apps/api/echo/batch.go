package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	contextBatchKey       = "batch"
	errBatchNotFoundInCtx = errors.New("batch object not found in echo.Context")
)

type batchApi struct {
	svc           batch.Service
	courseSvc     course.Service
	assessmentSvc assessment.Service
	userSvc       user.Service
	validate      *validator.Validate
}

func registerBatchAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := batchApi{
		svc:           deps.BatchSvc,
		courseSvc:     deps.CourseSvc,
		assessmentSvc: deps.AssessmentSvc,
		userSvc:       deps.UserSvc,
		validate:      deps.Validate,
	}

	bg := g.Group("/batches", jwt)
	bg.GET("", api.query)
	bg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := bg.Group("/:id", api.batchVisibleMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/members", api.queryMembers)
	dg.POST("/members", api.addMembers, adminMiddleware())
	dg.DELETE("/members", api.removeMembers, adminMiddleware())
	dg.GET("/quarters", api.queryQuarters)
	dg.POST("/quarters", api.createQuarter, adminMiddleware())
	dg.POST("/quarters/generate", api.generateQuarters, adminMiddleware())
	dg.GET("/curriculum", api.querySchedules)
	dg.POST("/curriculum", api.createSchedule, adminMiddleware())
	dg.GET("/gradebook", api.gradebook, staffMiddleware())

	qg := g.Group("/quarters/:id", jwt, adminMiddleware())
	qg.PUT("", api.updateQuarter)
	qg.DELETE("", api.destroyQuarter)

	sg := g.Group("/curriculum/:id", jwt, adminMiddleware())
	sg.PUT("", api.updateSchedule)
	sg.DELETE("", api.destroySchedule)
}

// Batch handlers

func (api *batchApi) query(ctx echo.Context) error {
	filter := new(batch.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []batch.Batch{})
	}
	// trainees only see their own batches
	if !isStaff(ctx) {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		filter.MemberID = ctxUsr.ID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	batches, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	if batches == nil {
		batches = []batch.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *batchApi) create(ctx echo.Context) error {
	var data batch.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) update(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	var data batch.UpdateBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err = api.svc.Update(ctx.Request().Context(), b, data)
	if err != nil {
		return errors.Wrap(err, "updating batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) destroy(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), b.ID); err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Member handlers

func (api *batchApi) queryMembers(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}
	members, err := api.svc.ListMembers(ctx.Request().Context(), b, core.CleanString(ctx.QueryParam("role"), true))
	if err != nil {
		return errors.Wrap(err, "listing members")
	}
	if members == nil {
		members = []batch.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *batchApi) addMembers(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	var data batch.NewMembers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMembers")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	members, err := api.svc.AddMembers(ctx.Request().Context(), b, data)
	if err != nil {
		return errors.Wrap(err, "adding members")
	}
	return ctx.JSON(http.StatusCreated, members)
}

func (api *batchApi) removeMembers(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.RemoveMembers(ctx.Request().Context(), b, query.IDs); err != nil {
		return errors.Wrap(err, "removing members")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Quarter handlers

func (api *batchApi) queryQuarters(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}
	quarters, err := api.svc.ListQuarters(ctx.Request().Context(), b)
	if err != nil {
		return errors.Wrap(err, "listing quarters")
	}
	if quarters == nil {
		quarters = []batch.Quarter{}
	}
	return ctx.JSON(http.StatusOK, quarters)
}

func (api *batchApi) createQuarter(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	var data batch.NewQuarter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuarter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.CreateQuarter(ctx.Request().Context(), b, data)
	if err != nil {
		return errors.Wrap(err, "creating quarter")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *batchApi) generateQuarters(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	var data batch.GenerateQuarters
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateQuarters")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	quarters, err := api.svc.GenerateQuarters(ctx.Request().Context(), b, data.Count)
	if err != nil {
		return errors.Wrap(err, "generating quarters")
	}
	return ctx.JSON(http.StatusCreated, quarters)
}

func (api *batchApi) updateQuarter(ctx echo.Context) error {
	q, err := api.svc.GetQuarter(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quarter by ID")
	}

	var data batch.UpdateQuarter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuarter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err = api.svc.UpdateQuarter(ctx.Request().Context(), q, data)
	if err != nil {
		return errors.Wrap(err, "updating quarter")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *batchApi) destroyQuarter(ctx echo.Context) error {
	if err := api.svc.DeleteQuarter(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting quarter")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Curriculum handlers

func (api *batchApi) querySchedules(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	filter := batch.ScheduleFilter{
		BatchIDs:  []string{b.ID},
		QuarterID: core.CleanString(ctx.QueryParam("quarter_id")),
		TrainerID: core.CleanString(ctx.QueryParam("trainer_id")),
	}
	// entries active on a given day
	on, err := dateParam(ctx, "on")
	if err != nil {
		return err
	}
	filter.From, filter.To = on, on

	schedules, err := api.svc.ListSchedules(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing curriculum")
	}
	if schedules == nil {
		schedules = []batch.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *batchApi) createSchedule(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}

	var data batch.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSchedule(ctx.Request().Context(), b, data)
	if err != nil {
		return errors.Wrap(err, "scheduling module")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *batchApi) updateSchedule(ctx echo.Context) error {
	s, err := api.svc.GetSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding curriculum entry by ID")
	}

	var data batch.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err = api.svc.UpdateSchedule(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating curriculum entry")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *batchApi) destroySchedule(ctx echo.Context) error {
	if err := api.svc.DeleteSchedule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting curriculum entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *batchApi) gradebook(ctx echo.Context) error {
	b, err := contextBatch(ctx)
	if err != nil {
		return err
	}
	courseID := core.CleanString(ctx.QueryParam("course_id"))
	if courseID == "" {
		return core.NewFieldError("course_id", "this field is required")
	}
	c, err := api.courseSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	book, err := api.assessmentSvc.Gradebook(ctx.Request().Context(), b, c.ID)
	if err != nil {
		return errors.Wrap(err, "building gradebook")
	}
	return ctx.JSON(http.StatusOK, book)
}

// batchVisibleMiddleware loads the batch of the `id` path param into the context.
// Trainees only see the batches they are members of.
func (api *batchApi) batchVisibleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding batch by ID")
		}
		if !isStaff(ctx) {
			ctxUsr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			member, err := api.svc.IsMember(ctx.Request().Context(), b.ID, ctxUsr.ID, "")
			if err != nil {
				return errors.Wrap(err, "checking batch membership")
			}
			if !member {
				return batch.ErrNotFound
			}
		}
		ctx.Set(contextBatchKey, b)
		return next(ctx)
	}
}

func contextBatch(ctx echo.Context) (batch.Batch, error) {
	b, ok := ctx.Get(contextBatchKey).(batch.Batch)
	if !ok {
		return batch.Batch{}, errors.Wrap(errBatchNotFoundInCtx, "retrieving batch from context")
	}
	return b, nil
}
