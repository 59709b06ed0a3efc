package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

type onboardingApi struct {
	svc      onboarding.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerOnboardingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := onboardingApi{
		svc:      deps.OnboardingSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	og := g.Group("/onboarding", jwt)
	og.GET("/items", api.queryItems)
	og.POST("/items", api.createItem, adminMiddleware())
	og.PUT("/items/:id", api.updateItem, adminMiddleware())
	og.DELETE("/items/:id", api.destroyItem, adminMiddleware())

	tg := og.Group("/trainees/:id", api.traineeMiddleware)
	tg.GET("", api.checklist)
	tg.PUT("/items/:item_id", api.setCompleted)
}

// Handlers

// queryItems lists the active items. Admins get the inactive ones too with `?all=true`.
func (api *onboardingApi) queryItems(ctx echo.Context) error {
	all, _ := strconv.ParseBool(ctx.QueryParam("all"))
	if all {
		claims, err := getContextClaims(ctx)
		all = err == nil && claims.IsAdmin
	}

	items, err := api.svc.ListItems(ctx.Request().Context(), all)
	if err != nil {
		return errors.Wrap(err, "listing onboarding items")
	}
	if items == nil {
		items = []onboarding.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *onboardingApi) createItem(ctx echo.Context) error {
	var data onboarding.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err := api.svc.CreateItem(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating onboarding item")
	}
	return ctx.JSON(http.StatusCreated, it)
}

func (api *onboardingApi) updateItem(ctx echo.Context) error {
	it, err := api.svc.GetItem(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding onboarding item by ID")
	}

	var data onboarding.UpdateItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err = api.svc.UpdateItem(ctx.Request().Context(), it, data)
	if err != nil {
		return errors.Wrap(err, "updating onboarding item")
	}
	return ctx.JSON(http.StatusOK, it)
}

func (api *onboardingApi) destroyItem(ctx echo.Context) error {
	if err := api.svc.DeleteItem(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting onboarding item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *onboardingApi) checklist(ctx echo.Context) error {
	trainee, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	cl, err := api.svc.Checklist(ctx.Request().Context(), trainee)
	if err != nil {
		return errors.Wrap(err, "building checklist")
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *onboardingApi) setCompleted(ctx echo.Context) error {
	trainee, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	it, err := api.svc.GetItem(ctx.Request().Context(), ctx.Param("item_id"))
	if err != nil {
		return errors.Wrap(err, "finding onboarding item by ID")
	}

	var data onboarding.SetCompleted
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetCompleted")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cl, err := api.svc.SetCompleted(ctx.Request().Context(), ctxUsr, trainee, it, data.Completed)
	if err != nil {
		return errors.Wrap(err, "setting onboarding progress")
	}
	return ctx.JSON(http.StatusOK, cl)
}

// traineeMiddleware loads the trainee of the `id` path param, visible to themselves and to staff.
func (api *onboardingApi) traineeMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
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
		ctx.Set("object", trainee)
		return next(ctx)
	}
}
