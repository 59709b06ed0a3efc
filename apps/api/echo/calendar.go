package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

type calendarApi struct {
	svc      calendar.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := calendarApi{
		svc:      deps.CalendarSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	g.GET("/calendar", api.feed, jwt)

	eg := g.Group("/events", jwt, staffMiddleware())
	eg.POST("", api.createEvent)
	eg.PUT("/:id", api.updateEvent)
	eg.DELETE("/:id", api.destroyEvent)
}

// Handlers

func (api *calendarApi) feed(ctx echo.Context) error {
	filter := new(calendar.FeedFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to FeedFilter")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	entries, err := api.svc.Feed(ctx.Request().Context(), ctxUsr, *filter)
	if err != nil {
		return errors.Wrap(err, "building calendar feed")
	}
	if entries == nil {
		entries = []calendar.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *calendarApi) createEvent(ctx echo.Context) error {
	var data calendar.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *calendarApi) updateEvent(ctx echo.Context) error {
	e, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event by ID")
	}

	var data calendar.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err = api.svc.Update(ctx.Request().Context(), ctxUsr, e, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *calendarApi) destroyEvent(ctx echo.Context) error {
	e, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, e); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}
