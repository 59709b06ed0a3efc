package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core/dashboard"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

type dashboardApi struct {
	svc     dashboard.Service
	userSvc user.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := dashboardApi{svc: deps.DashboardSvc, userSvc: deps.UserSvc}
	g.GET("/dashboard", api.retrieve, jwt)
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dash, err := api.svc.Get(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
