package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

var (
	orderingParam = "ordering"
	invalidTime   = "invalid date-time, RFC3339 expected"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// timeParam parses the RFC3339 query param name. A missing param is the zero time.
func timeParam(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewFieldError(name, invalidTime)
	}
	return t.UTC(), nil
}

func timeParamPtr(ctx echo.Context, name string) (*time.Time, error) {
	t, err := timeParam(ctx, name)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

// dateParam parses the YYYY-MM-DD query param name. A missing param is the zero date.
func dateParam(ctx echo.Context, name string) (core.Date, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(val)
	if err != nil {
		return core.Date{}, core.NewFieldError(name, "invalid date, YYYY-MM-DD expected")
	}
	return d, nil
}
