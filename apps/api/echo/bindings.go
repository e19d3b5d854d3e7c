package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/edutrack/core"
)

const (
	orderingParam = "ordering"
	searchParam   = "search"
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
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Filter binds the `search` query param and the equality filters named by columns;
// a column's query param has the column's name.
type Filter struct {
	core.QueryFilter
}

func (f *Filter) Bind(ctx echo.Context, columns ...string) {
	f.Search = core.CleanString(ctx.QueryParam(searchParam))
	for _, col := range columns {
		if val := core.CleanString(ctx.QueryParam(col)); val != "" {
			f.QueryFilter = f.With(col, val)
		}
	}
}

// bindQuery returns the filter and ordering of a list request.
func bindQuery(ctx echo.Context, columns ...string) (core.QueryFilter, []core.DBOrdering) {
	filter := new(Filter)
	filter.Bind(ctx, columns...)
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return filter.QueryFilter, ordering.Orderings
}

// idParam returns the `:id` path param; malformed IDs match no record.
func idParam(ctx echo.Context) (string, error) {
	id := strings.ToLower(ctx.Param("id"))
	if !core.IsUUID(id) {
		return "", errHttpNotFound
	}
	return id, nil
}
