package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/nav"
	"github.com/trezcool/edutrack/core/school"
	"github.com/trezcool/edutrack/core/student"
)

type dashboardApi struct {
	srv *server
}

func registerDashboardAPI(e *echo.Echo, s *server) {
	api := dashboardApi{srv: s}

	g := e.Group("/dashboard")
	g.GET("/default", api.defaultDashboard, s.requireRole())
	g.GET("/super", api.superDashboard, s.requireRole(auth.RoleSuperAdmin))
	g.GET("/school", api.schoolDashboard, s.requireRole(auth.RoleSchoolAdmin))
}

// dashboardPath is the dashboard of a role.
func dashboardPath(r auth.Role) string {
	if p := auth.DefaultPath(r); p != auth.HomePath {
		return p
	}
	return nav.DefaultDashboardPath
}

type (
	DefaultDashboard struct {
		User *auth.User `json:"user"`
		Role auth.Role  `json:"role"`
	}

	SuperDashboard struct {
		Schools school.Stats `json:"schools"`
	}

	SchoolDashboard struct {
		Students student.Stats  `json:"students"`
		Academic academic.Setup `json:"academic"`
	}
)

func (api *dashboardApi) defaultDashboard(ctx echo.Context) error {
	snap := contextSnapshot(ctx)
	return ctx.JSON(http.StatusOK, DefaultDashboard{User: snap.User, Role: snap.Role()})
}

func (api *dashboardApi) superDashboard(ctx echo.Context) error {
	stats, err := api.srv.deps.Schools.Stats(ctx.Request().Context(), contextSnapshot(ctx).Scope())
	if err != nil {
		return errors.Wrap(err, "computing school stats")
	}
	return ctx.JSON(http.StatusOK, SuperDashboard{Schools: stats})
}

func (api *dashboardApi) schoolDashboard(ctx echo.Context) error {
	scope := contextSnapshot(ctx).Scope()
	if scope.Empty() {
		return core.ErrNoTenant
	}

	var dash SchoolDashboard
	g, gctx := errgroup.WithContext(ctx.Request().Context())
	g.Go(func() (err error) {
		dash.Students, err = api.srv.deps.Students.Stats(gctx, scope)
		return errors.Wrap(err, "computing student stats")
	})
	g.Go(func() (err error) {
		dash.Academic, err = api.srv.deps.Academics.Setup(gctx, scope)
		return errors.Wrap(err, "computing academic setup")
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (s *server) navigation(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, nav.Resolve(contextSnapshot(ctx).Role(), nil))
}
