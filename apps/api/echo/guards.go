package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/edutrack/core/auth"
)

// retryAfter is the Retry-After of the loading placeholder, in seconds.
const retryAfter = 1

type placeholderResponse struct {
	Status string `json:"status"`
}

// enforce applies a routing decision: Pending renders the loading placeholder, Redirect sends the client elsewhere.
func enforce(ctx echo.Context, d auth.Decision, next echo.HandlerFunc) error {
	switch d.Kind {
	case auth.Pending:
		ctx.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return ctx.JSON(http.StatusServiceUnavailable, placeholderResponse{Status: "loading"})
	case auth.Redirect:
		return ctx.Redirect(http.StatusFound, d.Location)
	}
	return next(ctx)
}

// requireAuth admits any signed-in user and sends the others to the login page.
func (s *server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return enforce(ctx, auth.RequireAuth(contextSnapshot(ctx), ctx.Request().URL.RequestURI()), next)
	}
}

// requireRole admits signed-in users having one of roles; no roles admits every signed-in user.
func (s *server) requireRole(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			return enforce(ctx, auth.RequireRole(contextSnapshot(ctx), roles...), next)
		}
	}
}

// requireSession guards the JSON API: unlike the page guards, it never redirects.
func (s *server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		snap := contextSnapshot(ctx)
		switch {
		case snap.Loading:
			return enforce(ctx, auth.Decision{Kind: auth.Pending}, next)
		case !snap.Authenticated():
			return errUnauthorized
		}
		return next(ctx)
	}
}
