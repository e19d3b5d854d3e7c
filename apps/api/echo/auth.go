package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
)

type authApi struct {
	srv *server
}

func registerAuthAPI(g *echo.Group, s *server) {
	api := authApi{srv: s}
	limiter := newRateLimiter(s.deps.Conf.Server.LoginRateLimit, s.deps.Conf.Server.LoginRateBurst)

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login, limiter.middleware)
	ag.POST("/password-reset", api.resetPassword, limiter.middleware)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, limiter.middleware)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken)

	// authed endpoints
	sg := ag.Group("", s.requireSession)
	sg.GET("/session", api.session)
	sg.GET("/profile", api.profile)
	sg.POST("/password", api.changePassword)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	sess, err := api.srv.deps.Identity.SignIn(rctx, data.Credentials())
	if err != nil {
		return errors.Wrap(err, "signing in")
	}

	// a new sign-in always reads a fresh profile
	api.srv.profiles.forget(sess.User.ID)
	prof := api.srv.profile(rctx, sess.User)

	snap := auth.Reduce(auth.Snapshot{}, auth.Action{Kind: auth.ActionResolved, Session: &sess, Profile: prof})
	resp := newSessionResponse(snap)
	resp.Redirect = data.Next
	if !safeRedirect(resp.Redirect) {
		resp.Redirect = auth.DefaultPath(snap.Role())
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *authApi) logout(ctx echo.Context) error {
	token := contextToken(ctx)
	if token == "" {
		return ctx.NoContent(http.StatusNoContent)
	}
	if snap := contextSnapshot(ctx); snap.Authenticated() {
		api.srv.profiles.forget(snap.User.ID)
	}
	if err := api.srv.deps.Identity.SignOut(ctx.Request().Context(), token); err != nil {
		return errors.Wrap(err, "signing out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token := contextToken(ctx)
	if token == "" {
		return errUnauthorized
	}

	sess, err := api.srv.deps.Identity.Refresh(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	snap := contextSnapshot(ctx)
	snap = auth.Reduce(snap, auth.Action{Kind: auth.ActionResolved, Session: &sess, Profile: snap.Profile})
	return ctx.JSON(http.StatusOK, newSessionResponse(snap))
}

func (api *authApi) session(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newSessionResponse(contextSnapshot(ctx)))
}

func (api *authApi) profile(ctx echo.Context) error {
	snap := contextSnapshot(ctx)
	if snap.Profile == nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, snap.Profile)
}

func (api *authApi) changePassword(ctx echo.Context) error {
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}

	rctx := ctx.Request().Context()
	snap := contextSnapshot(ctx)
	usr, err := api.srv.deps.Users.GetByID(rctx, snap.User.ID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if err = data.Validate(api.srv.deps.Validate, usr); err != nil {
		return err
	}

	sess, err := api.srv.deps.Identity.UpdatePassword(rctx, contextToken(ctx), data.Password)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	snap = auth.Reduce(snap, auth.Action{Kind: auth.ActionResolved, Session: &sess, Profile: snap.Profile})
	return ctx.JSON(http.StatusOK, newSessionResponse(snap))
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	err := api.srv.deps.Users.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Is(err, user.ErrNotFound)) {
		// do not return errors to attackers
		api.srv.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	if err := api.srv.deps.Users.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

// safeRedirect reports whether next is a local path; anything else could send the user to another site.
func safeRedirect(next string) bool {
	return strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && next != auth.LoginPath
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		// Next is the location originally requested, as carried by the login redirect.
		Next string `json:"next"`
	}

	// SessionResponse is the auth snapshot of a client.
	SessionResponse struct {
		Session   *auth.Session `json:"session"`
		User      *auth.User    `json:"user"`
		Profile   *auth.Profile `json:"profile"`
		Role      auth.Role     `json:"role"`
		Dashboard string        `json:"dashboard"`
		Redirect  string        `json:"redirect,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func newSessionResponse(snap auth.Snapshot) SessionResponse {
	return SessionResponse{
		Session:   snap.Session,
		User:      snap.User,
		Profile:   snap.Profile,
		Role:      snap.Role(),
		Dashboard: dashboardPath(snap.Role()),
	}
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.Next = core.CleanString(lr.Next)
	return validate.Struct(lr)
}

func (lr LoginRequest) Credentials() auth.Credentials {
	return auth.Credentials{Email: lr.Email, Password: lr.Password}
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
