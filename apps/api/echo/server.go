package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/school"
	"github.com/trezcool/edutrack/core/student"
	"github.com/trezcool/edutrack/core/user"
	"github.com/trezcool/edutrack/services/identity"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Identity       identity.Backend
		Users          user.Service
		Profiles       auth.ProfileStore // defaults to Users
		Schools        school.Service
		Academics      academic.Service
		Students       student.Service
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		profiles *profileCache
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Profiles == nil {
		deps.Profiles = deps.Users
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		profiles: newProfileCache(deps.Profiles, deps.Conf.Server.ProfileCacheSize, deps.Conf.Server.ProfileCacheTTL),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs && !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.Use(s.snapshotMiddleware)

	s.app.GET(auth.HomePath, s.home, s.requireAuth)
	s.app.GET("/nav", s.navigation, s.requireAuth)

	registerDashboardAPI(s.app, s)
	registerSchoolAPI(s.app, s)
	registerAcademicAPI(s.app, s)
	registerStudentAPI(s.app, s)

	registerAuthAPI(s.app.Group("/v1"), s)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

type homeResponse struct {
	Message   string `json:"message"`
	Dashboard string `json:"dashboard"`
}

func (s *server) home(ctx echo.Context) error {
	snap := contextSnapshot(ctx)
	return ctx.JSON(http.StatusOK, homeResponse{
		Message:   "Welcome to " + s.deps.Conf.AppName + "!",
		Dashboard: dashboardPath(snap.Role()),
	})
}
