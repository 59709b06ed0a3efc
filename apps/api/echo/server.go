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

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/dashboard"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

// Deps holds everything the API handlers need.
type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc       user.Service
	CourseSvc     course.Service
	BatchSvc      batch.Service
	AssessmentSvc assessment.Service
	CalendarSvc   calendar.Service
	OnboardingSvc onboarding.Service
	DashboardSvc  dashboard.Service
}

type Server struct {
	app      *echo.Echo
	deps     *Deps
	auth     *Auth
	shutdown chan os.Signal
	errors   chan error
}

func NewServer(deps *Deps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		auth:     NewAuth(deps.Conf),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.CORSAllowOrigins}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.GET("/", home)
	if conf.Storage.IsLocal() {
		s.app.Static(conf.Storage.LocalURL, conf.Storage.LocalDir)
	}

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(api, jwt, s.auth, s.deps)
	registerCourseAPI(api, jwt, s.deps)
	registerLectureAPI(api, jwt, s.deps)
	registerAssessmentAPI(api, jwt, s.deps)
	registerBatchAPI(api, jwt, s.deps)
	registerCalendarAPI(api, jwt, s.deps)
	registerOnboardingAPI(api, jwt, s.deps)
	registerDashboardAPI(api, jwt, s.deps)
}

// Start listens on the configured address. Listener failures are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to ACTION LMS API!")
}
