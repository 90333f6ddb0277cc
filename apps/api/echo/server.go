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
	"github.com/pkg/errors"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/complaint"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/messaging"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/request"
	"github.com/trezcool/campusdesk/core/user"
)

type (
	// Subscriber streams the live notifications of a recipient.
	Subscriber interface {
		Subscribe(ctx context.Context, recipientID string) (<-chan notification.Notification, error)
	}

	ServerDeps struct {
		Conf            *core.Config
		Logger          core.Logger
		Validate        *validator.Validate
		Translator      ut.Translator
		UserSvc         user.Service
		AdminSvc        admin.Service
		CourseSvc       course.Service
		MessagingSvc    messaging.Service
		RequestSvc      request.Service
		ComplaintSvc    complaint.Service
		NotificationSvc notification.Service
		Resolver        *access.Resolver
		Subscriber      Subscriber // optional
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		metrics:    newMetrics(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = s.Conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", s.metrics.handler())

	jwt := middleware.JWTWithConfig(newJWTConfig(s.Conf))
	auth := []echo.MiddlewareFunc{jwt, principalMiddleware(s.Resolver)}
	authed := []echo.MiddlewareFunc{jwt, principalMiddleware(s.Resolver), firstLoginGate}

	s.registerAuthAPI(s.app.Group("/auth"), auth)
	s.registerCourseAPI(s.app.Group("/courses", authed...))
	s.registerMessagingAPI(s.app.Group("/messaging", authed...))
	s.registerRequestAPI(s.app.Group("/requests", authed...))
	s.registerComplaintAPI(s.app.Group("/complaints", authed...))
	s.registerNotificationAPI(s.app.Group("/notifications", authed...))

	ag := s.app.Group("/admin", authed...)
	ag.Use(rolesMiddleware(access.AdminRoles...))
	s.registerAdminAPI(ag)
}

func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

// Errors receives the error that stopped the server from listening.
func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives the OS signals (or the internal request) to shut the server down.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
