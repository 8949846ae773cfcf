package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/ports"
	customMiddleware "github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	// FrontendURL is linked from the email verification result pages.
	FrontendURL string
	SiteName    string
}

type ServerDeps struct {
	UserService         ports.UserService
	AuthService         ports.AuthService
	AccountService      ports.AccountService
	VerificationService ports.VerificationService
	ResourceService     ports.ResourceService
	AuditService        ports.AuditService
	// RateLimiter bounds anonymous auth endpoints per client IP; nil disables it.
	RateLimiter    ports.RateLimiter
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	userService    ports.UserService
	authSvc        ports.AuthService
	accountSvc     ports.AccountService
	verification   ports.VerificationService
	resourceSvc    ports.ResourceService
	auditSvc       ports.AuditService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		userService:    deps.UserService,
		authSvc:        deps.AuthService,
		accountSvc:     deps.AccountService,
		verification:   deps.VerificationService,
		resourceSvc:    deps.ResourceService,
		auditSvc:       deps.AuditService,
		healthCheckers: deps.HealthCheckers,
		middleware:     customMiddleware.NewMiddlewareCollection(deps.AuthService, deps.RateLimiter, logger, httpMetrics()),
	}

	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = server.handleError

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
