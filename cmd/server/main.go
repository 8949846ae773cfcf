package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/application/services"
	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/db"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/email"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/health"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/redis"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/repositories"
	"github.com/unibazzar/marketplace-api/internal/utils"
)

func newLogger(cfg *configs.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting UniBazzar API...")

	database, err := db.Open(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	version, err := database.Migrate(cfg.Server.MigrationsPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	logger.WithField("schema_version", version).Info("Database ready")

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis successfully")

	cache := redis.NewCache(redisClient, "appcache")

	userRepo := repositories.NewCachingUserRepository(repositories.NewUserRepository(database, logger), cache, cfg.Cache.UserTTL)
	universityRepo := repositories.NewCachingUniversityRepository(repositories.NewUniversityRepository(database), cache, cfg.Cache.UniversityTTL)
	tokenRepo := repositories.NewTokenRepository(
		repositories.NewTokenDBRepository(database, logger),
		repositories.NewTokenRedisRepository(redisClient, logger),
		logger,
	)
	auditRepo := repositories.NewAuditRepository(database, logger)
	resourceRepo := repositories.NewResourceRepository(database, logger)
	rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)

	var primary ports.MailTransport
	if cfg.Email.SendGridAPIKey != "" {
		primary = email.NewSendGridTransport(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, emails will only be logged")
	}
	mailer, err := email.NewDispatcher(primary, email.NewLogTransport(logger, cfg.Server.Environment == "development"), &cfg.Email, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize mail dispatcher")
	}

	tokenService, err := services.NewTokenService(tokenRepo, &cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}
	actionTokens := services.NewActionTokenService(&cfg.Verification)
	auditService := services.NewAuditService(auditRepo, logger)
	userService := services.NewUserService(userRepo, universityRepo, utils.NewPasswordPolicy(&cfg.Password), logger)

	mailLimiter := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		Limit:     cfg.RateLimit.MailRequestsPerWindow,
		Window:    cfg.RateLimit.MailWindow,
		KeyPrefix: cfg.RateLimit.KeyPrefix + ":mail",
		FailOpen:  true,
	}, logger)
	ipLimiter := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		Limit:     cfg.RateLimit.AnonRequestsPerWindow,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: cfg.RateLimit.KeyPrefix,
		FailOpen:  true,
	}, logger)

	authService := services.NewAuthService(userService, tokenService, auditService, cfg.Auth, logger)
	verificationService := services.NewVerificationService(userService, actionTokens, mailer, mailLimiter, auditService, &cfg.Verification, logger)
	accountService := services.NewAccountService(services.AccountDeps{
		Users:        userService,
		Sessions:     tokenService,
		ActionTokens: actionTokens,
		Verification: verificationService,
		Mailer:       mailer,
		MailLimiter:  mailLimiter,
		Audit:        auditService,
	}, &cfg.Verification, logger)
	resourceService := services.NewResourceService(resourceRepo, policy.DefaultTable(), auditService, logger)

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		FrontendURL:    cfg.Verification.FrontendURL,
		SiteName:       cfg.Email.SiteName,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		UserService:         userService,
		AuthService:         authService,
		AccountService:      accountService,
		VerificationService: verificationService,
		ResourceService:     resourceService,
		AuditService:        auditService,
		RateLimiter:         ipLimiter,
		HealthCheckers: []ports.HealthChecker{
			health.NewDBHealthChecker(database),
			health.NewRedisHealthChecker(redisClient),
		},
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go tokenService.RunCleanup(bgCtx, cfg.JWT.CleanupInterval)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
