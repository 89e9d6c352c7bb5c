package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokensmith/api/handler"
	"tokensmith/api/routes"
	"tokensmith/config"
	"tokensmith/internal/entity"
	"tokensmith/internal/repository"
	"tokensmith/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	validate := validator.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	db, err := config.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Token{},
		&entity.RateLimitRecord{},
		&entity.AuditLog{},
	); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	rateRepo := repository.NewRateLimitRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	emailSender := service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL)

	tokenService := service.NewTokenService(
		db,
		userRepo,
		tokenRepo,
		rateRepo,
		auditRepo,
		emailSender,
		logger,
		service.RealClock{},
		service.Config{
			TokenTTL:         cfg.TokenTTL,
			TokenMaxUses:     cfg.TokenMaxUses,
			RateLimitMax:     cfg.RateLimitMax,
			RateLimitWindow:  cfg.RateLimitWindow,
			JanitorInterval:  cfg.JanitorInterval,
			RateLogRetention: cfg.RateLogRetention,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := service.NewJanitor(
		tokenRepo,
		rateRepo,
		logger,
		service.RealClock{},
		cfg.JanitorInterval,
		cfg.RateLogRetention,
	)
	go janitor.Run(ctx)

	tokenHandler := handler.NewTokenHandler(tokenService, validate, service.BcryptPasswordHasher{})

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	router := routes.NewRouter(app, tokenHandler)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("shutdown failed")
		}
	}()

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("server stopped")
	}
	logger.Info("server stopped")
}
