package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/app"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/staychill/booking-backend/internal/handlers"
	"github.com/staychill/booking-backend/internal/services"
	"github.com/staychill/booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Stay Chill booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := validator.RegisterGinValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	// Initialize storage, infrastructure and services
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(initCtx, cfg, logger)
	cancelInit()
	if err != nil {
		logger.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()
	logger.Info("Services initialized")

	// Background reconciliation of processing payments
	var jobs handlers.JobStatusReporter
	if cfg.Reconciliation.Enabled {
		cronService := services.NewCronService(application.Reconciliation, cfg.Reconciliation, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		defer cronService.Stop()
		jobs = cronService
	} else {
		logger.Info("Payment reconciliation sweep disabled")
	}

	var cache handlers.Pinger
	if application.Redis != nil {
		cache = handlers.PingFunc(func(ctx context.Context) error {
			return application.Redis.Ping(ctx).Err()
		})
	}

	// Initialize handlers
	router := handlers.NewRouter(handlers.Router{
		Auth:     handlers.NewAuthHandler(application.Auth, logger),
		Property: handlers.NewPropertyHandler(application.Properties, logger),
		Booking:  handlers.NewBookingHandler(application.Bookings, logger),
		Payment:  handlers.NewPaymentHandler(application.Lifecycle, application.Bookings, logger),
		Webhook:  handlers.NewWebhookHandler(application.Lifecycle, logger),
		Admin:    handlers.NewAdminHandler(application.Bookings, application.Reconciliation, application.Audit, jobs, logger),
		Health:   handlers.NewHealthHandler(application.Storage, cache, version, cfg.Database.Backend),
	}, application.JWT, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
