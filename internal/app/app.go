// Package app assembles storage, infrastructure clients and services from
// configuration. The HTTP server and chillctl share it.
package app

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/services"
	"github.com/staychill/booking-backend/pkg/jwt"
	"github.com/staychill/booking-backend/pkg/messaging"
)

// App holds every long-lived dependency of the booking service
type App struct {
	Config *config.Config
	Logger *logrus.Logger

	Storage   database.Storage
	DB        *database.PostgresDB // nil for the memory backend
	Redis     *redis.Client        // nil when REDIS_URL is unset
	Publisher message.Publisher

	JWT            *jwt.Service
	Audit          *services.AuditService
	Events         *services.EventPublisher
	Gateway        *services.StripeService
	Lifecycle      *services.BookingLifecycleService
	Bookings       *services.BookingService
	Properties     *services.PropertyService
	Auth           *services.AuthService
	Reconciliation *services.ReconciliationService
}

// New connects storage, redis and the message broker and builds the services.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	dedup, err := a.dedupStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := messaging.NewPublisher(cfg.Broker, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Publisher = publisher

	a.JWT = jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	a.Audit = services.NewAuditService(a.Storage.Audits(), logger, cfg.Security.EnableAuditLog)
	a.Events = services.NewEventPublisher(publisher, logger)
	a.Gateway = services.NewStripeService(&cfg.Payment, logger)
	if !a.Gateway.IsConfigured() {
		logger.Warn("STRIPE_SECRET_KEY not set, payment endpoints will return 503")
	}

	lifecycleCfg := services.DefaultLifecycleConfig()
	lifecycleCfg.DefaultCurrency = cfg.Payment.DefaultCurrency
	lifecycleCfg.StorageRetries = cfg.Payment.StorageRetries

	a.Lifecycle = services.NewBookingLifecycleService(a.Storage, a.Gateway, a.Audit, dedup, a.Events, logger, lifecycleCfg)
	a.Bookings = services.NewBookingService(a.Storage, a.Storage, a.Audit, a.Events, logger)
	a.Properties = services.NewPropertyService(a.Storage, logger)
	a.Auth = services.NewAuthService(a.Storage, a.JWT, cfg.Security.BcryptCost, logger)
	a.Reconciliation = services.NewReconciliationService(
		a.Storage,
		a.Lifecycle,
		logger,
		cfg.Reconciliation.StaleAfter,
		cfg.Reconciliation.BatchSize,
	)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	if a.Config.Database.Backend == config.StorageMemory {
		a.Logger.Warn("Using in-memory storage, all data is lost on restart")
		a.Storage = database.NewMemStorage()
		return nil
	}

	db, err := database.NewConnection(a.Config.Database, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db

	if a.Config.Database.AutoMigrate {
		if _, err := database.Migrate(ctx, db, a.Logger); err != nil {
			db.Close()
			return fmt.Errorf("auto-migrate failed: %w", err)
		}
	}

	a.Storage = database.NewPostgresStorage(db)
	return nil
}

func (a *App) dedupStore(ctx context.Context) (services.WebhookDedupStore, error) {
	if a.Config.Redis.URL == "" {
		a.Logger.Info("REDIS_URL not set, webhook dedup is process-local")
		return services.NewMemoryDedupStore(a.Config.Redis.DedupTTL), nil
	}

	client, err := services.NewRedisClient(ctx, a.Config.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.Redis = client
	a.Logger.Info("Webhook dedup backed by redis")
	return services.NewRedisDedupStore(client, a.Config.Redis.DedupPrefix, a.Config.Redis.DedupTTL), nil
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close event publisher")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close redis client")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close storage")
		}
	} else if a.DB != nil {
		a.DB.Close()
	}
}
