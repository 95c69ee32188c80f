package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/storefront-api/internal/config"
	"github.com/prperemyshlev/storefront-api/pkg/database"
	"github.com/prperemyshlev/storefront-api/pkg/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "storefront-api"

// Infrastructure owns every long-lived connection the application depends on
type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	// AMQP is nil unless mail goes through the broker
	AMQP() *amqp.Connection
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	amqp           *amqp.Connection
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(serviceName, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(); err != nil {
			i.closeAll()
			return nil, err
		}
		logger.Info("Database migrations applied")
	}

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		i.closeAll()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	if cfg.Mail.Transport == "amqp" {
		conn, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			i.closeAll()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		i.amqp = conn
	}

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName, cfg.Env)
	if err != nil {
		i.closeAll()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

// closeAll releases whatever was opened before a failed startup step
func (i *infrastructure) closeAll() {
	if i.amqp != nil {
		_ = i.amqp.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.postgres != nil {
		_ = i.postgres.Close()
	}
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) AMQP() *amqp.Connection {
	return i.amqp
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 4)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() {
		if i.amqp == nil || i.amqp.IsClosed() {
			errs <- nil
			return
		}
		errs <- i.amqp.Close()
	}()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs, <-errs)
}
