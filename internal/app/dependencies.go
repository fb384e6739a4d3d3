package app

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/gormstore"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

// Dependencies содержит собранные зависимости приложения.
type Dependencies struct {
	Service orders.API
	Health  *healthcheck.Handler
	Logger  *log.Entry

	producer *kafka.Producer
	closeFns []func() error
}

// NewDependencies собирает сервис заказов поверх выбранного backend-а.
// Kafka producer создаётся только при наличии брокеров; сбой его
// инициализации не фатален, события просто не публикуются.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Health: healthcheck.NewHandler(version.String()),
		Logger: logger,
	}

	var sink domain.OrderEventSink
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			deps.producer = producer
			deps.closeFns = append(deps.closeFns, producer.Close)
			sink = kafka.NewNotifier(producer)
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	switch cfg.Backend {
	case BackendMemory:
		store := memory.NewStore()
		items := memory.NewOrderItemRepository()
		orderRepo := memory.NewOrderRepository(items)
		deps.Service = orders.NewServiceWithEvents[*memory.Tx](
			memory.NewTxRunner(store), orderRepo, items,
			sink, logger.WithField("backend", "memory"))

	case BackendPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres backend: %w", err)
		}
		deps.closeFns = append(deps.closeFns, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.Health.RegisterCheck("postgres", func() error {
			return store.Ping(context.Background())
		})

		items := postgres.NewOrderItemRepository()
		orderRepo := postgres.NewOrderRepository(items)
		deps.Service = orders.NewServiceWithEvents[*sql.Tx](
			postgres.NewTxRunner(store, logger.WithField("component", "tx-runner")), orderRepo, items,
			sink, logger.WithField("backend", "postgres"))

	case BackendGorm:
		// Схема общая с raw-SQL адаптером, миграции применяет он же.
		migrator, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open gorm backend: %w", err)
		}
		if err := migrator.EnsureSchema(ctx); err != nil {
			_ = migrator.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		_ = migrator.Close()

		store, err := gormstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open gorm backend: %w", err)
		}
		deps.closeFns = append(deps.closeFns, store.Close)
		deps.Health.RegisterCheck("postgres", func() error {
			sqlDB, err := store.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		})

		items := gormstore.NewOrderItemRepository()
		orderRepo := gormstore.NewOrderRepository(items)
		deps.Service = orders.NewServiceWithEvents[*gorm.DB](
			gormstore.NewTxRunner(store, logger.WithField("component", "tx-runner")), orderRepo, items,
			sink, logger.WithField("backend", "gorm"))

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	return deps, nil
}

// Close освобождает внешние ресурсы в обратном порядке создания.
func (d *Dependencies) Close() error {
	var firstErr error
	for i := len(d.closeFns) - 1; i >= 0; i-- {
		if err := d.closeFns[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
