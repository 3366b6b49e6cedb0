package main

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/config"
	"github.com/levisbarua/pesaflow-1/internal/logger"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/publishers"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"github.com/levisbarua/pesaflow-1/pkg/database"
	"github.com/levisbarua/pesaflow-1/pkg/mq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			logger.New,
			NewMetrics,

			NewConnectionDB,
			NewMQConnection,
			NewMQPublisher,

			repository.NewTransactionEventRepository,

			NewTransactionEventPublisher,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(runEventPublisher),
	).Run()
}

func runEventPublisher(cfg *config.Config, publisher publishers.TransactionEventPublisher, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rabbit.DeclareFanout(cfg.Events.Exchange); err != nil {
				logger.Error("declare exchange failed", zap.Error(err))
				return err
			}

			logger.Info("exchange declared", zap.String("exchange", cfg.Events.Exchange))

			go publishers.Run(appCtx, publisher, cfg.Events.PublishInterval, logger)

			logger.Info("transaction event publisher started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping transaction event publisher")
			cancel()
			return rabbit.Close()
		},
	})
}

func NewMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.DefaultRegisterer)
}

func NewConnectionDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	ctx := context.Background()
	return database.NewConnection(ctx, cfg.Database, logger)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}

func NewTransactionEventPublisher(cfg *config.Config, eventRepo repository.TransactionEventRepository,
	publisher mq.Publisher, logger *zap.Logger, m *metrics.Metrics) publishers.TransactionEventPublisher {
	return publishers.NewTransactionEventPublisher(eventRepo, publisher, cfg.Events.Exchange, cfg.Events.BatchSize, logger, m)
}
