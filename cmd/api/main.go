package main

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/levisbarua/pesaflow-1/internal/api"
	"github.com/levisbarua/pesaflow-1/internal/api/middleware"
	v1 "github.com/levisbarua/pesaflow-1/internal/api/v1"
	xvalidator "github.com/levisbarua/pesaflow-1/internal/api/validator"
	"github.com/levisbarua/pesaflow-1/internal/config"
	"github.com/levisbarua/pesaflow-1/internal/consumers"
	apperrors "github.com/levisbarua/pesaflow-1/internal/errors"
	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/logger"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/observer"
	"github.com/levisbarua/pesaflow-1/internal/publishers"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"github.com/levisbarua/pesaflow-1/internal/storage"
	"github.com/levisbarua/pesaflow-1/pkg/httpclient"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"github.com/levisbarua/pesaflow-1/pkg/mq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			logger.New,
			NewRegistry,
			NewMetrics,
			NewStorage,
			NewHub,

			NewLedgerService,
			NewCallbackService,
			NewSimulationGateway,
			NewGatewaySelector,
			NewDepositService,
			NewWithdrawalService,
			NewQueryService,
			NewWatcher,

			NewXValidator,
			v1.NewHandler,
			NewFiberApp,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(startServer, runSimulation, runCollectors, runEventBridge),
	).Run()
}

func startServer(app *fiber.App, handler *v1.Handler, registry *prometheus.Registry, cfg *config.Config,
	logger *zap.Logger, lc fx.Lifecycle) {
	api.SetupRoutes(app, handler, middleware.Identity(cfg.Auth, logger), registry)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := app.Listen(cfg.API.Port); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			logger.Info("http server started", zap.String("port", cfg.API.Port))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

// runSimulation re-arms synthetic callbacks for simulated deposits left PENDING
// by a previous run.
func runSimulation(simulation *service.SimulationGateway, logger *zap.Logger, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			resumed, err := simulation.Resume(ctx)
			if err != nil {
				logger.Error("failed to resume simulated deposits", zap.Error(err))
				return nil
			}
			logger.Info("simulated deposits resumed", zap.Int("count", resumed))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			simulation.Stop()
			return nil
		},
	})
}

func runCollectors(m *metrics.Metrics, store *storage.Storage, cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) {
	system := metrics.NewSystemCollector(m, logger, cfg.Metrics.Version)

	var database *metrics.DatabaseMetricsCollector
	if store.DB != nil {
		database = metrics.NewDatabaseMetricsCollector(m, logger, store.DB)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			system.Start(cfg.Metrics.CollectInterval)
			if database != nil {
				database.Start(cfg.Metrics.CollectInterval)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			system.Stop()
			if database != nil {
				database.Stop()
			}
			return nil
		},
	})
}

// runEventBridge fans committed transaction events out through RabbitMQ so watchers
// on every instance observe settlements made by any of them. Shared databases are
// relayed by worker-event-publisher; the memory backend is only visible here, so
// this process relays its own outbox.
func runEventBridge(cfg *config.Config, store *storage.Storage, hub *events.Hub, m *metrics.Metrics,
	logger *zap.Logger, lc fx.Lifecycle) {
	if !cfg.RabbitMQ.Enable {
		logger.Info("rabbitmq disabled; transaction events stay in process")
		return
	}

	appCtx, cancel := context.WithCancel(context.Background())
	var rabbit *mq.RabbitMQ

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			rabbit, err = mq.NewConnection(cfg.RabbitMQ, logger)
			if err != nil {
				return err
			}

			if err := rabbit.DeclareFanout(cfg.Events.Exchange); err != nil {
				logger.Error("declare exchange failed", zap.Error(err))
				return err
			}

			queue, err := rabbit.BindExclusiveQueue(cfg.Events.Exchange)
			if err != nil {
				logger.Error("bind queue failed", zap.Error(err))
				return err
			}

			consumer, err := rabbit.CreateConsumer()
			if err != nil {
				return err
			}

			eventConsumer := consumers.NewTransactionEventConsumer(hub, consumer, queue, cfg.Events.Prefetch, logger)
			go func() {
				if err := eventConsumer.Consume(appCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("transaction event consumer stopped", zap.Error(err))
				}
			}()

			if store.Memory() {
				publisher, err := rabbit.CreatePublisher()
				if err != nil {
					return err
				}

				eventPublisher := publishers.NewTransactionEventPublisher(store.Events, publisher,
					cfg.Events.Exchange, cfg.Events.BatchSize, logger, m)
				go publishers.Run(appCtx, eventPublisher, cfg.Events.PublishInterval, logger)
			}

			logger.Info("transaction event bridge started", zap.String("exchange", cfg.Events.Exchange))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			if rabbit == nil {
				return nil
			}
			return rabbit.Close()
		},
	})
}

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

func NewMetrics(registry *prometheus.Registry) *metrics.Metrics {
	return metrics.NewMetrics(registry)
}

func NewStorage(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) (*storage.Storage, error) {
	store, err := storage.New(context.Background(), cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func NewHub(logger *zap.Logger) *events.Hub {
	return events.NewHub(logger)
}

// NewLedgerService skips the outbox for the memory backend when RabbitMQ is off,
// since nothing would ever drain it.
func NewLedgerService(cfg *config.Config, store *storage.Storage, hub *events.Hub, logger *zap.Logger,
	m *metrics.Metrics) service.LedgerService {
	return service.NewLedgerService(store.TxManager, store.Transactions, store.Accounts, store.Notifications,
		store.Events, store.Timeouts, hub, logger, m, service.WithOutbox(cfg.RabbitMQ.Enable || !store.Memory()))
}

func NewCallbackService(store *storage.Storage, ledger service.LedgerService, logger *zap.Logger,
	m *metrics.Metrics) service.CallbackService {
	return service.NewCallbackService(store.Transactions, ledger, logger, m)
}

func NewSimulationGateway(cfg *config.Config, ledger service.LedgerService, callbacks service.CallbackService,
	store *storage.Storage, logger *zap.Logger, m *metrics.Metrics) *service.SimulationGateway {
	return service.NewSimulationGateway(cfg.Simulation, ledger, callbacks, store.Transactions, logger, m)
}

func NewGatewaySelector(cfg *config.Config, simulation *service.SimulationGateway, ledger service.LedgerService,
	logger *zap.Logger, m *metrics.Metrics) service.GatewaySelector {
	gatewayCfg := cfg.Gateway
	gatewayCfg.ForceSimulation = gatewayCfg.ForceSimulation || cfg.Simulation.Force

	var provider service.PaymentGateway
	if cfg.Mpesa.Enable {
		client := mpesa.NewClient(cfg.Mpesa, httpclient.NewHTTPClient(cfg.Mpesa.Timeout))
		provider = service.NewMpesaGateway(client, ledger, logger, m)
	} else {
		logger.Warn("mpesa gateway disabled; deposits are simulated")
	}

	return service.NewGatewaySelector(provider, simulation, gatewayCfg, logger, m)
}

func NewDepositService(cfg *config.Config, selector service.GatewaySelector, logger *zap.Logger,
	m *metrics.Metrics) service.DepositService {
	return service.NewDepositService(selector, cfg.Mpesa.CountryCode, logger, m)
}

func NewWithdrawalService(cfg *config.Config, ledger service.LedgerService, logger *zap.Logger) service.WithdrawalService {
	return service.NewWithdrawalService(ledger, cfg.Mpesa.CountryCode, logger)
}

func NewQueryService(store *storage.Storage, logger *zap.Logger) service.QueryService {
	return service.NewQueryService(store.Transactions, store.Accounts, store.Notifications, logger)
}

func NewWatcher(cfg *config.Config, hub *events.Hub, store *storage.Storage, logger *zap.Logger,
	m *metrics.Metrics) v1.Watcher {
	return observer.New(cfg.Observer, hub, store.Transactions, store.Timeouts, logger, m)
}

func NewXValidator(m *metrics.Metrics) xvalidator.IXValidator {
	return xvalidator.NewXValidator(validator.New(), m)
}

func NewFiberApp(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: apperrors.ErrorHandler(logger),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(metrics.HTTPMetricsMiddleware(m, logger))

	return app
}
