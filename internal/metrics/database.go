package metrics

import (
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DatabaseMetricsCollector exports connection pool stats for the SQL drivers.
type DatabaseMetricsCollector struct {
	metrics  *Metrics
	logger   *zap.Logger
	sqlDB    *sql.DB
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewDatabaseMetricsCollector(metrics *Metrics, logger *zap.Logger, db *gorm.DB) *DatabaseMetricsCollector {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get sql.DB from gorm.DB", zap.Error(err))
		metrics.RecordDBConnectionError()
	}

	return &DatabaseMetricsCollector{
		metrics: metrics,
		logger:  logger,
		sqlDB:   sqlDB,
		stopCh:  make(chan struct{}),
	}
}

func (dmc *DatabaseMetricsCollector) Start(interval time.Duration) {
	if dmc.sqlDB == nil {
		dmc.logger.Warn("Cannot start database metrics collector: sqlDB is nil")
		return
	}

	dmc.ticker = time.NewTicker(interval)
	go dmc.collectLoop()
	dmc.logger.Info("Database metrics collector started", zap.Duration("interval", interval))
}

func (dmc *DatabaseMetricsCollector) Stop() {
	dmc.stopOnce.Do(func() {
		if dmc.ticker != nil {
			dmc.ticker.Stop()
		}
		close(dmc.stopCh)
	})
}

func (dmc *DatabaseMetricsCollector) collectLoop() {
	dmc.collect()

	for {
		select {
		case <-dmc.ticker.C:
			dmc.collect()
		case <-dmc.stopCh:
			return
		}
	}
}

func (dmc *DatabaseMetricsCollector) collect() {
	stats := dmc.sqlDB.Stats()
	dmc.metrics.UpdateDBConnections(stats.InUse, stats.Idle)

	dmc.logger.Debug("Database connection stats",
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration),
	)
}

// HealthCheck pings the pool and records the query.
func (dmc *DatabaseMetricsCollector) HealthCheck() error {
	if dmc.sqlDB == nil {
		dmc.metrics.RecordDBConnectionError()
		return sql.ErrConnDone
	}

	start := time.Now()
	err := dmc.sqlDB.Ping()

	status := "success"
	if err != nil {
		status = "error"
	}
	dmc.metrics.RecordDBQuery("ping", "health_check", status, time.Since(start))

	return err
}
