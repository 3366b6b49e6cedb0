// Package storage selects the repository backend named by the database driver.
package storage

import (
	"context"
	"fmt"

	"github.com/levisbarua/pesaflow-1/internal/repository"
	"github.com/levisbarua/pesaflow-1/internal/repository/inmem"
	"github.com/levisbarua/pesaflow-1/pkg/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Storage struct {
	TxManager     repository.TxManager
	Transactions  repository.TransactionRepository
	Accounts      repository.AccountRepository
	Notifications repository.NotificationRepository
	Events        repository.TransactionEventRepository
	Timeouts      repository.ObservationTimeoutRepository

	// DB is nil for the memory driver.
	DB *gorm.DB
}

func New(ctx context.Context, cfg database.Config, logger *zap.Logger) (*Storage, error) {
	if cfg.Driver == database.DriverMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return newMemory(), nil
	}

	db, err := database.NewConnection(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Storage{
		TxManager:     repository.NewTransactionManager(db),
		Transactions:  repository.NewTransactionRepository(db),
		Accounts:      repository.NewAccountRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Events:        repository.NewTransactionEventRepository(db),
		Timeouts:      repository.NewObservationTimeoutRepository(db),
		DB:            db,
	}, nil
}

func newMemory() *Storage {
	store := inmem.NewStore()

	return &Storage{
		TxManager:     store,
		Transactions:  store.Transactions(),
		Accounts:      store.Accounts(),
		Notifications: store.Notifications(),
		Events:        store.TransactionEvents(),
		Timeouts:      store.ObservationTimeouts(),
	}
}

// Memory reports whether the backend lives inside this process.
func (s *Storage) Memory() bool {
	return s.DB == nil
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}

	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
