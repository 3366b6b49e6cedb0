//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"github.com/levisbarua/pesaflow-1/pkg/database"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	code, err := runMain(m)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

func postgresTag() string {
	if tag := os.Getenv("POSTGRES_TAG"); tag != "" {
		return tag
	}
	return "16-alpine"
}

func runMain(m *testing.M) (int, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return 1, fmt.Errorf("failed to initialize a docker pool: %w", err)
	}

	const pgPort = "5432/tcp"
	container, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: "postgres",
			Tag:        postgresTag(),
			Env: []string{
				"POSTGRES_USER=pesaflow",
				"POSTGRES_PASSWORD=pesaflow",
				"POSTGRES_DB=pesaflow",
			},
			ExposedPorts: []string{pgPort},
		},
		func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return 1, fmt.Errorf("failed to run postgres container: %w", err)
	}
	defer func() {
		if err := pool.Purge(container); err != nil {
			log.Printf("failed to purge the postgres container: %v", err)
		}
	}()

	cfg := database.Config{
		Driver:   database.DriverPostgres,
		Host:     "localhost",
		Port:     container.GetPort(pgPort),
		User:     "pesaflow",
		Password: "pesaflow",
		Name:     "pesaflow",
		LogLevel: "silent",
	}

	pool.MaxWait = 30 * time.Second
	if err := pool.Retry(func() error {
		testDB, err = database.NewConnection(context.Background(), cfg, zap.NewNop())
		return err
	}); err != nil {
		return 1, fmt.Errorf("retry failed: %w", err)
	}

	if err := repository.Migrate(testDB); err != nil {
		return 1, fmt.Errorf("failed to migrate: %w", err)
	}

	return m.Run(), nil
}

func TestPostgres_TransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	txRepo := repository.NewTransactionRepository(testDB)
	accRepo := repository.NewAccountRepository(testDB)
	txManager := repository.NewTransactionManager(testDB)

	require.NoError(t, accRepo.Ensure(ctx, "pg-user"))
	require.NoError(t, accRepo.Ensure(ctx, "pg-user"))

	now := time.Now().UTC()
	txn := &model.Transaction{
		ID:        "ws_CO_pg_1",
		UserID:    "pg-user",
		Amount:    500,
		Direction: model.DirectionDeposit,
		Status:    model.TransactionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, txRepo.Create(ctx, txn))
	assert.ErrorIs(t, txRepo.Create(ctx, txn), repository.ErrTransactionExisted)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- txManager.WithTx(ctx, func(ctx context.Context) error {
				if err := txRepo.SettlePending(ctx, model.Settlement{
					TransactionID: txn.ID,
					Status:        model.TransactionStatusCompleted,
					Reference:     "ABC123",
					SettledAt:     time.Now().UTC(),
				}); err != nil {
					return err
				}
				return accRepo.AdjustBalance(ctx, "pg-user", txn.Amount)
			})
		}()
	}
	wg.Wait()
	close(results)

	var applied int
	for err := range results {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrNoRowsAffected)
	}
	assert.Equal(t, 1, applied)

	acc, err := accRepo.GetByUserID(ctx, "pg-user")
	require.NoError(t, err)
	assert.Equal(t, int64(500), acc.Balance)

	assert.ErrorIs(t, accRepo.Debit(ctx, "pg-user", 501), repository.ErrInsufficientBalance)
	require.NoError(t, accRepo.Debit(ctx, "pg-user", 200))

	acc, err = accRepo.GetByUserID(ctx, "pg-user")
	require.NoError(t, err)
	assert.Equal(t, int64(300), acc.Balance)
}

func TestPostgres_Notifications(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewNotificationRepository(testDB)

	n := &model.Notification{
		ID:        "8f14e45f-ceea-467f-a0e6-000000000001",
		UserID:    "pg-user-n",
		Title:     "Payment Received",
		Message:   "Confirmed",
		Kind:      model.NotificationKindSuccess,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, n))
	assert.ErrorIs(t, repo.Create(ctx, n), repository.ErrNotificationDuplicate)

	require.NoError(t, repo.MarkRead(ctx, "pg-user-n", n.ID))
	require.NoError(t, repo.MarkRead(ctx, "pg-user-n", n.ID))
	assert.ErrorIs(t, repo.MarkRead(ctx, "someone-else", n.ID), repository.ErrNotificationNotFound)
}
