package mocks

import (
	"context"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/stretchr/testify/mock"
)

type TransactionEventRepository struct {
	mock.Mock
}

func (m *TransactionEventRepository) Create(ctx context.Context, event *model.TransactionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *TransactionEventRepository) FindUnpublished(ctx context.Context, limit int) ([]model.TransactionEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]model.TransactionEvent)
	return events, args.Error(1)
}

func (m *TransactionEventRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	args := m.Called(ctx, id, publishedAt)
	return args.Error(0)
}

type ObservationTimeoutRepository struct {
	mock.Mock
}

func (m *ObservationTimeoutRepository) Record(ctx context.Context, timeout *model.ObservationTimeout) error {
	args := m.Called(ctx, timeout)
	return args.Error(0)
}

func (m *ObservationTimeoutRepository) Exists(ctx context.Context, transactionID string) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}
