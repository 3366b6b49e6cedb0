package mocks

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/stretchr/testify/mock"
)

type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	txn, _ := args.Get(0).(*model.Transaction)
	return txn, args.Error(1)
}

func (m *TransactionRepository) SettlePending(ctx context.Context, settlement model.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *TransactionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	transactions, _ := args.Get(0).([]model.Transaction)
	return transactions, args.Error(1)
}

func (m *TransactionRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *TransactionRepository) FindPendingByPrefix(ctx context.Context, idPrefix string, limit int) ([]model.Transaction, error) {
	args := m.Called(ctx, idPrefix, limit)
	transactions, _ := args.Get(0).([]model.Transaction)
	return transactions, args.Error(1)
}
