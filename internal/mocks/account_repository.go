package mocks

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/stretchr/testify/mock"
)

type AccountRepository struct {
	mock.Mock
}

func (m *AccountRepository) Ensure(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *AccountRepository) GetByUserID(ctx context.Context, userID string) (*model.Account, error) {
	args := m.Called(ctx, userID)
	account, _ := args.Get(0).(*model.Account)
	return account, args.Error(1)
}

func (m *AccountRepository) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *AccountRepository) Debit(ctx context.Context, userID string, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}
