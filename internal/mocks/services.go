package mocks

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"github.com/stretchr/testify/mock"
)

type LedgerService struct {
	mock.Mock
}

func (m *LedgerService) OpenPending(ctx context.Context, cmd service.OpenPendingCommand) (model.Transaction, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(model.Transaction), args.Error(1)
}

func (m *LedgerService) Complete(ctx context.Context, cmd service.CompleteCommand) (model.Transaction, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(model.Transaction), args.Error(1)
}

func (m *LedgerService) Fail(ctx context.Context, cmd service.FailCommand) (model.Transaction, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(model.Transaction), args.Error(1)
}

func (m *LedgerService) Withdraw(ctx context.Context, cmd service.WithdrawCommand) (model.Transaction, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(model.Transaction), args.Error(1)
}

type CallbackService struct {
	mock.Mock
}

func (m *CallbackService) HandleCallback(ctx context.Context, cmd service.CallbackCommand) (service.CallbackResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.CallbackResult), args.Error(1)
}

type PaymentGateway struct {
	mock.Mock
}

func (m *PaymentGateway) Mode() string {
	args := m.Called()
	return args.String(0)
}

func (m *PaymentGateway) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *PaymentGateway) Initiate(ctx context.Context, cmd service.InitiateCommand) (service.InitiateResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.InitiateResult), args.Error(1)
}

type GatewaySelector struct {
	mock.Mock
}

func (m *GatewaySelector) Select(ctx context.Context) service.PaymentGateway {
	args := m.Called(ctx)
	return args.Get(0).(service.PaymentGateway)
}

func (m *GatewaySelector) Fallback() service.PaymentGateway {
	args := m.Called()
	return args.Get(0).(service.PaymentGateway)
}

func (m *GatewaySelector) Mode(ctx context.Context) string {
	args := m.Called(ctx)
	return args.String(0)
}

type TransactionNotifier struct {
	mock.Mock
}

func (m *TransactionNotifier) Publish(ctx context.Context, txn model.Transaction) {
	m.Called(ctx, txn)
}

type DepositService struct {
	mock.Mock
}

func (m *DepositService) InitiateDeposit(ctx context.Context, cmd service.DepositCommand) (service.InitiateResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.InitiateResult), args.Error(1)
}

type WithdrawalService struct {
	mock.Mock
}

func (m *WithdrawalService) InitiateWithdrawal(ctx context.Context, cmd service.WithdrawalCommand) (model.Transaction, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(model.Transaction), args.Error(1)
}

type QueryService struct {
	mock.Mock
}

func (m *QueryService) ListTransactions(ctx context.Context, query service.PageQuery) (service.TransactionPage, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(service.TransactionPage), args.Error(1)
}

func (m *QueryService) GetTransaction(ctx context.Context, userID, id string) (model.Transaction, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Transaction), args.Error(1)
}

func (m *QueryService) GetBalance(ctx context.Context, userID string) (service.BalanceResult, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(service.BalanceResult), args.Error(1)
}

func (m *QueryService) ListNotifications(ctx context.Context, query service.PageQuery) (service.NotificationPage, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(service.NotificationPage), args.Error(1)
}

func (m *QueryService) MarkNotificationRead(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *QueryService) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
