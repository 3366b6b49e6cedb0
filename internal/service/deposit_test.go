package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/mocks"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/service"
	pkgmocks "github.com/levisbarua/pesaflow-1/pkg/mocks"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeposit_InitiateDeposit(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	expected := service.InitiateCommand{
		UserID:      "user-1",
		PhoneNumber: "254712345678",
		Amount:      500,
	}

	t.Run("validates before selecting a gateway", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		cases := []service.DepositCommand{
			{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.Zero},
			{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(-5)},
			{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.RequireFromString("0.9")},
			{UserID: "user-1", PhoneNumber: "", Amount: decimal.NewFromInt(10)},
			{UserID: "user-1", PhoneNumber: "07-abc", Amount: decimal.NewFromInt(10)},
		}

		for _, cmd := range cases {
			_, err := svc.InitiateDeposit(ctx, cmd)
			assert.True(t, service.HasCode(err, constants.ErrCodeValidationFailed), "amount=%s phone=%q", cmd.Amount, cmd.PhoneNumber)
		}

		selector.AssertNotCalled(t, "Select", mock.Anything)
	})

	t.Run("missing user is unauthorized", func(t *testing.T) {
		svc := service.NewDepositService(&mocks.GatewaySelector{}, "254", logger, nil)

		_, err := svc.InitiateDeposit(ctx, service.DepositCommand{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(1)})

		assert.True(t, service.HasCode(err, constants.ErrCodeUnauthorized))
	})

	t.Run("normalizes phone and truncates amount", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		gateway := &mocks.PaymentGateway{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		selector.On("Select", ctx).Return(gateway)
		gateway.On("Initiate", ctx, expected).Return(service.InitiateResult{
			TransactionID: "ws_CO_1",
			Mode:          service.ModeProduction,
			Status:        model.TransactionStatusPending,
		}, nil)

		result, err := svc.InitiateDeposit(ctx, service.DepositCommand{
			UserID:      "user-1",
			PhoneNumber: "+254 712-345-678",
			Amount:      decimal.RequireFromString("500.75"),
		})

		require.NoError(t, err)
		assert.Equal(t, "ws_CO_1", result.TransactionID)
		gateway.AssertExpectations(t)
	})

	t.Run("unreachable provider falls back to simulation", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		provider := &mocks.PaymentGateway{}
		simulation := &mocks.PaymentGateway{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		selector.On("Select", ctx).Return(provider)
		selector.On("Fallback").Return(simulation)
		provider.On("Mode").Return(service.ModeProduction)
		provider.On("Initiate", ctx, expected).
			Return(service.InitiateResult{}, fmt.Errorf("%w: dial tcp: lookup sandbox.safaricom.co.ke", mpesa.ErrInfrastructureRestricted))
		simulation.On("Initiate", ctx, expected).Return(service.InitiateResult{
			TransactionID: "SIM-1",
			Mode:          service.ModeSimulation,
			Status:        model.TransactionStatusPending,
		}, nil)

		result, err := svc.InitiateDeposit(ctx, service.DepositCommand{
			UserID:      "user-1",
			PhoneNumber: "0712345678",
			Amount:      decimal.NewFromInt(500),
		})

		require.NoError(t, err)
		assert.Equal(t, service.ModeSimulation, result.Mode)
		simulation.AssertExpectations(t)
	})

	t.Run("token failure falls back to simulation", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		provider := &mocks.PaymentGateway{}
		simulation := &mocks.PaymentGateway{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		selector.On("Select", ctx).Return(provider)
		selector.On("Fallback").Return(simulation)
		provider.On("Mode").Return(service.ModeProduction)
		provider.On("Initiate", ctx, expected).Return(service.InitiateResult{}, mpesa.ErrAuthenticationFailed)
		simulation.On("Initiate", ctx, expected).Return(service.InitiateResult{TransactionID: "SIM-2", Mode: service.ModeSimulation}, nil)

		result, err := svc.InitiateDeposit(ctx, service.DepositCommand{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})

		require.NoError(t, err)
		assert.Equal(t, "SIM-2", result.TransactionID)
	})

	t.Run("timeout after send does not fall back", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		provider := &mocks.PaymentGateway{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		selector.On("Select", ctx).Return(provider)
		provider.On("Mode").Return(service.ModeProduction)
		provider.On("Initiate", ctx, expected).Return(service.InitiateResult{}, mpesa.ErrTimeout)

		_, err := svc.InitiateDeposit(ctx, service.DepositCommand{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})

		assert.True(t, service.HasCode(err, constants.ErrCodeProviderUnavailable))
		selector.AssertNotCalled(t, "Fallback")
	})

	t.Run("provider rejection is surfaced", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		provider := &mocks.PaymentGateway{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		selector.On("Select", ctx).Return(provider)
		provider.On("Mode").Return(service.ModeProduction)
		provider.On("Initiate", ctx, expected).Return(service.InitiateResult{}, fmt.Errorf("%w: invalid shortcode", mpesa.ErrRequestRejected))

		_, err := svc.InitiateDeposit(ctx, service.DepositCommand{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})

		assert.True(t, service.HasCode(err, constants.ErrCodeProviderRejected))
	})

	t.Run("ledger errors pass through", func(t *testing.T) {
		selector := &mocks.GatewaySelector{}
		provider := &mocks.PaymentGateway{}
		svc := service.NewDepositService(selector, "254", logger, nil)

		selector.On("Select", ctx).Return(provider)
		provider.On("Mode").Return(service.ModeProduction)
		provider.On("Initiate", ctx, expected).Return(service.InitiateResult{},
			service.NewServiceError(constants.ErrCodeTransactionExists, errors.New("dup")))

		_, err := svc.InitiateDeposit(ctx, service.DepositCommand{UserID: "user-1", PhoneNumber: "0712345678", Amount: decimal.NewFromInt(500)})

		assert.True(t, service.HasCode(err, constants.ErrCodeTransactionExists))
	})
}

func TestGatewaySelector(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("forced simulation never probes", func(t *testing.T) {
		provider := &mocks.PaymentGateway{}
		simulation := &mocks.PaymentGateway{}
		selector := service.NewGatewaySelector(provider, simulation, service.GatewayConfig{ForceSimulation: true}, logger, nil)

		assert.Same(t, simulation, selector.Select(ctx))
		assert.Equal(t, service.ModeSimulation, selector.Mode(ctx))
		provider.AssertNotCalled(t, "Ping", mock.Anything)
	})

	t.Run("nil provider means simulation", func(t *testing.T) {
		simulation := &mocks.PaymentGateway{}
		selector := service.NewGatewaySelector(nil, simulation, service.GatewayConfig{}, logger, nil)

		assert.Same(t, simulation, selector.Select(ctx))
		assert.Same(t, simulation, selector.Fallback())
	})

	t.Run("provider used without probe", func(t *testing.T) {
		provider := &mocks.PaymentGateway{}
		simulation := &mocks.PaymentGateway{}
		selector := service.NewGatewaySelector(provider, simulation, service.GatewayConfig{}, logger, nil)

		assert.Same(t, provider, selector.Select(ctx))
		provider.AssertNotCalled(t, "Ping", mock.Anything)
	})

	t.Run("failed probe selects simulation", func(t *testing.T) {
		provider := &mocks.PaymentGateway{}
		simulation := &mocks.PaymentGateway{}
		selector := service.NewGatewaySelector(provider, simulation,
			service.GatewayConfig{ProbeBeforeInitiate: true, ProbeTimeout: time.Second}, logger, nil)

		provider.On("Ping", mock.Anything).Return(mpesa.ErrInfrastructureRestricted)

		assert.Same(t, simulation, selector.Select(ctx))
		assert.Equal(t, service.ModeSimulation, selector.Mode(ctx))
	})

	t.Run("healthy probe selects provider", func(t *testing.T) {
		provider := &mocks.PaymentGateway{}
		simulation := &mocks.PaymentGateway{}
		selector := service.NewGatewaySelector(provider, simulation,
			service.GatewayConfig{ProbeBeforeInitiate: true}, logger, nil)

		provider.On("Ping", mock.Anything).Return(nil)

		assert.Same(t, provider, selector.Select(ctx))
		assert.Equal(t, service.ModeProduction, selector.Mode(ctx))
	})
}

func TestMpesaGateway_Initiate(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	cmd := service.InitiateCommand{UserID: "user-1", PhoneNumber: "254712345678", Amount: 500, AccountReference: "Wallet"}

	t.Run("records provider handle as pending", func(t *testing.T) {
		client := &pkgmocks.MpesaClient{}
		ledger := &mocks.LedgerService{}
		gateway := service.NewMpesaGateway(client, ledger, logger, nil)

		client.On("Initiate", ctx, mpesa.STKPushRequest{PhoneNumber: "254712345678", Amount: 500, AccountReference: "Wallet"}).
			Return(mpesa.STKPushResponse{
				MerchantRequestID:   "29115-34620561-1",
				CheckoutRequestID:   "ws_CO_191220191020363925",
				ResponseCode:        "0",
				ResponseDescription: "Success. Request accepted for processing",
				CustomerMessage:     "Success. Request accepted for processing",
			}, nil)
		ledger.On("OpenPending", ctx, service.OpenPendingCommand{
			TransactionID:     "ws_CO_191220191020363925",
			MerchantRequestID: "29115-34620561-1",
			UserID:            "user-1",
			PhoneNumber:       "254712345678",
			Amount:            500,
			Direction:         model.DirectionDeposit,
			Description:       constants.DescriptionTopup,
		}).Return(model.Transaction{ID: "ws_CO_191220191020363925", Status: model.TransactionStatusPending}, nil)

		result, err := gateway.Initiate(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, "ws_CO_191220191020363925", result.TransactionID)
		assert.Equal(t, service.ModeProduction, result.Mode)
		assert.Equal(t, model.TransactionStatusPending, result.Status)
		client.AssertExpectations(t)
		ledger.AssertExpectations(t)
	})

	t.Run("provider error writes nothing", func(t *testing.T) {
		client := &pkgmocks.MpesaClient{}
		ledger := &mocks.LedgerService{}
		gateway := service.NewMpesaGateway(client, ledger, logger, nil)

		client.On("Initiate", ctx, mock.Anything).Return(mpesa.STKPushResponse{}, mpesa.ErrInfrastructureRestricted)

		_, err := gateway.Initiate(ctx, cmd)

		assert.ErrorIs(t, err, mpesa.ErrInfrastructureRestricted)
		ledger.AssertNotCalled(t, "OpenPending", mock.Anything, mock.Anything)
	})
}
