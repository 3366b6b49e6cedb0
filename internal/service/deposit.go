package service

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"go.uber.org/zap"
)

type DepositService interface {
	InitiateDeposit(ctx context.Context, cmd DepositCommand) (InitiateResult, error)
}

type depositService struct {
	selector    GatewaySelector
	countryCode string
	log         *zap.Logger
	metrics     *metrics.Metrics
}

func NewDepositService(selector GatewaySelector, countryCode string, log *zap.Logger, metrics *metrics.Metrics) DepositService {
	return &depositService{selector: selector, countryCode: countryCode, log: log, metrics: metrics}
}

// InitiateDeposit validates before any network call, then hands the deposit to the
// selected gateway. A provider that cannot be reached at all is replaced by the
// simulation; genuine provider answers are returned as errors.
func (s *depositService) InitiateDeposit(ctx context.Context, cmd DepositCommand) (InitiateResult, error) {
	if err := requireUser(cmd.UserID); err != nil {
		return InitiateResult{}, err
	}

	amount, err := integralAmount(cmd.Amount)
	if err != nil {
		return InitiateResult{}, err
	}

	phone, err := normalizePhone(cmd.PhoneNumber, s.countryCode)
	if err != nil {
		return InitiateResult{}, err
	}

	initiate := InitiateCommand{
		UserID:           cmd.UserID,
		PhoneNumber:      phone,
		Amount:           amount,
		AccountReference: cmd.AccountReference,
	}

	gateway := s.selector.Select(ctx)
	result, err := gateway.Initiate(ctx, initiate)

	if err != nil && gateway.Mode() != ModeSimulation && mpesa.Unreachable(err) {
		s.log.Warn("Provider unreachable, falling back to simulation",
			zap.String("user_id", cmd.UserID),
			zap.Error(err))
		s.metrics.RecordGatewayFallback("unreachable")

		gateway = s.selector.Fallback()
		result, err = gateway.Initiate(ctx, initiate)
	}

	if err != nil {
		s.log.Error("Failed to initiate deposit",
			zap.String("user_id", cmd.UserID),
			zap.String("mode", gateway.Mode()),
			zap.Int64("amount", amount),
			zap.Error(err))
		return InitiateResult{}, mapGatewayError(err)
	}

	s.log.Info("Deposit initiated",
		zap.String("transaction_id", result.TransactionID),
		zap.String("user_id", cmd.UserID),
		zap.String("mode", result.Mode),
		zap.Int64("amount", amount))

	return result, nil
}
