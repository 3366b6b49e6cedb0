package service

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"go.uber.org/zap"
)

type WithdrawalService interface {
	InitiateWithdrawal(ctx context.Context, cmd WithdrawalCommand) (model.Transaction, error)
}

type withdrawalService struct {
	ledger      LedgerService
	countryCode string
	log         *zap.Logger
}

func NewWithdrawalService(ledger LedgerService, countryCode string, log *zap.Logger) WithdrawalService {
	return &withdrawalService{ledger: ledger, countryCode: countryCode, log: log}
}

// InitiateWithdrawal debits synchronously; the returned transaction is already COMPLETED.
func (s *withdrawalService) InitiateWithdrawal(ctx context.Context, cmd WithdrawalCommand) (model.Transaction, error) {
	if err := requireUser(cmd.UserID); err != nil {
		return model.Transaction{}, err
	}

	amount, err := integralAmount(cmd.Amount)
	if err != nil {
		return model.Transaction{}, err
	}

	phone, err := normalizePhone(cmd.PhoneNumber, s.countryCode)
	if err != nil {
		return model.Transaction{}, err
	}

	txn, err := s.ledger.Withdraw(ctx, WithdrawCommand{
		UserID:      cmd.UserID,
		PhoneNumber: phone,
		Amount:      amount,
	})
	if err != nil {
		s.log.Warn("Withdrawal rejected",
			zap.String("user_id", cmd.UserID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return model.Transaction{}, err
	}

	return txn, nil
}
