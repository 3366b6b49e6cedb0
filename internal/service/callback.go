package service

import (
	"context"
	"errors"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"go.uber.org/zap"
)

// CallbackService reconciles a provider resolution against the stored transaction.
// The HTTP callback endpoint and the simulation timers both land here.
type CallbackService interface {
	HandleCallback(ctx context.Context, cmd CallbackCommand) (CallbackResult, error)
}

type callbackService struct {
	transactionRepo repository.TransactionRepository
	ledger          LedgerService
	log             *zap.Logger
	metrics         *metrics.Metrics
}

func NewCallbackService(transactionRepo repository.TransactionRepository, ledger LedgerService,
	log *zap.Logger, metrics *metrics.Metrics,
) CallbackService {
	return &callbackService{transactionRepo: transactionRepo, ledger: ledger, log: log, metrics: metrics}
}

func (s *callbackService) HandleCallback(ctx context.Context, cmd CallbackCommand) (CallbackResult, error) {
	if cmd.CheckoutRequestID == "" {
		return "", NewServiceError(constants.ErrCodeValidationFailed, mpesa.ErrInvalidCallback)
	}

	log := s.log.With(
		zap.String("checkout_request_id", cmd.CheckoutRequestID),
		zap.Int("result_code", cmd.ResultCode),
		zap.Bool("simulated", cmd.Simulated),
	)

	txn, err := s.transactionRepo.GetByID(ctx, cmd.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			log.Warn("Callback for unknown transaction ignored")
			s.metrics.RecordCallback(string(CallbackIgnoredNotFound))
			return CallbackIgnoredNotFound, nil
		}

		log.Error("Failed to load transaction for callback", zap.Error(err))
		s.metrics.RecordCallback("error")
		return "", NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	if txn.Status.IsTerminal() {
		log.Info("Duplicate callback for settled transaction", zap.String("status", string(txn.Status)))
		s.metrics.RecordCallback(string(CallbackAlreadyProcessed))
		return CallbackAlreadyProcessed, nil
	}

	if cmd.ResultCode == mpesa.ResultCodeSuccess {
		if cmd.Receipt == "" {
			log.Warn("Successful callback without receipt number")
		}
		_, err = s.ledger.Complete(ctx, CompleteCommand{
			TransactionID: txn.ID,
			Receipt:       cmd.Receipt,
			Simulated:     cmd.Simulated,
		})
	} else {
		_, err = s.ledger.Fail(ctx, FailCommand{
			TransactionID: txn.ID,
			Reason:        cmd.ResultDesc,
		})
	}

	switch {
	case err == nil:
		log.Info("Callback processed")
		s.metrics.RecordCallback(string(CallbackProcessed))
		return CallbackProcessed, nil
	case errors.Is(err, ErrTransactionSettled):
		log.Info("Concurrent duplicate callback lost the settlement race")
		s.metrics.RecordCallback(string(CallbackAlreadyProcessed))
		return CallbackAlreadyProcessed, nil
	default:
		log.Error("Failed to apply callback", zap.Error(err))
		s.metrics.RecordCallback("error")
		return "", err
	}
}
