package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"go.uber.org/zap"
)

const WithdrawalIDPrefix = "WID-"

// TransactionNotifier receives every committed snapshot.
type TransactionNotifier interface {
	Publish(ctx context.Context, txn model.Transaction)
}

// LedgerService owns every write that touches a transaction's status or a balance.
// Each method commits its status change, balance delta, notifications and outbox
// event together or not at all.
type LedgerService interface {
	OpenPending(ctx context.Context, cmd OpenPendingCommand) (model.Transaction, error)
	Complete(ctx context.Context, cmd CompleteCommand) (model.Transaction, error)
	Fail(ctx context.Context, cmd FailCommand) (model.Transaction, error)
	Withdraw(ctx context.Context, cmd WithdrawCommand) (model.Transaction, error)
}

type ledgerService struct {
	txManager        repository.TxManager
	transactionRepo  repository.TransactionRepository
	accountRepo      repository.AccountRepository
	notificationRepo repository.NotificationRepository
	eventRepo        repository.TransactionEventRepository
	timeoutRepo      repository.ObservationTimeoutRepository
	notifier         TransactionNotifier
	log              *zap.Logger
	metrics          *metrics.Metrics
	now              func() time.Time
	outbox           bool
}

type LedgerOption func(*ledgerService)

// WithOutbox controls whether commits also write a TransactionEvent row. Turn it
// off when no relay drains the outbox.
func WithOutbox(enabled bool) LedgerOption {
	return func(l *ledgerService) {
		l.outbox = enabled
	}
}

func NewLedgerService(txManager repository.TxManager, transactionRepo repository.TransactionRepository,
	accountRepo repository.AccountRepository, notificationRepo repository.NotificationRepository,
	eventRepo repository.TransactionEventRepository, timeoutRepo repository.ObservationTimeoutRepository,
	notifier TransactionNotifier, log *zap.Logger, metrics *metrics.Metrics, opts ...LedgerOption,
) LedgerService {
	l := &ledgerService{
		txManager:        txManager,
		transactionRepo:  transactionRepo,
		accountRepo:      accountRepo,
		notificationRepo: notificationRepo,
		eventRepo:        eventRepo,
		timeoutRepo:      timeoutRepo,
		notifier:         notifier,
		log:              log,
		metrics:          metrics,
		now:              func() time.Time { return time.Now().UTC() },
		outbox:           true,
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ledgerService) OpenPending(ctx context.Context, cmd OpenPendingCommand) (model.Transaction, error) {
	now := l.now()

	direction := cmd.Direction
	if direction == "" {
		direction = model.DirectionDeposit
	}

	txn := model.Transaction{
		ID:                cmd.TransactionID,
		UserID:            cmd.UserID,
		Amount:            cmd.Amount,
		Direction:         direction,
		Status:            model.TransactionStatusPending,
		PhoneNumber:       cmd.PhoneNumber,
		Description:       cmd.Description,
		MerchantRequestID: cmd.MerchantRequestID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := l.accountRepo.Ensure(ctx, cmd.UserID); err != nil {
			l.log.Error("error ensure account", zap.String("user_id", cmd.UserID), zap.Error(err))
			return NewServiceError(constants.ErrCodeOperationFailed, err)
		}

		if err := l.transactionRepo.Create(ctx, &txn); err != nil {
			if errors.Is(err, repository.ErrTransactionExisted) {
				return NewServiceError(constants.ErrCodeTransactionExists, err)
			}
			l.log.Error("error create pending transaction", zap.Error(err))
			return NewServiceError(constants.ErrCodeOperationFailed, err)
		}

		return l.recordEvent(ctx, txn)
	})
	if err != nil {
		l.log.Error("Failed to open pending transaction",
			zap.String("transaction_id", cmd.TransactionID),
			zap.String("user_id", cmd.UserID),
			zap.Error(err),
		)
		return model.Transaction{}, err
	}

	l.log.Info("Pending transaction opened",
		zap.String("transaction_id", txn.ID),
		zap.String("user_id", txn.UserID),
		zap.Int64("amount", txn.Amount),
	)

	l.notifier.Publish(ctx, txn)

	return txn, nil
}

func (l *ledgerService) Complete(ctx context.Context, cmd CompleteCommand) (model.Transaction, error) {
	var settled model.Transaction

	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		txn, err := l.loadPending(ctx, cmd.TransactionID)
		if err != nil {
			return err
		}

		now := l.now()
		if err := l.settle(ctx, model.Settlement{
			TransactionID: txn.ID,
			Status:        model.TransactionStatusCompleted,
			Reference:     cmd.Receipt,
			SettledAt:     now,
		}); err != nil {
			return err
		}

		txn.Status = model.TransactionStatusCompleted
		txn.UpdatedAt = now
		if cmd.Receipt != "" {
			txn.Reference = cmd.Receipt
		}

		if err := l.accountRepo.Ensure(ctx, txn.UserID); err != nil {
			return NewServiceError(constants.ErrCodeOperationFailed, err)
		}

		if err := l.accountRepo.AdjustBalance(ctx, txn.UserID, txn.Direction.BalanceDelta(txn.Amount)); err != nil {
			l.log.Error("error adjust balance", zap.String("user_id", txn.UserID), zap.Error(err))
			return NewServiceError(constants.ErrCodeOperationFailed, err)
		}

		message := fmt.Sprintf(constants.NotifyMsgPaymentReceived, txn.Amount, txn.Reference)
		if cmd.Simulated {
			message = fmt.Sprintf(constants.NotifyMsgPaymentReceivedSim, txn.Amount)
		}

		if err := l.notify(ctx, txn.UserID, constants.NotifyTitlePaymentReceived, message, model.NotificationKindSuccess); err != nil {
			return err
		}

		if err := l.followUp(ctx, *txn, constants.NotifyTitleDelayedConfirmed,
			fmt.Sprintf(constants.NotifyMsgDelayedConfirmed, txn.Amount, txn.ID), model.NotificationKindSuccess); err != nil {
			return err
		}

		settled = *txn
		return l.recordEvent(ctx, settled)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	l.log.Info("Transaction completed",
		zap.String("transaction_id", settled.ID),
		zap.String("user_id", settled.UserID),
		zap.Int64("amount", settled.Amount),
		zap.String("reference", settled.Reference),
	)

	l.metrics.RecordSettlement(string(settled.Direction), string(settled.Status), settled.Amount)
	l.notifier.Publish(ctx, settled)

	return settled, nil
}

func (l *ledgerService) Fail(ctx context.Context, cmd FailCommand) (model.Transaction, error) {
	reason := cmd.Reason
	if reason == "" {
		reason = constants.DefaultFailureReason
	}

	var settled model.Transaction

	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		txn, err := l.loadPending(ctx, cmd.TransactionID)
		if err != nil {
			return err
		}

		now := l.now()
		description := fmt.Sprintf(constants.DescriptionFailedFormat, reason)
		if err := l.settle(ctx, model.Settlement{
			TransactionID: txn.ID,
			Status:        model.TransactionStatusFailed,
			Description:   description,
			SettledAt:     now,
		}); err != nil {
			return err
		}

		txn.Status = model.TransactionStatusFailed
		txn.Description = description
		txn.UpdatedAt = now

		if err := l.notify(ctx, txn.UserID, constants.NotifyTitlePaymentFailed,
			fmt.Sprintf(constants.NotifyMsgPaymentFailed, reason), model.NotificationKindError); err != nil {
			return err
		}

		if err := l.followUp(ctx, *txn, constants.NotifyTitleDelayedUpdate,
			fmt.Sprintf(constants.NotifyMsgDelayedUpdate, txn.Amount, txn.ID, reason), model.NotificationKindWarning); err != nil {
			return err
		}

		settled = *txn
		return l.recordEvent(ctx, settled)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	l.log.Info("Transaction failed",
		zap.String("transaction_id", settled.ID),
		zap.String("user_id", settled.UserID),
		zap.String("reason", reason),
	)

	l.metrics.RecordSettlement(string(settled.Direction), string(settled.Status), settled.Amount)
	l.notifier.Publish(ctx, settled)

	return settled, nil
}

func (l *ledgerService) Withdraw(ctx context.Context, cmd WithdrawCommand) (model.Transaction, error) {
	now := l.now()
	txn := model.Transaction{
		ID:          WithdrawalIDPrefix + uuid.NewString(),
		UserID:      cmd.UserID,
		Amount:      cmd.Amount,
		Direction:   model.DirectionWithdrawal,
		Status:      model.TransactionStatusCompleted,
		PhoneNumber: cmd.PhoneNumber,
		Description: constants.DescriptionWithdrawal,
		Reference:   fmt.Sprintf("WID-REF-%d", rand.Intn(100000)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := l.accountRepo.Debit(ctx, cmd.UserID, cmd.Amount); err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) || errors.Is(err, repository.ErrAccountNotFound) {
				return NewServiceError(constants.ErrCodeInsufficientBalance, repository.ErrInsufficientBalance)
			}
			l.log.Error("error debit account", zap.String("user_id", cmd.UserID), zap.Error(err))
			return NewServiceError(constants.ErrCodeOperationFailed, err)
		}

		if err := l.transactionRepo.Create(ctx, &txn); err != nil {
			l.log.Error("error create withdrawal transaction", zap.Error(err))
			return NewServiceError(constants.ErrCodeOperationFailed, err)
		}

		if err := l.notify(ctx, txn.UserID, constants.NotifyTitleWithdrawal,
			fmt.Sprintf(constants.NotifyMsgWithdrawal, txn.Amount, txn.PhoneNumber, txn.Reference),
			model.NotificationKindSuccess); err != nil {
			return err
		}

		return l.recordEvent(ctx, txn)
	})
	if err != nil {
		l.metrics.RecordWithdrawal("error")
		return model.Transaction{}, err
	}

	l.log.Info("Withdrawal completed",
		zap.String("transaction_id", txn.ID),
		zap.String("user_id", txn.UserID),
		zap.Int64("amount", txn.Amount),
	)

	l.metrics.RecordWithdrawal("success")
	l.metrics.RecordSettlement(string(txn.Direction), string(txn.Status), txn.Amount)
	l.notifier.Publish(ctx, txn)

	return txn, nil
}

func (l *ledgerService) loadPending(ctx context.Context, id string) (*model.Transaction, error) {
	txn, err := l.transactionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, NewServiceError(constants.ErrCodeTransactionNotFound, err)
		}
		return nil, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	if txn.Status.IsTerminal() {
		return nil, ErrTransactionSettled
	}

	return txn, nil
}

// settle performs the conditional PENDING -> terminal update. Losing the race to a
// concurrent settlement yields ErrTransactionSettled and rolls the caller back.
func (l *ledgerService) settle(ctx context.Context, settlement model.Settlement) error {
	err := l.transactionRepo.SettlePending(ctx, settlement)
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrNoRowsAffected) {
		return ErrTransactionSettled
	}

	l.log.Error("error settle transaction", zap.String("transaction_id", settlement.TransactionID), zap.Error(err))
	return NewServiceError(constants.ErrCodeOperationFailed, err)
}

func (l *ledgerService) notify(ctx context.Context, userID, title, message string, kind model.NotificationKind) error {
	notification := model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		CreatedAt: l.now(),
	}

	if err := l.notificationRepo.Create(ctx, &notification); err != nil {
		l.log.Error("error create notification", zap.String("user_id", userID), zap.Error(err))
		return NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return nil
}

// followUp tells a user whose watch already timed out how the transaction ended.
func (l *ledgerService) followUp(ctx context.Context, txn model.Transaction, title, message string, kind model.NotificationKind) error {
	timedOut, err := l.timeoutRepo.Exists(ctx, txn.ID)
	if err != nil {
		return NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	if !timedOut {
		return nil
	}

	l.log.Warn("Transaction resolved after watch timeout",
		zap.String("transaction_id", txn.ID),
		zap.String("status", string(txn.Status)),
	)

	return l.notify(ctx, txn.UserID, title, message, kind)
}

func (l *ledgerService) recordEvent(ctx context.Context, txn model.Transaction) error {
	if !l.outbox {
		return nil
	}

	payload, err := events.Encode(txn)
	if err != nil {
		return NewServiceError(constants.ErrCodeInternalError, err)
	}

	event := model.TransactionEvent{
		TransactionID: txn.ID,
		Status:        txn.Status,
		Payload:       string(payload),
		CreatedAt:     l.now(),
	}

	if err := l.eventRepo.Create(ctx, &event); err != nil {
		l.log.Error("error create transaction event", zap.String("transaction_id", txn.ID), zap.Error(err))
		return NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return nil
}
