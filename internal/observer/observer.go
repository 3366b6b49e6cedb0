// Package observer waits for a transaction to reach a terminal state.
package observer

import (
	"context"
	"errors"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"go.uber.org/zap"
)

const DefaultTimeout = 60 * time.Second

type Outcome string

const (
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeTimeout   Outcome = "TIMEOUT"
	OutcomeCancelled Outcome = "CANCELLED"
)

type Config struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type Result struct {
	Outcome     Outcome           `json:"outcome"`
	Message     string            `json:"message,omitempty"`
	Transaction model.Transaction `json:"transaction"`
}

type Subscriber interface {
	Subscribe(transactionID string) *events.Subscription
}

type Observer struct {
	hub             Subscriber
	transactionRepo repository.TransactionRepository
	timeoutRepo     repository.ObservationTimeoutRepository
	timeout         time.Duration
	log             *zap.Logger
	metrics         *metrics.Metrics
}

func New(cfg Config, hub Subscriber, transactionRepo repository.TransactionRepository,
	timeoutRepo repository.ObservationTimeoutRepository, log *zap.Logger, metrics *metrics.Metrics,
) *Observer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Observer{
		hub:             hub,
		transactionRepo: transactionRepo,
		timeoutRepo:     timeoutRepo,
		timeout:         timeout,
		log:             log,
		metrics:         metrics,
	}
}

// Watch calls onUpdate for the current snapshot and every later change until the
// transaction turns terminal, the bounded wait elapses or ctx ends. A timeout is
// recorded on its own row and never modifies the transaction.
func (o *Observer) Watch(ctx context.Context, transactionID string, onUpdate func(model.Transaction)) (Result, error) {
	// Subscribe before reading so a commit between the two is not missed.
	sub := o.hub.Subscribe(transactionID)
	defer sub.Close()

	current, err := o.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, repository.ErrTransactionNotFound) {
			o.log.Error("Failed to load watched transaction", zap.String("transaction_id", transactionID), zap.Error(err))
		}
		return Result{}, err
	}

	o.metrics.WatchStarted()
	defer o.metrics.WatchFinished()

	last := *current
	if onUpdate != nil {
		onUpdate(last)
	}
	if last.Status.IsTerminal() {
		return o.finish(terminalResult(last)), nil
	}

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	for {
		select {
		case txn := <-sub.Updates():
			if txn.Status == last.Status && txn.UpdatedAt.Equal(last.UpdatedAt) {
				continue
			}
			last = txn
			if onUpdate != nil {
				onUpdate(txn)
			}
			if txn.Status.IsTerminal() {
				return o.finish(terminalResult(txn)), nil
			}

		case <-timer.C:
			o.recordTimeout(ctx, last)

			// A settlement may have committed without reaching this hub.
			if latest, ok := o.reload(ctx, last); ok {
				if onUpdate != nil {
					onUpdate(latest)
				}
				return o.finish(terminalResult(latest)), nil
			}

			return o.finish(Result{
				Outcome:     OutcomeTimeout,
				Message:     constants.MsgObservationTimeout,
				Transaction: last,
			}), nil

		case <-ctx.Done():
			return o.finish(Result{Outcome: OutcomeCancelled, Transaction: last}), nil
		}
	}
}

func (o *Observer) recordTimeout(ctx context.Context, txn model.Transaction) {
	err := o.timeoutRepo.Record(context.WithoutCancel(ctx), &model.ObservationTimeout{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		TimedOutAt:    time.Now().UTC(),
	})
	if err != nil {
		o.log.Error("Failed to record observation timeout", zap.String("transaction_id", txn.ID), zap.Error(err))
		return
	}

	o.log.Warn("Transaction watch timed out",
		zap.String("transaction_id", txn.ID),
		zap.Duration("timeout", o.timeout))
}

// reload reports the stored record when it has turned terminal since last.
func (o *Observer) reload(ctx context.Context, last model.Transaction) (model.Transaction, bool) {
	latest, err := o.transactionRepo.GetByID(context.WithoutCancel(ctx), last.ID)
	if err != nil {
		o.log.Error("Failed to reload watched transaction", zap.String("transaction_id", last.ID), zap.Error(err))
		return model.Transaction{}, false
	}

	return *latest, latest.Status.IsTerminal()
}

func (o *Observer) finish(result Result) Result {
	o.metrics.RecordObserverOutcome(string(result.Outcome))
	return result
}

func terminalResult(txn model.Transaction) Result {
	if txn.Status == model.TransactionStatusCompleted {
		return Result{Outcome: OutcomeCompleted, Transaction: txn}
	}

	return Result{Outcome: OutcomeFailed, Message: txn.Description, Transaction: txn}
}
