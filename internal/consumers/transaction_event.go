package consumers

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"github.com/levisbarua/pesaflow-1/pkg/mq"
	"go.uber.org/zap"
)

type TransactionEventConsumer interface {
	Consume(ctx context.Context) error
}

type transactionEventConsumer struct {
	notifier service.TransactionNotifier
	consumer mq.Consumer
	queue    string
	prefetch int
	logger   *zap.Logger
}

// NewTransactionEventConsumer relays broker events into notifier, normally the
// in-process hub, so watchers on this instance see commits made by other instances.
func NewTransactionEventConsumer(notifier service.TransactionNotifier, consumer mq.Consumer, queue string,
	prefetch int, logger *zap.Logger,
) TransactionEventConsumer {
	return &transactionEventConsumer{
		notifier: notifier,
		consumer: consumer,
		queue:    queue,
		prefetch: prefetch,
		logger:   logger,
	}
}

func (c *transactionEventConsumer) Consume(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.prefetch, c.queue, c.handleMessage)
}

func (c *transactionEventConsumer) handleMessage(ctx context.Context, body []byte) error {
	txn, err := events.Decode(body)
	if err != nil {
		// Malformed payloads are dropped; requeueing would loop forever.
		c.logger.Warn("invalid transaction event", zap.ByteString("body", body), zap.Error(err))
		return err
	}

	c.logger.Debug("received transaction event",
		zap.String("transaction_id", txn.ID),
		zap.String("status", string(txn.Status)))

	c.notifier.Publish(ctx, txn)
	return nil
}
