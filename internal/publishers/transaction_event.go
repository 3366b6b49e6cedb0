package publishers

import (
	"context"
	"errors"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"github.com/levisbarua/pesaflow-1/pkg/mq"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

type TransactionEventPublisher interface {
	// Publish forwards one batch of outbox rows and returns how many were marked published.
	Publish(ctx context.Context) (int, error)
}

type transactionEventPublisher struct {
	eventRepo repository.TransactionEventRepository
	publisher mq.Publisher
	exchange  string
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewTransactionEventPublisher(eventRepo repository.TransactionEventRepository, publisher mq.Publisher,
	exchange string, batchSize int, logger *zap.Logger, metrics *metrics.Metrics,
) TransactionEventPublisher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &transactionEventPublisher{
		eventRepo: eventRepo,
		publisher: publisher,
		exchange:  exchange,
		batchSize: batchSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// Publish delivers at least once: a row whose broker publish succeeded but whose
// mark failed is sent again on the next run. Consumers tolerate repeats.
func (p *transactionEventPublisher) Publish(ctx context.Context) (int, error) {
	pending, err := p.eventRepo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}

	if len(pending) == 0 {
		return 0, nil
	}

	p.logger.Debug("Publishing transaction events", zap.Int("count", len(pending)))

	published := 0
	for _, event := range pending {
		if err := p.publisher.Publish(ctx, p.exchange, "", []byte(event.Payload)); err != nil {
			p.logger.Error("Failed to publish transaction event",
				zap.Int64("event_id", event.ID),
				zap.String("transaction_id", event.TransactionID),
				zap.Error(err))
			p.metrics.RecordEventPublished("error")
			// Keep outbox order per transaction: stop at the first broker failure.
			return published, err
		}

		if err := p.eventRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				p.logger.Debug("Transaction event already marked by another publisher", zap.Int64("event_id", event.ID))
				continue
			}
			p.logger.Error("Failed to mark transaction event published", zap.Int64("event_id", event.ID), zap.Error(err))
			p.metrics.RecordEventPublished("mark_error")
			continue
		}

		p.metrics.RecordEventPublished("success")
		published++
	}

	if published > 0 {
		p.logger.Info("Published transaction events",
			zap.Int("published", published),
			zap.Int("total", len(pending)))
	}

	return published, nil
}

// Run publishes on every tick until ctx ends.
func Run(ctx context.Context, publisher TransactionEventPublisher, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := publisher.Publish(ctx); err != nil && ctx.Err() == nil {
				logger.Error("failed to publish transaction events", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("event publisher context cancelled")
			return
		}
	}
}
