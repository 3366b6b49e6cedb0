package mq

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// cancelGrace gives in-flight deliveries a moment to drain after the consumer is cancelled.
const cancelGrace = 50 * time.Millisecond

type Handle func(ctx context.Context, body []byte) error

type Consumer interface {
	Consume(ctx context.Context, prefetch int, queue string, handler Handle) error
}

type RabbitConsumer struct {
	ch *amqp.Channel
}

func NewRabbitConsumer(ch *amqp.Channel) Consumer {
	return &RabbitConsumer{ch: ch}
}

// Consume blocks until ctx ends or the broker closes the delivery channel, which
// is reported as ErrDeliveriesClosed.
func (c *RabbitConsumer) Consume(ctx context.Context, prefetch int, queue string, handler Handle) error {
	if prefetch <= 0 {
		prefetch = 1
	}

	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(queue, "", false, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.ch.Cancel("", false)
			time.Sleep(cancelGrace)
			return ctx.Err()

		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			Dispatch(ctx, d, handler)
		}
	}
}

// Dispatch runs handler for one delivery. Success acks; failure nacks and only
// requeues when the error is Temporary.
func Dispatch(ctx context.Context, d amqp.Delivery, handler Handle) {
	if err := handler(ctx, d.Body); err != nil {
		_ = d.Nack(false, ShouldRequeue(err))
		return
	}

	_ = d.Ack(false)
}

func ShouldRequeue(err error) bool {
	var te TempError
	return errors.As(err, &te) && te.Temporary()
}
