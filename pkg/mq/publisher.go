package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const appID = "pesaflow"

type Publisher interface {
	Publish(ctx context.Context, exchange string, routingKey string, body []byte) error
}

type RabbitPublisher struct {
	ch  *amqp.Channel
	now func() time.Time
}

func NewRabbitPublisher(ch *amqp.Channel) Publisher {
	return &RabbitPublisher{ch: ch, now: time.Now}
}

func (r *RabbitPublisher) Publish(ctx context.Context, exchange string, routingKey string, body []byte) error {
	return r.ch.PublishWithContext(ctx, exchange, routingKey, false, false, Message(body, r.now()))
}

// Message builds the persistent JSON publishing used for transaction events.
func Message(body []byte, at time.Time) amqp.Publishing {
	return amqp.Publishing{
		AppId:        appID,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at.UTC(),
		Body:         body,
	}
}

func (r *RabbitPublisher) Close() error {
	if r.ch != nil {
		return r.ch.Close()
	}

	return nil
}
