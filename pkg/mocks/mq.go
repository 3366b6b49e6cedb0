package mocks

import (
	"context"

	"github.com/levisbarua/pesaflow-1/pkg/mq"
	"github.com/stretchr/testify/mock"
)

type Publisher struct {
	mock.Mock
}

func (_m *Publisher) Publish(ctx context.Context, exchange string, routingKey string, body []byte) error {
	ret := _m.Called(ctx, exchange, routingKey, body)
	return ret.Error(0)
}

type Consumer struct {
	mock.Mock
}

func (_m *Consumer) Consume(ctx context.Context, prefetch int, queue string, handler mq.Handle) error {
	ret := _m.Called(ctx, prefetch, queue, handler)
	return ret.Error(0)
}
