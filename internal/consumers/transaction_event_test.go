package consumers_test

import (
	"context"
	"testing"

	"github.com/levisbarua/pesaflow-1/internal/consumers"
	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/mocks"
	"github.com/levisbarua/pesaflow-1/internal/model"
	pkgmocks "github.com/levisbarua/pesaflow-1/pkg/mocks"
	"github.com/levisbarua/pesaflow-1/pkg/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureHandler runs Consume against a mock broker and returns the handler it registered.
func captureHandler(t *testing.T, notifier *mocks.TransactionNotifier) mq.Handle {
	t.Helper()

	broker := &pkgmocks.Consumer{}
	var handler mq.Handle
	broker.On("Consume", mock.Anything, 10, "amq.gen-1", mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(3).(mq.Handle)
		}).
		Return(nil)

	consumer := consumers.NewTransactionEventConsumer(notifier, broker, "amq.gen-1", 10, zap.NewNop())
	require.NoError(t, consumer.Consume(context.Background()))
	require.NotNil(t, handler)

	return handler
}

func TestTransactionEventConsumer(t *testing.T) {
	ctx := context.Background()

	t.Run("relays decoded snapshot", func(t *testing.T) {
		notifier := &mocks.TransactionNotifier{}
		handler := captureHandler(t, notifier)

		txn := model.Transaction{ID: "ws_CO_1", UserID: "user-1", Status: model.TransactionStatusCompleted, Amount: 500}
		body, err := events.Encode(txn)
		require.NoError(t, err)

		notifier.On("Publish", ctx, mock.MatchedBy(func(got model.Transaction) bool {
			return got.ID == "ws_CO_1" && got.Status == model.TransactionStatusCompleted && got.Amount == 500
		})).Return()

		require.NoError(t, handler(ctx, body))
		notifier.AssertExpectations(t)
	})

	t.Run("malformed payload is dropped without requeue", func(t *testing.T) {
		notifier := &mocks.TransactionNotifier{}
		handler := captureHandler(t, notifier)

		err := handler(ctx, []byte(`{"status":"COMPLETED"}`))

		assert.Error(t, err)
		assert.False(t, mq.ShouldRequeue(err))
		notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}
