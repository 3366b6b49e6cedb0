package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers only to watchers of the same id", func(t *testing.T) {
		hub := events.NewHub(zap.NewNop())
		sub := hub.Subscribe("a")
		other := hub.Subscribe("b")
		defer sub.Close()
		defer other.Close()

		hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusCompleted})

		select {
		case txn := <-sub.Updates():
			assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
		case <-time.After(time.Second):
			t.Fatal("expected update")
		}

		select {
		case <-other.Updates():
			t.Fatal("unexpected update for other id")
		default:
		}
	})

	t.Run("keeps latest value for slow reader", func(t *testing.T) {
		hub := events.NewHub(zap.NewNop())
		sub := hub.Subscribe("a")
		defer sub.Close()

		hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusPending})
		hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusFailed})

		txn := <-sub.Updates()
		assert.Equal(t, model.TransactionStatusFailed, txn.Status)
	})

	t.Run("late echo does not replace a newer unread snapshot", func(t *testing.T) {
		hub := events.NewHub(zap.NewNop())
		sub := hub.Subscribe("a")
		defer sub.Close()

		opened := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		completed := model.Transaction{ID: "a", Status: model.TransactionStatusCompleted, UpdatedAt: opened.Add(5 * time.Second)}

		hub.Publish(ctx, completed)
		hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusPending, UpdatedAt: opened})

		txn := <-sub.Updates()
		assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
		assert.Len(t, sub.Updates(), 0)
	})

	t.Run("non-terminal after terminal is dropped even when already read", func(t *testing.T) {
		hub := events.NewHub(zap.NewNop())
		sub := hub.Subscribe("a")
		defer sub.Close()

		at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusFailed, UpdatedAt: at})
		<-sub.Updates()

		hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusPending, UpdatedAt: at})

		select {
		case txn := <-sub.Updates():
			t.Fatalf("unexpected snapshot %s", txn.Status)
		default:
		}
	})

	t.Run("publish never blocks with concurrent publishers", func(t *testing.T) {
		hub := events.NewHub(zap.NewNop())
		sub := hub.Subscribe("a")
		defer sub.Close()

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hub.Publish(ctx, model.Transaction{ID: "a", Status: model.TransactionStatusPending})
			}()
		}
		wg.Wait()

		assert.Len(t, sub.Updates(), 1)
	})

	t.Run("close removes subscription", func(t *testing.T) {
		hub := events.NewHub(zap.NewNop())
		sub := hub.Subscribe("a")
		require.Equal(t, 1, hub.Subscribers("a"))

		sub.Close()
		sub.Close()

		assert.Equal(t, 0, hub.Subscribers("a"))
		hub.Publish(ctx, model.Transaction{ID: "a"})
	})
}

func TestEncodeDecode(t *testing.T) {
	_, err := events.Decode([]byte(`{"status":"PENDING"}`))
	assert.Error(t, err)

	_, err = events.Decode([]byte(`not json`))
	assert.Error(t, err)

	body, err := events.Encode(model.Transaction{ID: "ws_CO_1", Amount: 500, Status: model.TransactionStatusCompleted})
	require.NoError(t, err)

	txn, err := events.Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", txn.ID)
	assert.Equal(t, int64(500), txn.Amount)
}
