package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/events"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository/inmem"
	"github.com/levisbarua/pesaflow-1/internal/service"
	pkgmocks "github.com/levisbarua/pesaflow-1/pkg/mocks"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wallet struct {
	store      *inmem.Store
	hub        *events.Hub
	ledger     service.LedgerService
	callbacks  service.CallbackService
	simulation *service.SimulationGateway
	query      service.QueryService
}

func newWallet(t *testing.T, sim service.SimulationConfig) *wallet {
	t.Helper()

	logger := zap.NewNop()
	store := inmem.NewStore()
	hub := events.NewHub(logger)

	ledger := service.NewLedgerService(store, store.Transactions(), store.Accounts(), store.Notifications(),
		store.TransactionEvents(), store.ObservationTimeouts(), hub, logger, nil)
	callbacks := service.NewCallbackService(store.Transactions(), ledger, logger, nil)
	simulation := service.NewSimulationGateway(sim, ledger, callbacks, store.Transactions(), logger, nil)
	t.Cleanup(simulation.Stop)

	return &wallet{
		store:      store,
		hub:        hub,
		ledger:     ledger,
		callbacks:  callbacks,
		simulation: simulation,
		query:      service.NewQueryService(store.Transactions(), store.Accounts(), store.Notifications(), logger),
	}
}

func (w *wallet) open(t *testing.T, id string, amount int64) {
	t.Helper()

	_, err := w.ledger.OpenPending(context.Background(), service.OpenPendingCommand{
		TransactionID: id,
		UserID:        "user-1",
		PhoneNumber:   "254712345678",
		Amount:        amount,
		Direction:     model.DirectionDeposit,
		Description:   constants.DescriptionTopup,
	})
	require.NoError(t, err)
}

func (w *wallet) balance(t *testing.T) int64 {
	t.Helper()

	balance, err := w.query.GetBalance(context.Background(), "user-1")
	require.NoError(t, err)
	return balance.Balance
}

func (w *wallet) notifications(t *testing.T) []model.Notification {
	t.Helper()

	page, err := w.query.ListNotifications(context.Background(), service.PageQuery{UserID: "user-1", Limit: service.MaxPageLimit})
	require.NoError(t, err)
	return page.Notifications
}

func TestScenario_DepositLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("successful callback credits once", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_1", 500)

		result, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_1", Receipt: "ABC123"})
		require.NoError(t, err)
		assert.Equal(t, service.CallbackProcessed, result)

		txn, err := w.query.GetTransaction(ctx, "user-1", "ws_CO_1")
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
		assert.Equal(t, "ABC123", txn.Reference)
		assert.Equal(t, int64(500), w.balance(t))

		notifications := w.notifications(t)
		require.Len(t, notifications, 1)
		assert.Equal(t, constants.NotifyTitlePaymentReceived, notifications[0].Title)
		assert.Contains(t, notifications[0].Message, "ABC123")
	})

	t.Run("failed callback leaves balance untouched", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_2", 300)

		_, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{
			CheckoutRequestID: "ws_CO_2",
			ResultCode:        1,
			ResultDesc:        "Insufficient funds on payer side",
		})
		require.NoError(t, err)

		txn, err := w.query.GetTransaction(ctx, "user-1", "ws_CO_2")
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusFailed, txn.Status)
		assert.Contains(t, txn.Description, "Insufficient funds on payer side")
		assert.Equal(t, int64(0), w.balance(t))

		notifications := w.notifications(t)
		require.Len(t, notifications, 1)
		assert.Equal(t, model.NotificationKindError, notifications[0].Kind)
	})

	t.Run("unknown handle changes nothing", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})

		result, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "XYZ", Receipt: "R"})
		require.NoError(t, err)
		assert.Equal(t, service.CallbackIgnoredNotFound, result)
		assert.Equal(t, int64(0), w.balance(t))
		assert.Empty(t, w.notifications(t))
	})

	t.Run("repeated callbacks apply once", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_3", 500)

		for i := 0; i < 5; i++ {
			result, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_3", Receipt: "ABC123"})
			require.NoError(t, err)
			if i == 0 {
				assert.Equal(t, service.CallbackProcessed, result)
			} else {
				assert.Equal(t, service.CallbackAlreadyProcessed, result)
			}
		}

		assert.Equal(t, int64(500), w.balance(t))
		assert.Len(t, w.notifications(t), 1)
	})

	t.Run("concurrent callbacks apply once", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_4", 700)

		var wg sync.WaitGroup
		results := make(chan service.CallbackResult, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				cmd := service.CallbackCommand{CheckoutRequestID: "ws_CO_4", Receipt: "ABC123"}
				if i%2 == 1 {
					cmd = service.CallbackCommand{CheckoutRequestID: "ws_CO_4", ResultCode: 1032, ResultDesc: "Request cancelled by user"}
				}
				result, err := w.callbacks.HandleCallback(ctx, cmd)
				assert.NoError(t, err)
				results <- result
			}(i)
		}
		wg.Wait()
		close(results)

		processed := 0
		for result := range results {
			if result == service.CallbackProcessed {
				processed++
			}
		}
		assert.Equal(t, 1, processed)

		txn, err := w.query.GetTransaction(ctx, "user-1", "ws_CO_4")
		require.NoError(t, err)
		if txn.Status == model.TransactionStatusCompleted {
			assert.Equal(t, int64(700), w.balance(t))
		} else {
			assert.Equal(t, model.TransactionStatusFailed, txn.Status)
			assert.Equal(t, int64(0), w.balance(t))
		}
		assert.Len(t, w.notifications(t), 1)
	})

	t.Run("terminal states are sinks", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_5", 100)

		_, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_5", ResultCode: 1, ResultDesc: "declined"})
		require.NoError(t, err)

		result, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_5", Receipt: "LATE"})
		require.NoError(t, err)
		assert.Equal(t, service.CallbackAlreadyProcessed, result)

		_, err = w.ledger.Complete(ctx, service.CompleteCommand{TransactionID: "ws_CO_5", Receipt: "LATE"})
		assert.ErrorIs(t, err, service.ErrTransactionSettled)

		txn, err := w.query.GetTransaction(ctx, "user-1", "ws_CO_5")
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusFailed, txn.Status)
		assert.Equal(t, int64(0), w.balance(t))
	})

	t.Run("late callback after watch timeout sends follow-up", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_6", 250)

		require.NoError(t, w.store.ObservationTimeouts().Record(ctx, &model.ObservationTimeout{
			TransactionID: "ws_CO_6",
			UserID:        "user-1",
			TimedOutAt:    time.Now().UTC(),
		}))

		_, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_6", Receipt: "LATE1"})
		require.NoError(t, err)

		titles := []string{}
		for _, n := range w.notifications(t) {
			titles = append(titles, n.Title)
		}
		assert.ElementsMatch(t, []string{constants.NotifyTitlePaymentReceived, constants.NotifyTitleDelayedConfirmed}, titles)
		assert.Equal(t, int64(250), w.balance(t))
	})

	t.Run("every commit lands in the outbox", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_7", 100)

		_, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_7", Receipt: "R7"})
		require.NoError(t, err)

		pending, err := w.store.TransactionEvents().FindUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, model.TransactionStatusPending, pending[0].Status)
		assert.Equal(t, model.TransactionStatusCompleted, pending[1].Status)

		decoded, err := events.Decode([]byte(pending[1].Payload))
		require.NoError(t, err)
		assert.Equal(t, "R7", decoded.Reference)
	})

	t.Run("hub subscribers see the settlement", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{})
		w.open(t, "ws_CO_8", 100)

		sub := w.hub.Subscribe("ws_CO_8")
		defer sub.Close()

		_, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_8", Receipt: "R8"})
		require.NoError(t, err)

		select {
		case txn := <-sub.Updates():
			assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
		case <-time.After(time.Second):
			t.Fatal("no update delivered")
		}
	})
}

func TestScenario_Withdrawal(t *testing.T) {
	ctx := context.Background()

	w := newWallet(t, service.SimulationConfig{})
	withdrawals := service.NewWithdrawalService(w.ledger, "254", zap.NewNop())

	w.open(t, "ws_CO_1", 500)
	_, err := w.callbacks.HandleCallback(ctx, service.CallbackCommand{CheckoutRequestID: "ws_CO_1", Receipt: "ABC123"})
	require.NoError(t, err)

	txn, err := withdrawals.InitiateWithdrawal(ctx, service.WithdrawalCommand{
		UserID:      "user-1",
		PhoneNumber: "0712345678",
		Amount:      decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, model.DirectionWithdrawal, txn.Direction)
	assert.Equal(t, int64(300), w.balance(t))

	_, err = withdrawals.InitiateWithdrawal(ctx, service.WithdrawalCommand{
		UserID:      "user-1",
		PhoneNumber: "0712345678",
		Amount:      decimal.NewFromInt(301),
	})
	assert.True(t, service.HasCode(err, constants.ErrCodeInsufficientBalance))
	assert.Equal(t, int64(300), w.balance(t))

	_, err = withdrawals.InitiateWithdrawal(ctx, service.WithdrawalCommand{
		UserID:      "stranger",
		PhoneNumber: "0712345678",
		Amount:      decimal.NewFromInt(1),
	})
	assert.True(t, service.HasCode(err, constants.ErrCodeInsufficientBalance))

	page, err := w.query.ListTransactions(ctx, service.PageQuery{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, txn.ID, page.Transactions[0].ID)
}

func TestScenario_Simulation(t *testing.T) {
	ctx := context.Background()
	cmd := service.InitiateCommand{UserID: "user-1", PhoneNumber: "254712345678", Amount: 1000}

	t.Run("simulated deposit completes after delay", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{Delay: 10 * time.Millisecond})

		result, err := w.simulation.Initiate(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, service.ModeSimulation, result.Mode)
		assert.Equal(t, model.TransactionStatusPending, result.Status)
		assert.Equal(t, mpesa.ResponseCodeAccepted, result.ResponseCode)
		assert.Regexp(t, `^SIM-`, result.TransactionID)

		assert.Eventually(t, func() bool {
			txn, err := w.query.GetTransaction(ctx, "user-1", result.TransactionID)
			return err == nil && txn.Status == model.TransactionStatusCompleted
		}, 2*time.Second, 5*time.Millisecond)

		assert.Equal(t, int64(1000), w.balance(t))
		notifications := w.notifications(t)
		require.Len(t, notifications, 1)
		assert.Equal(t, fmt.Sprintf(constants.NotifyMsgPaymentReceivedSim, 1000), notifications[0].Message)
	})

	t.Run("failure rate one always fails", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{Delay: 10 * time.Millisecond, FailureRate: 1})

		result, err := w.simulation.Initiate(ctx, cmd)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			txn, err := w.query.GetTransaction(ctx, "user-1", result.TransactionID)
			return err == nil && txn.Status == model.TransactionStatusFailed
		}, 2*time.Second, 5*time.Millisecond)

		txn, err := w.query.GetTransaction(ctx, "user-1", result.TransactionID)
		require.NoError(t, err)
		assert.Contains(t, txn.Description, constants.SimulationCancelledReason)
		assert.Equal(t, int64(0), w.balance(t))
	})

	t.Run("simulated and real records share shape", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{Delay: time.Hour})

		client := &pkgmocks.MpesaClient{}
		client.On("Initiate", ctx, mock.Anything).Return(mpesa.STKPushResponse{
			MerchantRequestID: "29115-1",
			CheckoutRequestID: "ws_CO_real",
			ResponseCode:      "0",
		}, nil)
		provider := service.NewMpesaGateway(client, w.ledger, zap.NewNop(), nil)

		simResult, err := w.simulation.Initiate(ctx, cmd)
		require.NoError(t, err)
		realResult, err := provider.Initiate(ctx, cmd)
		require.NoError(t, err)

		sim, err := w.query.GetTransaction(ctx, "user-1", simResult.TransactionID)
		require.NoError(t, err)
		prod, err := w.query.GetTransaction(ctx, "user-1", realResult.TransactionID)
		require.NoError(t, err)

		assert.Equal(t, prod.Status, sim.Status)
		assert.Equal(t, prod.Direction, sim.Direction)
		assert.Equal(t, prod.Amount, sim.Amount)
		assert.Equal(t, prod.PhoneNumber, sim.PhoneNumber)
		assert.NotEmpty(t, sim.MerchantRequestID)
		assert.Equal(t, 1, w.simulation.Scheduled())
	})

	t.Run("stop cancels pending callbacks", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{Delay: 50 * time.Millisecond})

		result, err := w.simulation.Initiate(ctx, cmd)
		require.NoError(t, err)
		w.simulation.Stop()
		assert.Equal(t, 0, w.simulation.Scheduled())

		time.Sleep(100 * time.Millisecond)
		txn, err := w.query.GetTransaction(ctx, "user-1", result.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPending, txn.Status)
	})

	t.Run("resume reschedules simulated pending transactions", func(t *testing.T) {
		w := newWallet(t, service.SimulationConfig{Delay: 10 * time.Millisecond})

		_, err := w.ledger.OpenPending(ctx, service.OpenPendingCommand{
			TransactionID: service.SimulatedIDPrefix + "left-over",
			UserID:        "user-1",
			PhoneNumber:   "254712345678",
			Amount:        400,
			Description:   constants.DescriptionTopupSimulated,
		})
		require.NoError(t, err)
		w.open(t, "ws_CO_real", 100)

		resumed, err := w.simulation.Resume(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resumed)

		assert.Eventually(t, func() bool {
			balance, err := w.query.GetBalance(ctx, "user-1")
			return err == nil && balance.Balance == 400
		}, 2*time.Second, 5*time.Millisecond)

		txn, err := w.query.GetTransaction(ctx, "user-1", "ws_CO_real")
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPending, txn.Status)
	})
}
