package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"go.uber.org/zap"
)

const (
	SimulatedIDPrefix = "SIM-"

	defaultSimulationDelay   = 5 * time.Second
	simulatedCallbackTimeout = 30 * time.Second
	resumeBatchSize          = 1000
)

type SimulationConfig struct {
	Force       bool          `mapstructure:"force"`
	Delay       time.Duration `mapstructure:"delay"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

// SimulationGateway stands in for the provider. It writes the same PENDING record
// and later feeds a synthetic callback through CallbackService.
type SimulationGateway struct {
	cfg             SimulationConfig
	ledger          LedgerService
	callbacks       CallbackService
	transactionRepo repository.TransactionRepository
	log             *zap.Logger
	metrics         *metrics.Metrics
	chance          func() float64

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewSimulationGateway(cfg SimulationConfig, ledger LedgerService, callbacks CallbackService,
	transactionRepo repository.TransactionRepository, log *zap.Logger, metrics *metrics.Metrics,
) *SimulationGateway {
	if cfg.Delay <= 0 {
		cfg.Delay = defaultSimulationDelay
	}

	return &SimulationGateway{
		cfg:             cfg,
		ledger:          ledger,
		callbacks:       callbacks,
		transactionRepo: transactionRepo,
		log:             log,
		metrics:         metrics,
		chance:          rand.Float64,
		timers:          make(map[string]*time.Timer),
	}
}

func (g *SimulationGateway) Mode() string {
	return ModeSimulation
}

func (g *SimulationGateway) Ping(context.Context) error {
	return nil
}

func (g *SimulationGateway) Initiate(ctx context.Context, cmd InitiateCommand) (InitiateResult, error) {
	id := SimulatedIDPrefix + uuid.NewString()
	merchantRequestID := "SIM-MR-" + uuid.NewString()[:8]

	txn, err := g.ledger.OpenPending(ctx, OpenPendingCommand{
		TransactionID:     id,
		MerchantRequestID: merchantRequestID,
		UserID:            cmd.UserID,
		PhoneNumber:       cmd.PhoneNumber,
		Amount:            cmd.Amount,
		Direction:         model.DirectionDeposit,
		Description:       constants.DescriptionTopupSimulated,
	})
	if err != nil {
		g.metrics.RecordPaymentInitiated(ModeSimulation, "error")
		return InitiateResult{}, err
	}

	g.schedule(id, g.cfg.Delay)
	g.metrics.RecordPaymentInitiated(ModeSimulation, "success")

	g.log.Info("Simulated STK push scheduled",
		zap.String("transaction_id", id),
		zap.Duration("delay", g.cfg.Delay))

	return InitiateResult{
		TransactionID:       txn.ID,
		MerchantRequestID:   merchantRequestID,
		ResponseCode:        mpesa.ResponseCodeAccepted,
		ResponseDescription: constants.SimulationAcceptedDescription,
		CustomerMessage:     constants.SimulationAcceptedDescription,
		Mode:                ModeSimulation,
		Status:              txn.Status,
	}, nil
}

// Resume reschedules callbacks for simulated transactions left PENDING by a restart.
func (g *SimulationGateway) Resume(ctx context.Context) (int, error) {
	pending, err := g.transactionRepo.FindPendingByPrefix(ctx, SimulatedIDPrefix, resumeBatchSize)
	if err != nil {
		return 0, err
	}

	for _, txn := range pending {
		remaining := g.cfg.Delay - time.Since(txn.CreatedAt)
		if remaining < 0 {
			remaining = 0
		}
		g.schedule(txn.ID, remaining)
	}

	if len(pending) > 0 {
		g.log.Info("Resumed simulated transactions", zap.Int("count", len(pending)))
	}

	return len(pending), nil
}

func (g *SimulationGateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	for id, timer := range g.timers {
		timer.Stop()
		delete(g.timers, id)
	}
}

// Scheduled returns the number of callbacks waiting to fire.
func (g *SimulationGateway) Scheduled() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.timers)
}

func (g *SimulationGateway) schedule(id string, delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}

	if _, exists := g.timers[id]; exists {
		return
	}

	g.timers[id] = time.AfterFunc(delay, func() {
		g.fire(id)
	})
}

func (g *SimulationGateway) fire(id string) {
	g.mu.Lock()
	delete(g.timers, id)
	stopped := g.stopped
	g.mu.Unlock()

	if stopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), simulatedCallbackTimeout)
	defer cancel()

	cmd := g.outcome(id)
	result, err := g.callbacks.HandleCallback(ctx, cmd)
	if err != nil {
		g.log.Error("Simulated callback failed", zap.String("transaction_id", id), zap.Error(err))
		return
	}

	g.log.Info("Simulated callback delivered",
		zap.String("transaction_id", id),
		zap.Int("result_code", cmd.ResultCode),
		zap.String("result", string(result)))
}

func (g *SimulationGateway) outcome(id string) CallbackCommand {
	cmd := CallbackCommand{
		CheckoutRequestID: id,
		Simulated:         true,
	}

	if g.cfg.FailureRate > 0 && g.chance() < g.cfg.FailureRate {
		cmd.ResultCode = mpesa.ResultCodeCancelledUser
		cmd.ResultDesc = constants.SimulationCancelledReason
		return cmd
	}

	cmd.ResultCode = mpesa.ResultCodeSuccess
	cmd.ResultDesc = "The service request is processed successfully."
	cmd.Receipt = fmt.Sprintf("SIM-REF-%d", rand.Intn(100000))

	return cmd
}
