package service

import (
	"context"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"go.uber.org/zap"
)

const (
	ModeProduction = "PRODUCTION"
	ModeSimulation = "SIMULATION"
)

// PaymentGateway starts a deposit and writes its PENDING record. Resolution
// always arrives later through CallbackService.
type PaymentGateway interface {
	Mode() string
	Ping(ctx context.Context) error
	Initiate(ctx context.Context, cmd InitiateCommand) (InitiateResult, error)
}

type GatewayConfig struct {
	ForceSimulation     bool          `mapstructure:"force_simulation"`
	ProbeBeforeInitiate bool          `mapstructure:"probe_before_initiate"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
}

type GatewaySelector interface {
	// Select returns the gateway a new deposit should use.
	Select(ctx context.Context) PaymentGateway
	// Fallback is used when the selected gateway turns out to be unreachable.
	Fallback() PaymentGateway
	// Mode probes the provider and reports which gateway is currently effective.
	Mode(ctx context.Context) string
}

type gatewaySelector struct {
	provider   PaymentGateway
	simulation PaymentGateway
	cfg        GatewayConfig
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewGatewaySelector accepts a nil provider when the real gateway is disabled.
func NewGatewaySelector(provider, simulation PaymentGateway, cfg GatewayConfig,
	log *zap.Logger, metrics *metrics.Metrics,
) GatewaySelector {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}

	return &gatewaySelector{provider: provider, simulation: simulation, cfg: cfg, log: log, metrics: metrics}
}

func (g *gatewaySelector) Select(ctx context.Context) PaymentGateway {
	if g.cfg.ForceSimulation || g.provider == nil {
		return g.simulation
	}

	if !g.cfg.ProbeBeforeInitiate {
		return g.provider
	}

	if err := g.probe(ctx); err != nil {
		g.log.Warn("Provider probe failed, using simulation", zap.Error(err))
		g.metrics.RecordGatewayFallback("probe_failed")
		return g.simulation
	}

	return g.provider
}

func (g *gatewaySelector) Fallback() PaymentGateway {
	return g.simulation
}

func (g *gatewaySelector) Mode(ctx context.Context) string {
	if g.cfg.ForceSimulation || g.provider == nil {
		return ModeSimulation
	}

	if err := g.probe(ctx); err != nil {
		return ModeSimulation
	}

	return ModeProduction
}

func (g *gatewaySelector) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()

	return g.provider.Ping(ctx)
}
