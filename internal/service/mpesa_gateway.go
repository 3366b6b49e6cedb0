package service

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"go.uber.org/zap"
)

// MpesaGateway sends a real STK push and records the provider's handle as PENDING.
type MpesaGateway struct {
	client  mpesa.Client
	ledger  LedgerService
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewMpesaGateway(client mpesa.Client, ledger LedgerService, log *zap.Logger, metrics *metrics.Metrics) *MpesaGateway {
	return &MpesaGateway{client: client, ledger: ledger, log: log, metrics: metrics}
}

func (g *MpesaGateway) Mode() string {
	return ModeProduction
}

func (g *MpesaGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}

// Initiate returns provider errors unwrapped so the caller can tell an unreachable
// provider apart from a rejection.
func (g *MpesaGateway) Initiate(ctx context.Context, cmd InitiateCommand) (InitiateResult, error) {
	response, err := g.client.Initiate(ctx, mpesa.STKPushRequest{
		PhoneNumber:      cmd.PhoneNumber,
		Amount:           cmd.Amount,
		AccountReference: cmd.AccountReference,
	})
	if err != nil {
		g.metrics.RecordPaymentInitiated(ModeProduction, "error")
		return InitiateResult{}, err
	}

	txn, err := g.ledger.OpenPending(ctx, OpenPendingCommand{
		TransactionID:     response.CheckoutRequestID,
		MerchantRequestID: response.MerchantRequestID,
		UserID:            cmd.UserID,
		PhoneNumber:       cmd.PhoneNumber,
		Amount:            cmd.Amount,
		Direction:         model.DirectionDeposit,
		Description:       constants.DescriptionTopup,
	})
	if err != nil {
		// The push already reached the payer; a callback for an unknown id will be ignored.
		g.log.Error("STK push accepted but pending record not written",
			zap.String("checkout_request_id", response.CheckoutRequestID),
			zap.Error(err))
		g.metrics.RecordPaymentInitiated(ModeProduction, "error")
		return InitiateResult{}, err
	}

	g.metrics.RecordPaymentInitiated(ModeProduction, "success")

	return InitiateResult{
		TransactionID:       txn.ID,
		MerchantRequestID:   response.MerchantRequestID,
		ResponseCode:        response.ResponseCode,
		ResponseDescription: response.ResponseDescription,
		CustomerMessage:     response.CustomerMessage,
		Mode:                ModeProduction,
		Status:              txn.Status,
	}, nil
}
