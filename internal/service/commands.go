package service

import (
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/shopspring/decimal"
)

type DepositCommand struct {
	UserID           string
	PhoneNumber      string
	Amount           decimal.Decimal
	AccountReference string
}

type WithdrawalCommand struct {
	UserID      string
	PhoneNumber string
	Amount      decimal.Decimal
}

// InitiateCommand is a validated deposit handed to a PaymentGateway. Amount is
// already integral and PhoneNumber already normalized.
type InitiateCommand struct {
	UserID           string
	PhoneNumber      string
	Amount           int64
	AccountReference string
}

type OpenPendingCommand struct {
	TransactionID     string
	MerchantRequestID string
	UserID            string
	PhoneNumber       string
	Amount            int64
	Direction         model.Direction
	Description       string
}

type CompleteCommand struct {
	TransactionID string
	Receipt       string
	Simulated     bool
}

type FailCommand struct {
	TransactionID string
	Reason        string
}

type WithdrawCommand struct {
	UserID      string
	PhoneNumber string
	Amount      int64
}

type CallbackCommand struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Simulated         bool
}

type PageQuery struct {
	UserID string
	Limit  int
	Offset int
}
