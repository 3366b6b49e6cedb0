package v1

import "github.com/shopspring/decimal"

type DepositRequest struct {
	PhoneNumber      string          `json:"phone_number" validate:"required,msisdn"`
	Amount           decimal.Decimal `json:"amount" validate:"required,amount"`
	AccountReference string          `json:"account_reference" validate:"omitempty,max=12"`
}

type WithdrawalRequest struct {
	PhoneNumber string          `json:"phone_number" validate:"required,msisdn"`
	Amount      decimal.Decimal `json:"amount" validate:"required,amount"`
}
