package service

import (
	"time"

	"github.com/levisbarua/pesaflow-1/internal/model"
)

const Currency = "KES"

type InitiateResult struct {
	TransactionID       string                  `json:"transaction_id"`
	MerchantRequestID   string                  `json:"merchant_request_id,omitempty"`
	ResponseCode        string                  `json:"response_code"`
	ResponseDescription string                  `json:"response_description"`
	CustomerMessage     string                  `json:"customer_message"`
	Mode                string                  `json:"mode"`
	Status              model.TransactionStatus `json:"status"`
}

type CallbackResult string

const (
	CallbackProcessed        CallbackResult = "processed"
	CallbackIgnoredNotFound  CallbackResult = "ignored_not_found"
	CallbackAlreadyProcessed CallbackResult = "already_processed"
)

type TransactionPage struct {
	Transactions []model.Transaction `json:"transactions"`
	Total        int64               `json:"total"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

type NotificationPage struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int64                `json:"unread"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

type BalanceResult struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}
