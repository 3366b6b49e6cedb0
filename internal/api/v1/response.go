package v1

import (
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/observer"
)

const (
	MessageDepositInitiated    = "deposit initiated, awaiting confirmation"
	MessageWithdrawalCompleted = "withdrawal completed"
	MessageTransactionsListed  = "transactions retrieved successfully"
	MessageTransactionFound    = "transaction retrieved successfully"
	MessageBalanceRetrieved    = "balance retrieved successfully"
	MessageNotificationsListed = "notifications retrieved successfully"
	MessageNotificationRead    = "notification marked as read"
	MessageNotificationsRead   = "notifications marked as read"
)

type PingResponse struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// WatchEvent is the payload of each server-sent event on the watch stream.
type WatchEvent struct {
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Outcome     observer.Outcome   `json:"outcome,omitempty"`
	Message     string             `json:"message,omitempty"`
}
