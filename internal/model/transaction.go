package model

import "time"

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type Direction string

const (
	DirectionDeposit    Direction = "DEPOSIT"
	DirectionWithdrawal Direction = "WITHDRAWAL"
	DirectionPayment    Direction = "PAYMENT"
)

// BalanceDelta is the signed balance change applied when a transaction in this
// direction completes.
func (d Direction) BalanceDelta(amount int64) int64 {
	if d == DirectionDeposit {
		return amount
	}
	return -amount
}

type Transaction struct {
	ID                string            `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	UserID            string            `gorm:"column:user_id;type:varchar(128);not null;index:idx_transactions_user_created,priority:1" json:"user_id"`
	Amount            int64             `gorm:"column:amount;not null" json:"amount"`
	Direction         Direction         `gorm:"column:direction;type:varchar(20);not null" json:"direction"`
	Status            TransactionStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	PhoneNumber       string            `gorm:"column:phone_number;type:varchar(20)" json:"phone_number"`
	Description       string            `gorm:"column:description;type:varchar(255)" json:"description"`
	Reference         string            `gorm:"column:reference;type:varchar(64)" json:"reference"`
	MerchantRequestID string            `gorm:"column:merchant_request_id;type:varchar(64)" json:"merchant_request_id,omitempty"`
	CreatedAt         time.Time         `gorm:"column:created_at;<-:create;index:idx_transactions_user_created,priority:2" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Settlement describes a terminal transition for a PENDING transaction.
type Settlement struct {
	TransactionID string
	Status        TransactionStatus
	Reference     string
	Description   string
	SettledAt     time.Time
}
