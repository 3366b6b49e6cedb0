package model

import "time"

// TransactionEvent is an outbox row written in the same commit as the change it
// describes. The publisher worker forwards unpublished rows to the broker.
type TransactionEvent struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement;<-:create"`
	TransactionID string            `gorm:"column:transaction_id;type:varchar(64);not null;index"`
	Status        TransactionStatus `gorm:"column:status;type:varchar(20);not null"`
	Payload       string            `gorm:"column:payload;type:text;not null"`
	Published     bool              `gorm:"column:published;not null;default:false;index"`
	PublishedAt   *time.Time        `gorm:"column:published_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;<-:create"`
}

func (TransactionEvent) TableName() string {
	return "transaction_events"
}

// ObservationTimeout records that a watcher gave up on a transaction before it
// resolved. It is kept apart from the transaction row so the row stays untouched.
type ObservationTimeout struct {
	TransactionID string    `gorm:"column:transaction_id;primaryKey;type:varchar(64)"`
	UserID        string    `gorm:"column:user_id;type:varchar(128);not null"`
	TimedOutAt    time.Time `gorm:"column:timed_out_at;not null"`
}

func (ObservationTimeout) TableName() string {
	return "observation_timeouts"
}
