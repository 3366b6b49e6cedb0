package repository

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ObservationTimeoutRepository interface {
	// Record is idempotent; the first timeout for a transaction wins.
	Record(ctx context.Context, timeout *model.ObservationTimeout) error
	Exists(ctx context.Context, transactionID string) (bool, error)
}

type observationTimeout struct {
	db *gorm.DB
}

func NewObservationTimeoutRepository(db *gorm.DB) ObservationTimeoutRepository {
	return &observationTimeout{db: db}
}

func (r *observationTimeout) Record(ctx context.Context, timeout *model.ObservationTimeout) error {
	return GetTx(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(timeout).Error
}

func (r *observationTimeout) Exists(ctx context.Context, transactionID string) (bool, error) {
	var count int64

	err := GetTx(ctx, r.db).Model(&model.ObservationTimeout{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error

	return count > 0, err
}
