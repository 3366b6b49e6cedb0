package repository

import (
	"context"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"gorm.io/gorm"
)

type TransactionEventRepository interface {
	Create(ctx context.Context, event *model.TransactionEvent) error
	FindUnpublished(ctx context.Context, limit int) ([]model.TransactionEvent, error)
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error
}

type transactionEvent struct {
	db *gorm.DB
}

func NewTransactionEventRepository(db *gorm.DB) TransactionEventRepository {
	return &transactionEvent{db: db}
}

func (r *transactionEvent) Create(ctx context.Context, event *model.TransactionEvent) error {
	return GetTx(ctx, r.db).Create(event).Error
}

func (r *transactionEvent) FindUnpublished(ctx context.Context, limit int) ([]model.TransactionEvent, error) {
	var events []model.TransactionEvent

	err := GetTx(ctx, r.db).
		Where("published = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *transactionEvent) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	result := GetTx(ctx, r.db).Model(&model.TransactionEvent{}).
		Where("id = ? AND published = ?", id, false).
		Updates(map[string]interface{}{
			"published":    true,
			"published_at": publishedAt,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}
