package repository

import (
	"context"
	"errors"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	// SettlePending moves a PENDING transaction to a terminal state. It returns
	// ErrNoRowsAffected when the transaction is no longer PENDING.
	SettlePending(ctx context.Context, settlement model.Settlement) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	FindPendingByPrefix(ctx context.Context, idPrefix string, limit int) ([]model.Transaction, error)
}

type transaction struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transaction{db: db}
}

func (t *transaction) Create(ctx context.Context, txn *model.Transaction) error {
	db := GetTx(ctx, t.db)
	err := db.Create(txn).Error
	if err == nil {
		return nil
	}

	if isDuplicateKey(err) {
		return ErrTransactionExisted
	}

	return err
}

func (t *transaction) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	var txn model.Transaction

	err := GetTx(ctx, t.db).Where("id = ?", id).First(&txn).Error
	if err == nil {
		return &txn, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}

	return nil, err
}

func (t *transaction) SettlePending(ctx context.Context, settlement model.Settlement) error {
	db := GetTx(ctx, t.db)

	updates := map[string]interface{}{
		"status":     settlement.Status,
		"updated_at": settlement.SettledAt,
	}
	if settlement.Reference != "" {
		updates["reference"] = settlement.Reference
	}
	if settlement.Description != "" {
		updates["description"] = settlement.Description
	}

	result := db.Model(&model.Transaction{}).
		Where("id = ? AND status = ?", settlement.TransactionID, model.TransactionStatusPending).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

func (t *transaction) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := GetTx(ctx, t.db).Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (t *transaction) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64

	err := GetTx(ctx, t.db).Model(&model.Transaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error

	return count, err
}

func (t *transaction) FindPendingByPrefix(ctx context.Context, idPrefix string, limit int) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := GetTx(ctx, t.db).
		Where("status = ? AND id LIKE ?", model.TransactionStatusPending, idPrefix+"%").
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
