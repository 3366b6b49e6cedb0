package repository

import (
	"context"
	"errors"
	"time"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	// Ensure creates the account with a zero balance if it does not exist yet.
	Ensure(ctx context.Context, userID string) error
	GetByUserID(ctx context.Context, userID string) (*model.Account, error)
	// AdjustBalance applies a signed delta in SQL, never as read-modify-write.
	AdjustBalance(ctx context.Context, userID string, delta int64) error
	// Debit subtracts amount only if the balance covers it.
	Debit(ctx context.Context, userID string, amount int64) error
}

type account struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &account{db: db}
}

func (a *account) Ensure(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	acc := model.Account{UserID: userID, Balance: 0, CreatedAt: now, UpdatedAt: now}

	return GetTx(ctx, a.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&acc).Error
}

func (a *account) GetByUserID(ctx context.Context, userID string) (*model.Account, error) {
	var acc model.Account

	err := GetTx(ctx, a.db).Where("user_id = ?", userID).First(&acc).Error
	if err == nil {
		return &acc, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}

	return nil, err
}

func (a *account) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	result := GetTx(ctx, a.db).Model(&model.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (a *account) Debit(ctx context.Context, userID string, amount int64) error {
	db := GetTx(ctx, a.db)

	result := db.Model(&model.Account{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := a.GetByUserID(ctx, userID); err != nil {
		return err
	}

	return ErrInsufficientBalance
}
