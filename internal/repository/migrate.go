package repository

import (
	"github.com/levisbarua/pesaflow-1/internal/model"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Account{},
		&model.Transaction{},
		&model.Notification{},
		&model.TransactionEvent{},
		&model.ObservationTimeout{},
	)
}
