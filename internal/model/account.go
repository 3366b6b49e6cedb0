package model

import "time"

type Account struct {
	UserID    string    `gorm:"column:user_id;primaryKey;type:varchar(128)" json:"user_id"`
	Balance   int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at;<-:create" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
