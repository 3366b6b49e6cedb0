package model

import "time"

type NotificationKind string

const (
	NotificationKindInfo    NotificationKind = "info"
	NotificationKindSuccess NotificationKind = "success"
	NotificationKindWarning NotificationKind = "warning"
	NotificationKindError   NotificationKind = "error"
)

type Notification struct {
	ID        string           `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	UserID    string           `gorm:"column:user_id;type:varchar(128);not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	Title     string           `gorm:"column:title;type:varchar(128);not null" json:"title"`
	Message   string           `gorm:"column:message;type:text;not null" json:"message"`
	Kind      NotificationKind `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	Read      bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time        `gorm:"column:created_at;<-:create;index:idx_notifications_user_created,priority:2" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
