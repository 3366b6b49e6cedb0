package mocks

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/stretchr/testify/mock"
)

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *NotificationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	notifications, _ := args.Get(0).([]model.Notification)
	return notifications, args.Error(1)
}

func (m *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
