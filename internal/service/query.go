package service

import (
	"context"
	"errors"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type QueryService interface {
	ListTransactions(ctx context.Context, query PageQuery) (TransactionPage, error)
	GetTransaction(ctx context.Context, userID, id string) (model.Transaction, error)
	GetBalance(ctx context.Context, userID string) (BalanceResult, error)
	ListNotifications(ctx context.Context, query PageQuery) (NotificationPage, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

type queryService struct {
	transactionRepo  repository.TransactionRepository
	accountRepo      repository.AccountRepository
	notificationRepo repository.NotificationRepository
	log              *zap.Logger
}

func NewQueryService(transactionRepo repository.TransactionRepository, accountRepo repository.AccountRepository,
	notificationRepo repository.NotificationRepository, log *zap.Logger,
) QueryService {
	return &queryService{
		transactionRepo:  transactionRepo,
		accountRepo:      accountRepo,
		notificationRepo: notificationRepo,
		log:              log,
	}
}

func normalizePage(query PageQuery) PageQuery {
	if query.Limit <= 0 {
		query.Limit = DefaultPageLimit
	}
	if query.Limit > MaxPageLimit {
		query.Limit = MaxPageLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return query
}

func (s *queryService) ListTransactions(ctx context.Context, query PageQuery) (TransactionPage, error) {
	if err := requireUser(query.UserID); err != nil {
		return TransactionPage{}, err
	}
	query = normalizePage(query)

	transactions, err := s.transactionRepo.ListByUserID(ctx, query.UserID, query.Limit, query.Offset)
	if err != nil {
		s.log.Error("error list transactions", zap.String("user_id", query.UserID), zap.Error(err))
		return TransactionPage{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	total, err := s.transactionRepo.CountByUserID(ctx, query.UserID)
	if err != nil {
		s.log.Error("error count transactions", zap.String("user_id", query.UserID), zap.Error(err))
		return TransactionPage{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return TransactionPage{
		Transactions: transactions,
		Total:        total,
		Limit:        query.Limit,
		Offset:       query.Offset,
	}, nil
}

// GetTransaction hides transactions owned by other users behind not-found.
func (s *queryService) GetTransaction(ctx context.Context, userID, id string) (model.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return model.Transaction{}, err
	}

	txn, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return model.Transaction{}, NewServiceError(constants.ErrCodeTransactionNotFound, err)
		}
		return model.Transaction{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	if txn.UserID != userID {
		return model.Transaction{}, NewServiceError(constants.ErrCodeTransactionNotFound, repository.ErrTransactionNotFound)
	}

	return *txn, nil
}

func (s *queryService) GetBalance(ctx context.Context, userID string) (BalanceResult, error) {
	if err := requireUser(userID); err != nil {
		return BalanceResult{}, err
	}

	if err := s.accountRepo.Ensure(ctx, userID); err != nil {
		s.log.Error("error ensure account", zap.String("user_id", userID), zap.Error(err))
		return BalanceResult{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return BalanceResult{}, NewServiceError(constants.ErrCodeAccountNotFound, err)
		}
		return BalanceResult{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return BalanceResult{
		UserID:    account.UserID,
		Balance:   account.Balance,
		Currency:  Currency,
		UpdatedAt: account.UpdatedAt,
	}, nil
}

func (s *queryService) ListNotifications(ctx context.Context, query PageQuery) (NotificationPage, error) {
	if err := requireUser(query.UserID); err != nil {
		return NotificationPage{}, err
	}
	query = normalizePage(query)

	notifications, err := s.notificationRepo.ListByUserID(ctx, query.UserID, query.Limit, query.Offset)
	if err != nil {
		s.log.Error("error list notifications", zap.String("user_id", query.UserID), zap.Error(err))
		return NotificationPage{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	unread, err := s.notificationRepo.CountUnread(ctx, query.UserID)
	if err != nil {
		return NotificationPage{}, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return NotificationPage{
		Notifications: notifications,
		Unread:        unread,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}, nil
}

func (s *queryService) MarkNotificationRead(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	if err := s.notificationRepo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return NewServiceError(constants.ErrCodeNotificationNotFound, err)
		}
		return NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return nil
}

func (s *queryService) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}

	updated, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, NewServiceError(constants.ErrCodeOperationFailed, err)
	}

	return updated, nil
}
