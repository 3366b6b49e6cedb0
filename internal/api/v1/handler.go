package v1

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/levisbarua/pesaflow-1/internal/api/contract"
	"github.com/levisbarua/pesaflow-1/internal/api/middleware"
	"github.com/levisbarua/pesaflow-1/internal/api/validator"
	"github.com/levisbarua/pesaflow-1/internal/constants"
	apperrors "github.com/levisbarua/pesaflow-1/internal/errors"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/levisbarua/pesaflow-1/internal/model"
	"github.com/levisbarua/pesaflow-1/internal/observer"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"go.uber.org/zap"
)

// Watcher blocks until a transaction settles, the wait elapses or ctx ends.
type Watcher interface {
	Watch(ctx context.Context, transactionID string, onUpdate func(model.Transaction)) (observer.Result, error)
}

type Handler struct {
	logger      *zap.Logger
	deposits    service.DepositService
	withdrawals service.WithdrawalService
	callbacks   service.CallbackService
	queries     service.QueryService
	selector    service.GatewaySelector
	watcher     Watcher
	XValidator  validator.IXValidator
	metrics     *metrics.Metrics
}

func NewHandler(logger *zap.Logger, deposits service.DepositService, withdrawals service.WithdrawalService,
	callbacks service.CallbackService, queries service.QueryService, selector service.GatewaySelector,
	watcher Watcher, XValidator validator.IXValidator, metrics *metrics.Metrics,
) *Handler {
	return &Handler{
		logger:      logger,
		deposits:    deposits,
		withdrawals: withdrawals,
		callbacks:   callbacks,
		queries:     queries,
		selector:    selector,
		watcher:     watcher,
		XValidator:  XValidator,
		metrics:     metrics,
	}
}

func (h *Handler) Pong(c *fiber.Ctx) error {
	return c.JSON(contract.Response{
		Successful: true,
		Code:       contract.CodeSuccess,
		TrackID:    apperrors.TrackID(c),
		Result:     PingResponse{Message: "pong", Mode: h.selector.Mode(c.UserContext())},
	})
}

func (h *Handler) InitiateDeposit(c *fiber.Ctx) error {
	var handlerRequest DepositRequest

	responseError := h.XValidator.Validator(&handlerRequest, constants.MessageErrorFormat, c)
	if responseError.Code != "" {
		h.logger.Warn("Error Validator", zap.String("path", c.Path()), zap.String("message", responseError.Message))
		responseError.TrackID = apperrors.TrackID(c)
		return c.JSON(responseError)
	}

	result, err := h.deposits.InitiateDeposit(c.UserContext(), service.DepositCommand{
		UserID:           middleware.UserID(c),
		PhoneNumber:      handlerRequest.PhoneNumber,
		Amount:           handlerRequest.Amount,
		AccountReference: handlerRequest.AccountReference,
	})
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageDepositInitiated, result))
}

func (h *Handler) InitiateWithdrawal(c *fiber.Ctx) error {
	var handlerRequest WithdrawalRequest

	responseError := h.XValidator.Validator(&handlerRequest, constants.MessageErrorFormat, c)
	if responseError.Code != "" {
		h.logger.Warn("Error Validator", zap.String("path", c.Path()), zap.String("message", responseError.Message))
		responseError.TrackID = apperrors.TrackID(c)
		return c.JSON(responseError)
	}

	txn, err := h.withdrawals.InitiateWithdrawal(c.UserContext(), service.WithdrawalCommand{
		UserID:      middleware.UserID(c),
		PhoneNumber: handlerRequest.PhoneNumber,
		Amount:      handlerRequest.Amount,
	})
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageWithdrawalCompleted, txn))
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	page, err := h.queries.ListTransactions(c.UserContext(), pageQuery(c))
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageTransactionsListed, page))
}

func (h *Handler) GetTransaction(c *fiber.Ctx) error {
	txn, err := h.queries.GetTransaction(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageTransactionFound, txn))
}

func (h *Handler) GetBalance(c *fiber.Ctx) error {
	balance, err := h.queries.GetBalance(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageBalanceRetrieved, balance))
}

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	page, err := h.queries.ListNotifications(c.UserContext(), pageQuery(c))
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageNotificationsListed, page))
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	if err := h.queries.MarkNotificationRead(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageNotificationRead, nil))
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	updated, err := h.queries.MarkAllNotificationsRead(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(h.success(c, MessageNotificationsRead, MarkAllReadResponse{Updated: updated}))
}

func (h *Handler) success(c *fiber.Ctx, message string, result any) contract.Response {
	return contract.Response{
		Successful: true,
		Code:       contract.CodeSuccess,
		Message:    message,
		TrackID:    apperrors.TrackID(c),
		Result:     result,
	}
}

func pageQuery(c *fiber.Ctx) service.PageQuery {
	return service.PageQuery{
		UserID: middleware.UserID(c),
		Limit:  c.QueryInt("limit", service.DefaultPageLimit),
		Offset: c.QueryInt("offset", 0),
	}
}
