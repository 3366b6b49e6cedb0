package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/levisbarua/pesaflow-1/internal/api/contract"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"go.uber.org/zap"
)

const (
	callbackAccepted    = "Accepted"
	callbackInvalidBody = "Invalid Body"
)

// MpesaCallback receives the provider's asynchronous STK result. Any answer other
// than 200 makes the provider retry, so duplicates and unknown ids are acknowledged.
func (h *Handler) MpesaCallback(c *fiber.Ctx) error {
	callback, err := mpesa.ParseCallback(c.Body())
	if err != nil {
		h.logger.Warn("Rejected malformed callback", zap.Error(err))
		h.metrics.RecordCallback("invalid")
		return c.Status(fiber.StatusBadRequest).JSON(contract.CallbackAck{
			ResultCode: 1,
			ResultDesc: callbackInvalidBody,
		})
	}

	result, err := h.callbacks.HandleCallback(c.UserContext(), service.CallbackCommand{
		MerchantRequestID: callback.MerchantRequestID,
		CheckoutRequestID: callback.CheckoutRequestID,
		ResultCode:        *callback.ResultCode,
		ResultDesc:        callback.ResultDesc,
		Receipt:           callback.ReceiptNumber(),
	})
	if err != nil {
		return err
	}

	ack := string(result)
	if result == service.CallbackProcessed {
		ack = "ok"
	}

	return c.JSON(contract.CallbackAck{
		ResultCode: 0,
		ResultDesc: callbackAccepted,
		Result:     ack,
	})
}
