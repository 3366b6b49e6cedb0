package errors

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/levisbarua/pesaflow-1/internal/api/contract"
	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"go.uber.org/zap"
)

const TrackIDKey = "requestid"

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var serviceErr service.Error
		if errors.As(err, &serviceErr) {
			return handleServiceError(c, serviceErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(contract.Response{
				Code:    statusCode(fiberErr.Code),
				Message: fiberErr.Message,
				TrackID: TrackID(c),
			})
		}

		logger.Error("Unhandled request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(contract.Response{
			Code:    constants.ErrCodeInternalError,
			Message: constants.GetErrorMessage(constants.ErrCodeInternalError),
			TrackID: TrackID(c),
		})
	}
}

func handleServiceError(c *fiber.Ctx, err service.Error) error {
	errorCode := err.Code

	status := constants.GetHTTPStatus(errorCode)
	if status == fiber.StatusInternalServerError && errorCode != constants.ErrCodeInternalError &&
		errorCode != constants.ErrCodeOperationFailed {
		errorCode = constants.ErrCodeInternalError
	}

	return c.Status(status).JSON(contract.Response{
		Code:    errorCode,
		Message: constants.GetErrorMessage(errorCode),
		TrackID: TrackID(c),
	})
}

// TrackID returns the request id assigned by the requestid middleware.
func TrackID(c *fiber.Ctx) string {
	id, _ := c.Locals(TrackIDKey).(string)
	return id
}

// statusCode turns a framework status such as 405 into METHOD_NOT_ALLOWED.
func statusCode(status int) string {
	if status == fiber.StatusBadRequest {
		return constants.ErrCodeInvalidRequestBody
	}
	return strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(status), " ", "_"))
}
