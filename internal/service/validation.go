package service

import (
	"errors"
	"fmt"

	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive whole number of KES")
	ErrMissingUser   = errors.New("user id is required")
)

// integralAmount truncates to whole KES, the provider's unit.
func integralAmount(amount decimal.Decimal) (int64, error) {
	whole := amount.Truncate(0)
	if !whole.IsPositive() || !whole.BigInt().IsInt64() {
		return 0, NewServiceError(constants.ErrCodeValidationFailed,
			fmt.Errorf("%w: got %s", ErrInvalidAmount, amount.String()))
	}

	return whole.IntPart(), nil
}

func normalizePhone(phone, countryCode string) (string, error) {
	normalized, err := mpesa.NormalizePhoneNumber(phone, countryCode)
	if err != nil {
		return "", NewServiceError(constants.ErrCodeValidationFailed, err)
	}

	return normalized, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return NewServiceError(constants.ErrCodeUnauthorized, ErrMissingUser)
	}
	return nil
}

// mapGatewayError converts provider errors into service codes. Errors that are
// already service errors pass through unchanged.
func mapGatewayError(err error) error {
	var serviceErr Error
	if errors.As(err, &serviceErr) {
		return err
	}

	switch {
	case errors.Is(err, mpesa.ErrValidationFailed):
		return NewServiceError(constants.ErrCodeValidationFailed, err)
	case errors.Is(err, mpesa.ErrRequestRejected):
		return NewServiceError(constants.ErrCodeProviderRejected, err)
	case mpesa.Unreachable(err),
		errors.Is(err, mpesa.ErrTimeout),
		errors.Is(err, mpesa.ErrServerError),
		errors.Is(err, mpesa.ErrUnauthorized):
		return NewServiceError(constants.ErrCodeProviderUnavailable, err)
	default:
		return NewServiceError(constants.ErrCodeOperationFailed, err)
	}
}
