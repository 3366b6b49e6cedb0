package constants

import "net/http"

const MessageErrorFormat = "The '%s' format is invalid"

const (
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeInvalidRequestBody   = "INVALID_REQUEST_BODY"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeTransactionNotFound  = "TRANSACTION_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	ErrCodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrCodeTransactionExists    = "TRANSACTION_EXISTS"
	ErrCodeProviderRejected     = "PROVIDER_REJECTED"
	ErrCodeProviderUnavailable  = "PROVIDER_UNAVAILABLE"
	ErrCodeOperationFailed      = "OPERATION_FAILED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

const (
	ErrMsgValidationFailed     = "validation failed"
	ErrMsgInvalidRequestBody   = "invalid request body"
	ErrMsgUnauthorized         = "missing or invalid user identity"
	ErrMsgTransactionNotFound  = "transaction not found"
	ErrMsgNotificationNotFound = "notification not found"
	ErrMsgAccountNotFound      = "account not found"
	ErrMsgInsufficientBalance  = "insufficient balance"
	ErrMsgTransactionExists    = "transaction already exists"
	ErrMsgProviderRejected     = "payment provider rejected the request"
	ErrMsgProviderUnavailable  = "payment provider is unavailable"
	ErrMsgOperationFailed      = "operation failed"
	ErrMsgInternalError        = "internal server error"
)

const MsgObservationTimeout = "Transaction timed out. Please check your network or try again."

var errorMessages = map[string]string{
	ErrCodeValidationFailed:     ErrMsgValidationFailed,
	ErrCodeInvalidRequestBody:   ErrMsgInvalidRequestBody,
	ErrCodeUnauthorized:         ErrMsgUnauthorized,
	ErrCodeTransactionNotFound:  ErrMsgTransactionNotFound,
	ErrCodeNotificationNotFound: ErrMsgNotificationNotFound,
	ErrCodeAccountNotFound:      ErrMsgAccountNotFound,
	ErrCodeInsufficientBalance:  ErrMsgInsufficientBalance,
	ErrCodeTransactionExists:    ErrMsgTransactionExists,
	ErrCodeProviderRejected:     ErrMsgProviderRejected,
	ErrCodeProviderUnavailable:  ErrMsgProviderUnavailable,
	ErrCodeOperationFailed:      ErrMsgOperationFailed,
	ErrCodeInternalError:        ErrMsgInternalError,
}

var httpStatuses = map[string]int{
	ErrCodeValidationFailed:     http.StatusUnprocessableEntity,
	ErrCodeInvalidRequestBody:   http.StatusBadRequest,
	ErrCodeUnauthorized:         http.StatusUnauthorized,
	ErrCodeTransactionNotFound:  http.StatusNotFound,
	ErrCodeNotificationNotFound: http.StatusNotFound,
	ErrCodeAccountNotFound:      http.StatusNotFound,
	ErrCodeInsufficientBalance:  http.StatusConflict,
	ErrCodeTransactionExists:    http.StatusConflict,
	ErrCodeProviderRejected:     http.StatusBadGateway,
	ErrCodeProviderUnavailable:  http.StatusServiceUnavailable,
	ErrCodeOperationFailed:      http.StatusInternalServerError,
	ErrCodeInternalError:        http.StatusInternalServerError,
}

func GetErrorMessage(code string) string {
	msg, exists := errorMessages[code]
	if !exists {
		return ""
	}
	return msg
}

// GetHTTPStatus returns 500 for codes it does not know.
func GetHTTPStatus(code string) int {
	status, exists := httpStatuses[code]
	if !exists {
		return http.StatusInternalServerError
	}
	return status
}
