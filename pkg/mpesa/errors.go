package mpesa

import (
	"context"
	"errors"
	"net"
	"net/http"
)

const (
	ErrCodeValidationFailed         = "VALIDATION_FAILED"
	ErrCodeInfrastructureRestricted = "INFRASTRUCTURE_RESTRICTED"
	ErrCodeAuthenticationFailed     = "AUTHENTICATION_FAILED"
	ErrCodeUnauthorized             = "UNAUTHORIZED"
	ErrCodeRequestRejected          = "REQUEST_REJECTED"
	ErrCodeTimeout                  = "TIMEOUT"
	ErrCodeServerError              = "SERVER_ERROR"
	ErrCodeInvalidCallback          = "INVALID_CALLBACK"
)

var (
	ErrValidationFailed = errors.New(ErrCodeValidationFailed)
	// ErrInfrastructureRestricted means the provider could not be reached at all,
	// typically DNS or egress restrictions. No request left this process.
	ErrInfrastructureRestricted = errors.New(ErrCodeInfrastructureRestricted)
	ErrAuthenticationFailed     = errors.New(ErrCodeAuthenticationFailed)
	ErrUnauthorized             = errors.New(ErrCodeUnauthorized)
	ErrRequestRejected          = errors.New(ErrCodeRequestRejected)
	ErrTimeout                  = errors.New(ErrCodeTimeout)
	ErrServerError              = errors.New(ErrCodeServerError)
	ErrInvalidCallback          = errors.New(ErrCodeInvalidCallback)
)

var statusErrorMap = map[int]error{
	http.StatusBadRequest:   ErrValidationFailed,
	http.StatusUnauthorized: ErrUnauthorized,
	http.StatusForbidden:    ErrUnauthorized,
}

func MapStatusToError(statusCode int) error {
	if err, exists := statusErrorMap[statusCode]; exists {
		return err
	}

	return ErrServerError
}

// Unreachable reports whether err means the provider cannot be used from here,
// as opposed to the provider answering with a genuine failure.
func Unreachable(err error) bool {
	return errors.Is(err, ErrInfrastructureRestricted) || errors.Is(err, ErrAuthenticationFailed)
}

func isDialFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
