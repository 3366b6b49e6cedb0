package service

import "errors"

// ErrTransactionSettled means the transaction already left PENDING. Callers treat
// it as an acknowledged duplicate, not a failure.
var ErrTransactionSettled = errors.New("TRANSACTION_ALREADY_SETTLED")

func NewServiceError(code string, cause error) error {
	return Error{
		Code:  code,
		Cause: cause,
	}
}

type Error struct {
	Code  string
	Cause error
}

func (e Error) Error() string {
	if e.Cause == nil {
		return e.Code
	}
	return e.Cause.Error()
}

func (e Error) Unwrap() error {
	return e.Cause
}

// HasCode reports whether err carries a service Error with the given code.
func HasCode(err error, code string) bool {
	var serviceErr Error
	return errors.As(err, &serviceErr) && serviceErr.Code == code
}
