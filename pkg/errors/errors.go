package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// Common error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	ErrCodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	ErrCodeOwnershipViolation    = "OWNERSHIP_VIOLATION"
	ErrCodeNoValidPath           = "NO_VALID_PATH"
	ErrCodeStateConflict         = "STATE_CONFLICT"
	ErrCodeRateLimited           = "RATE_LIMIT_EXCEEDED"
)
