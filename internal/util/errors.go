// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input provided")
	ErrAmountInvalid       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidOwner        = errors.New("invalid owner identifier")
	ErrImmutableViolation  = errors.New("audit log entries are immutable")
	ErrCurrencyMismatch    = errors.New("wallet currency mismatch")
	ErrDuplicateEntry      = errors.New("duplicate entry")
	ErrInvalidTransition   = errors.New("invalid withdrawal status transition")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserInactive        = errors.New("user is inactive")
	ErrEmailTaken          = errors.New("email already registered")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
