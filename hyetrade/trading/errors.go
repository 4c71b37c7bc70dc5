package trading

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the trading core. Callers discriminate with
// errors.Is; none of these are retried internally.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyConfirmed = errors.New("already confirmed")
	ErrConfirmTimeout   = errors.New("confirmation window expired")
)

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
