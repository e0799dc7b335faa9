package services

import (
	"errors"
	"fmt"
)

// Error kinds returned by the booking and payment services. Match with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrProviderUnavailable = errors.New("payment provider is not configured")
	ErrProviderError       = errors.New("payment provider error")
	ErrValidation          = errors.New("validation error")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
)

// ProviderError carries the payment provider's own message
type ProviderError struct {
	Message    string
	Code       string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment provider error (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("payment provider error: %s", e.Message)
}

// Is makes errors.Is(err, ErrProviderError) match
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderError
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// validationError wraps a message as ErrValidation
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
