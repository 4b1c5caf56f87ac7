package errors

import (
	"errors"
	"fmt"
)

var (
	// Lifecycle errors
	ErrRestoreInProgress = errors.New("restore already in progress")
	ErrProductNotFound   = errors.New("product not found")
	ErrManagerClosed     = errors.New("purchase manager is closed")

	// Transaction errors
	ErrPaymentFailed    = errors.New("payment failed")
	ErrPaymentCancelled = errors.New("payment cancelled by user")

	// External service errors
	ErrPlatformUnavailable = errors.New("payment platform unavailable")
	ErrPlatformTimeout     = errors.New("timed out waiting for payment platform")
)

// PlatformErrorCode classifies errors reported by the payment platform
type PlatformErrorCode string

const (
	CodeUnknown             PlatformErrorCode = "unknown"
	CodeClientInvalid       PlatformErrorCode = "client_invalid"
	CodePaymentCancelled    PlatformErrorCode = "payment_cancelled"
	CodePaymentInvalid      PlatformErrorCode = "payment_invalid"
	CodePaymentNotAllowed   PlatformErrorCode = "payment_not_allowed"
	CodeProductNotAvailable PlatformErrorCode = "product_not_available"
	CodeNetwork             PlatformErrorCode = "network"
)

// PlatformError wraps an error reported by the payment platform
type PlatformError struct {
	Code    PlatformErrorCode
	Message string
	Err     error
}

// NewPlatformError creates a platform error for the given code
func NewPlatformError(code PlatformErrorCode, message string) *PlatformError {
	pe := &PlatformError{Code: code, Message: message}
	switch code {
	case CodePaymentCancelled:
		pe.Err = ErrPaymentCancelled
	case CodeNetwork:
		pe.Err = ErrPlatformUnavailable
	}
	return pe
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform error %s", e.Code)
	}
	return fmt.Sprintf("platform error %s: %s", e.Code, e.Message)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is a user-initiated payment cancellation
func IsCancelled(err error) bool {
	var pe *PlatformError
	if errors.As(err, &pe) && pe.Code == CodePaymentCancelled {
		return true
	}
	return errors.Is(err, ErrPaymentCancelled)
}

// CodeOf returns the platform code carried by err, or CodeUnknown
func CodeOf(err error) PlatformErrorCode {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeUnknown
}
