// Package faults classifies failures as permanent or transient.
//
// Permanent failures are Temporal application errors marked non-retryable, so the
// activity retry policy bypasses them and the enclosing workflow fails at once.
// Anything else is treated as transient and retried by the step executor.
package faults

import (
	"errors"

	"go.temporal.io/sdk/temporal"
)

// Application error types. They double as the NonRetryableErrorTypes of every step.
const (
	TypeInvalidInput      = "InvalidInput"
	TypeUnsupportedImage  = "UnsupportedImage"
	TypeTokenLimit        = "TokenLimitExceeded"
	TypeGenerationFailed  = "GenerationFailed"
	TypeProtocolViolation = "ProtocolViolation"
	TypeDeliveryRejected  = "DeliveryRejected"
	TypeStepFailed        = "StepFailed"
)

// PermanentTypes lists every error type that must never be retried.
var PermanentTypes = []string{
	TypeInvalidInput,
	TypeUnsupportedImage,
	TypeTokenLimit,
	TypeGenerationFailed,
	TypeProtocolViolation,
	TypeDeliveryRejected,
	TypeStepFailed,
}

var (
	ErrSessionClosed    = errors.New("interview session is closed")
	ErrStaleInterview   = errors.New("interview round is not newer than the closed session")
	ErrCallbackUnknown  = errors.New("callback token is unknown")
	ErrCallbackResolved = errors.New("callback token is already resolved")
	ErrCallbackRejected = errors.New("callback resolution rejected")
)

// Permanent wraps cause into a non-retryable application error of the given kind.
func Permanent(kind, msg string, cause error, details ...interface{}) error {
	return temporal.NewNonRetryableApplicationError(msg, kind, cause, details...)
}

// Protocol reports a protocol violation such as posting to a closed session.
func Protocol(cause error) error {
	return Permanent(TypeProtocolViolation, cause.Error(), cause)
}

// IsPermanent reports whether err carries a non-retryable application error.
func IsPermanent(err error) bool {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.NonRetryable()
	}
	return false
}

// Kind returns the application error type found in err's chain, or "".
func Kind(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type()
	}
	return ""
}

// HasKind reports whether any application error in err's chain has the given type.
func HasKind(err error, kind string) bool {
	for err != nil {
		var appErr *temporal.ApplicationError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type() == kind {
			return true
		}
		err = appErr.Unwrap()
	}
	return false
}
