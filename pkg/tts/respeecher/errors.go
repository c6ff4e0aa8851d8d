package respeecher

import (
	"errors"
	"fmt"
	"time"

	"github.com/nadzzz/respeecher/pkg/api"
)

var (
	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrNoVoice is returned when no voice name is given.
	ErrNoVoice = errors.New("voice name is required")

	// ErrConversionFailed is matched by every *ConversionError.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("conversion timeout")

	// ErrMissingURL is returned when a finished conversion carries no recording URL.
	ErrMissingURL = errors.New("conversion finished without a recording URL")
)

// ConversionError carries the message the backend reported for a failed conversion.
type ConversionError struct {
	ConversionID string
	Message      string
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion %s failed with error: %s", e.ConversionID, e.Message)
}

// Is lets errors.Is match ErrConversionFailed.
func (e *ConversionError) Is(target error) bool { return target == ErrConversionFailed }

// TimeoutError reports a conversion that was still pending when the budget ran out.
// The job may still finish on the backend; Wait can pick it up again by id.
type TimeoutError struct {
	ConversionID string
	LastState    api.RecordingState
	Elapsed      time.Duration
	Timeout      time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("conversion %s timeout: still %s after %s (limit %s)",
		e.ConversionID, e.LastState, e.Elapsed, e.Timeout)
}

// Is lets errors.Is match ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
