package execution

import (
	"context"
	"errors"
)

// Error taxonomy of a reconciler cycle.
var (
	// ErrInsufficientData means fewer closed candles than the warm-up needs.
	ErrInsufficientData = errors.New("insufficient candle history")
	// ErrVerificationTimeout means a close was sent but the position never
	// read back as flat.
	ErrVerificationTimeout = errors.New("position not confirmed closed")
	// ErrBreakerTripped is returned by Run once the consecutive-error
	// ceiling halts the loop.
	ErrBreakerTripped = errors.New("consecutive error ceiling reached")
)

// ExternalError wraps a failed exchange call.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ExternalError) Unwrap() error { return e.Err }

func external(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Op: op, Err: err}
}

// Error kinds used as log attributes and metric labels.
const (
	KindNone                = ""
	KindDataInsufficient    = "data_insufficient"
	KindExternalCall        = "external_call"
	KindVerificationTimeout = "verification_timeout"
	KindBreakerTripped      = "breaker_tripped"
	KindCanceled            = "canceled"
	KindInternal            = "internal"
)

// ErrorKind maps err onto the taxonomy.
func ErrorKind(err error) string {
	var ext *ExternalError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInsufficientData):
		return KindDataInsufficient
	case errors.Is(err, ErrVerificationTimeout):
		return KindVerificationTimeout
	case errors.Is(err, ErrBreakerTripped):
		return KindBreakerTripped
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if errors.As(err, &ext) {
			return KindExternalCall
		}
		return KindCanceled
	case errors.As(err, &ext):
		return KindExternalCall
	}
	return KindInternal
}
