package slicing

import (
	"context"
	"errors"
	"fmt"

	"printcalc_backend/platform/apperr"
)

// FailureKind classifies how a slicing run failed. Backend-specific detail
// (process stderr, remote error payloads) never crosses the orchestrator
// boundary as the primary signal, only as the wrapped error.
type FailureKind int

const (
	// FailureInvalidRequest means the request was rejected before any
	// engine was invoked. Never retried.
	FailureInvalidRequest FailureKind = iota + 1
	// FailureStaging means the model could not be written or loaded into
	// the backend's working area.
	FailureStaging
	// FailureEngine means the backend ran but misbehaved: non-zero exit,
	// missing output artifact, or an error event on the channel.
	FailureEngine
	// FailureTimeout means a protocol step or the overall process exceeded
	// its deadline. Distinct from FailureEngine so callers can back off.
	FailureTimeout
	// FailureExtraction means the raw output was present but entirely
	// unparseable. Reported like an engine failure since it indicates
	// backend misbehavior, not caller error.
	FailureExtraction
	// FailureConfiguration means tenant pricing or fee configuration is
	// absent. Requires an administrative fix, not a resubmission.
	FailureConfiguration
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidRequest:
		return "invalid_request"
	case FailureStaging:
		return "staging_failure"
	case FailureEngine:
		return "engine_failure"
	case FailureTimeout:
		return "timeout"
	case FailureExtraction:
		return "extraction_failure"
	case FailureConfiguration:
		return "configuration_missing"
	default:
		return "unknown"
	}
}

// SliceError is the normalized failure type for the slicing pipeline.
type SliceError struct {
	Kind    FailureKind
	Backend BackendKind
	Stage   string
	Message string
	Err     error
}

func (e *SliceError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s [%s/%s]: %s", e.Kind, e.Backend, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SliceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the same request may succeed.
func (e *SliceError) Retryable() bool {
	switch e.Kind {
	case FailureStaging, FailureEngine, FailureTimeout, FailureExtraction:
		return true
	default:
		return false
	}
}

// AppError maps the slicing failure onto the application error taxonomy
// for the HTTP boundary.
func (e *SliceError) AppError() *apperr.Error {
	switch e.Kind {
	case FailureInvalidRequest:
		return apperr.Validation(e.Message)
	case FailureTimeout:
		return apperr.Wrap(apperr.KindTimeout, e.Message, e.Err)
	case FailureConfiguration:
		return apperr.NotFound(e.Message)
	default:
		return apperr.Wrap(apperr.KindUnavailable, e.Message, e.Err)
	}
}

func invalidRequest(message string) *SliceError {
	return &SliceError{Kind: FailureInvalidRequest, Message: message}
}

func stagingFailure(backend BackendKind, message string, err error) *SliceError {
	return &SliceError{Kind: FailureStaging, Backend: backend, Stage: "stage", Message: message, Err: err}
}

func engineFailure(backend BackendKind, stage, message string, err error) *SliceError {
	return &SliceError{Kind: FailureEngine, Backend: backend, Stage: stage, Message: message, Err: err}
}

func timeoutFailure(backend BackendKind, stage, message string) *SliceError {
	return &SliceError{Kind: FailureTimeout, Backend: backend, Stage: stage, Message: message}
}

// contextFailure classifies a finished request context. A deadline is a
// timeout; a cancellation is the caller abandoning the request, which is
// not a deadline and must not trigger timeout backoff.
func contextFailure(backend BackendKind, stage string, err error) *SliceError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &SliceError{Kind: FailureTimeout, Backend: backend, Stage: stage, Message: "deadline exceeded", Err: err}
	}
	return &SliceError{Kind: FailureEngine, Backend: backend, Stage: stage, Message: "request abandoned by caller", Err: err}
}

func extractionFailure(backend BackendKind, message string) *SliceError {
	return &SliceError{Kind: FailureExtraction, Backend: backend, Stage: "extract", Message: message}
}

// FailureKindOf returns the failure kind of err, or zero when err is not a
// *SliceError.
func FailureKindOf(err error) FailureKind {
	var se *SliceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
