package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals bad or missing request input.
	ErrValidation = errors.New("validation failed")
	// ErrContentProcessing signals that no usable text could be extracted from the source.
	ErrContentProcessing = errors.New("content processing failed")
	// ErrSynthesis signals an LLM response that failed parsing, shape or invariant checks.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrBackend signals a failed LLM call (network, auth, upstream outage).
	ErrBackend = errors.New("llm backend error")
	// ErrRateLimited signals that the LLM backend throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded signals an exhausted token budget.
	ErrQuotaExceeded = errors.New("llm token quota exceeded")
	// ErrUnsupportedContent signals a content type without a configured extractor.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a request field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ContentError wraps ErrContentProcessing with the source type that failed.
type ContentError struct {
	Type    ContentType
	Message string
	Err     error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s content: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s content: %s", e.Type, e.Message)
}

// Is reports ErrContentProcessing in addition to the wrapped cause.
func (e *ContentError) Is(target error) bool { return target == ErrContentProcessing }

func (e *ContentError) Unwrap() error { return e.Err }

// NewContentError creates a content processing error.
func NewContentError(t ContentType, message string, err error) error {
	return &ContentError{Type: t, Message: message, Err: err}
}

// Stage names the pipeline step that produced a synthesis error.
type Stage string

// Pipeline stages.
const (
	StageSummary   Stage = "summary"
	StageQuestions Stage = "questions"
	StageFeedback  Stage = "feedback"
	StageCompress  Stage = "compress"
)

// SynthesisKind distinguishes why a model response was rejected.
type SynthesisKind string

// Synthesis error kinds.
const (
	// KindMalformedJSON: the response is not valid JSON.
	KindMalformedJSON SynthesisKind = "malformed_json"
	// KindShapeMismatch: valid JSON that does not match the expected schema.
	KindShapeMismatch SynthesisKind = "shape_mismatch"
	// KindInvariantViolation: shape is right, a domain invariant is not.
	KindInvariantViolation SynthesisKind = "invariant_violation"
	// KindEmptyResult: the stage produced nothing usable.
	KindEmptyResult SynthesisKind = "empty_result"
)

// SynthesisError wraps ErrSynthesis with the stage and kind of failure.
type SynthesisError struct {
	Stage   Stage
	Kind    SynthesisKind
	Message string
	Details map[string]any
	Err     error
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Stage, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrSynthesis in addition to the wrapped cause.
func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesis }

func (e *SynthesisError) Unwrap() error { return e.Err }

// BackendError wraps ErrBackend with provider context.
type BackendError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s backend error %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend error: %v", e.Provider, e.Err)
}

// Is reports ErrBackend in addition to the wrapped cause.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

func (e *BackendError) Unwrap() error { return e.Err }
