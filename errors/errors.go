// Package errors defines the structured error taxonomy shared by every
// pipeline stage. Callers distinguish "fix your input" failures
// (validation, decode) from infrastructure faults (encode, storage) by
// category rather than by string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryDecode     Category = "decode"
	CategoryEncode     Category = "encode"
	CategoryStorage    Category = "storage"
	CategoryPipeline   Category = "pipeline"
	CategoryConfig     Category = "config"
	CategoryTransient  Category = "transient"
)

// PipelineError is the structured error type used throughout the module.
type PipelineError struct {
	Category  Category
	Op        string // operation name, e.g. "transcode.medium.webp"
	Err       error
	Retryable bool

	// Violations holds every failed validation rule when Category is
	// CategoryValidation, so a caller can report all problems at once.
	Violations []string
}

func (e *PipelineError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("[%s] %s: %s", e.Category, e.Op, strings.Join(e.Violations, "; "))
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// New creates a non-retryable PipelineError.
func New(category Category, op string, err error) *PipelineError {
	return &PipelineError{Category: category, Op: op, Err: err}
}

// Validation creates a validation error carrying the full violation list.
func Validation(op string, violations []string) *PipelineError {
	return &PipelineError{
		Category:   CategoryValidation,
		Op:         op,
		Err:        ErrInvalidInput,
		Violations: violations,
	}
}

// Transient creates a retryable PipelineError.
func Transient(op string, err error) *PipelineError {
	return &PipelineError{Category: CategoryTransient, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with category and operation context.
// A nil err yields nil; an err that is already a PipelineError is
// returned unchanged so the original category survives propagation.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// Violations extracts the violation list from a validation error.
// Returns nil for any other error.
func Violations(err error) []string {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Category == CategoryValidation {
		return pe.Violations
	}
	return nil
}

// Sentinel errors for common failure modes.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrEmptyInput        = errors.New("empty input")
	ErrUnknownPreset     = errors.New("unknown size preset")
	ErrUnknownCategory   = errors.New("unknown storage category")
	ErrQueueFull         = errors.New("job queue full")
	ErrPoolStopped       = errors.New("worker pool stopped")
)
