package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound marks a referenced entity as absent.
	ErrNotFound = errors.New("not found")
	// ErrTerminalState marks an attempted phase transition past Completed.
	ErrTerminalState = errors.New("tournament is in a terminal phase")
	// ErrInvalidArgument marks malformed calculation input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientPerformers marks a category below its minimum
	// registration threshold.
	ErrInsufficientPerformers = errors.New("insufficient performers")
)

// ValidationError carries business-rule violations plus non-blocking
// advisory warnings. Warnings never block an operation on their own.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

// ConflictError marks a write that would violate a global invariant, such
// as a second Active battle.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ValidationResult is the structured answer to "may this tournament
// advance?". Advancement is refused if any error is present, regardless of
// warnings.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Merge folds another result into r.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// AsError converts a failed result into a ValidationError, or nil when the
// result is clean.
func (r *ValidationResult) AsError() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Errors: r.Errors, Warnings: r.Warnings}
}
