// Package contract validates the raw text returned by the language model against
// the JSON shapes the prompts ask for. Every deviation is reported as a
// *ValidationError so callers can treat it as recoverable.
package contract

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSON means the response did not contain a JSON value of the expected kind.
	ErrNoJSON = errors.New("no JSON found in model response")
	// ErrSchema means the JSON parsed but does not match the expected shape.
	ErrSchema = errors.New("model response violates schema")
	// ErrMissingCategory means a zero-based budget omitted a mandatory category.
	ErrMissingCategory = errors.New("budget is missing a mandatory category")
	// ErrBudgetUnbalanced means a zero-based budget does not add up to the income.
	ErrBudgetUnbalanced = errors.New("budget does not sum to estimated income")
)

// ValidationError describes why a model response was rejected.
type ValidationError struct {
	Task   string // "transactions", "action" or "budget"
	Index  int    // element index, -1 for the document as a whole
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("%s[%d].%s: %s", e.Task, e.Index, e.Field, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("%s[%d]: %s", e.Task, e.Index, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s.%s: %s", e.Task, e.Field, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", e.Task, e.Reason)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err (or anything it wraps) is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func schemaErr(task string, index int, field, reason string) *ValidationError {
	return &ValidationError{Task: task, Index: index, Field: field, Reason: reason, Err: ErrSchema}
}
