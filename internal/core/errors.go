package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Core error kinds. Callers match them with errors.Is; every error returned by the
// core wraps exactly one of these.
var (
	ErrInsufficientAvailable = errors.New("insufficient available quantity")
	ErrInsufficientReserved  = errors.New("insufficient reserved quantity")
	ErrInvalidState          = errors.New("invalid state")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	// ErrInconsistentState means a compensating write failed and the ledger may need
	// operator attention.
	ErrInconsistentState = errors.New("inconsistent state")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
