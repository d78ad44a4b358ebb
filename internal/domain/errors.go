package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateName     = errors.New("product name already taken")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ValidationError carries field-level messages keyed by JSON field name
type ValidationError struct {
	Errors map[string][]string
}

// NewValidationError creates an empty validation error
func NewValidationError() *ValidationError {
	return &ValidationError{Errors: make(map[string][]string)}
}

// Add appends a message for a field
func (e *ValidationError) Add(field, message string) {
	e.Errors[field] = append(e.Errors[field], message)
}

// Has reports whether the field already failed
func (e *ValidationError) Has(field string) bool {
	return len(e.Errors[field]) > 0
}

// Empty reports whether no field failed
func (e *ValidationError) Empty() bool {
	return len(e.Errors) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}
