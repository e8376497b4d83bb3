package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an update targets an unknown id.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports the fields of an entity that failed required-field
// or format checks. Nothing is written when it is returned.
type ValidationError struct {
	Entity string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CascadeError is returned when rewriting events after a party date change
// fails. Updated counts the events that were moved to the new date in memory.
type CascadeError struct {
	Updated int
	Err     error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade party date to %d events: %v", e.Updated, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }
