package alerts

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned when no alert has the requested id.
	ErrNotFound = errors.New("alert not found")
	// ErrInvalid is returned when alert input fails validation.
	ErrInvalid = errors.New("invalid alert")
)

// Alert is a named notification rule.
type Alert struct {
	ID        int64   `json:"id" toml:"id"`
	Name      string  `json:"name" toml:"name" validate:"required,alertname,max=128"`
	Frequency float64 `json:"frequency" toml:"frequency" validate:"gte=0"`
	Active    bool    `json:"active" toml:"active"`
}

// AlertWrite is the create payload. Nil fields were not supplied.
type AlertWrite struct {
	Name      *string  `json:"name"`
	Frequency *float64 `json:"frequency,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// NotFoundError carries the id that could not be resolved.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("alert %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// DefaultSeed returns the alerts a fresh store starts with.
func DefaultSeed() []Alert {
	return []Alert{
		{ID: 1, Name: "First", Active: true},
		{ID: 2, Name: "Second", Active: false},
	}
}
