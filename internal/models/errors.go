package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for rejected caller input
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistence is returned when the record store is unreachable or rejects a write
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned when a subscriber or notification id does not exist
	ErrNotFound = errors.New("not found")
	// ErrTimeout is returned when a bounded wait on the store expires
	ErrTimeout = errors.New("timeout")
)

// InvalidArgumentError names the field that failed validation
type InvalidArgumentError struct {
	Field  string
	Reason string
}

// NewInvalidArgument creates an InvalidArgumentError
func NewInvalidArgument(field, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
