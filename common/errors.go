package common

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a business-key or document lookup finds nothing
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned when a request fails validation
var ErrInvalidInput = errors.New("invalid input")

// NewInvalidInput wrap a validation error so it can be tested with errors.Is(err, ErrInvalidInput)
func NewInvalidInput(err error) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
}

// StoreFailure wraps an error returned by the underlying document store
type StoreFailure struct {
	// Op is the store operation which failed
	Op string
	// Target is the collection or collection/document operated on
	Target string
	// Err is the store error
	Err error
}

// Error implements error
func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s on %s failed: %s", e.Op, e.Target, e.Err)
}

// Unwrap exposes the store error
func (e *StoreFailure) Unwrap() error {
	return e.Err
}

// NewStoreFailure wrap a store error. ErrNotFound passes through unchanged.
func NewStoreFailure(op, target string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var already *StoreFailure
	if errors.As(err, &already) {
		return err
	}
	return &StoreFailure{Op: op, Target: target, Err: err}
}

// ListenerFailure is reported when an active watch fails asynchronously
type ListenerFailure struct {
	// Target is the watched collection or collection/document
	Target string
	// Err is the watch error
	Err error
}

// Error implements error
func (e *ListenerFailure) Error() string {
	return fmt.Sprintf("listener on %s failed: %s", e.Target, e.Err)
}

// Unwrap exposes the watch error
func (e *ListenerFailure) Unwrap() error {
	return e.Err
}

// IsStoreFailure whether the error originated from the document store
func IsStoreFailure(err error) bool {
	var sf *StoreFailure
	return errors.As(err, &sf)
}
