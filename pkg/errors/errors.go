package errors

import (
	"errors"
	"fmt"
)

// Generic error types

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// Analysis-engine errors

var (
	// ErrInsufficientData indicates too few usable bars to compute an analysis
	ErrInsufficientData = errors.New("insufficient price data")

	// ErrNoPriceAvailable indicates the quote provider returned no current price
	ErrNoPriceAvailable = errors.New("no current price available")

	// ErrInvalidSeries indicates a price series violates normalizer invariants
	ErrInvalidSeries = errors.New("invalid price series")

	// ErrPersistenceFailure indicates the bundle store failed during activation
	ErrPersistenceFailure = errors.New("bundle persistence failure")

	// ErrNarrativeUnavailable indicates the narrative collaborator is down or tripped
	ErrNarrativeUnavailable = errors.New("narrative annotator unavailable")
)

// Helper functions

// New creates a new error from a message
func New(message string) error {
	return errors.New(message)
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
