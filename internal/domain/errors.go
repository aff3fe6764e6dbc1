package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("not found")

// InsufficientDataError means there is not enough valid data to fit a model.
type InsufficientDataError struct {
	Reason         string
	Valid          int // Rows surviving the positivity filter
	DistinctPrices int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s (valid rows: %d, distinct prices: %d)",
		e.Reason, e.Valid, e.DistinctPrices)
}

// NumericalError means a numeric step could not be carried out on the input.
type NumericalError struct {
	Op  string
	Err error
}

func (e *NumericalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("numerical error in %s", e.Op)
	}
	return fmt.Sprintf("numerical error in %s: %v", e.Op, e.Err)
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}

// InvalidInputError represents a rejected input field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsInsufficientData reports whether err carries an InsufficientDataError
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsNumerical reports whether err carries a NumericalError
func IsNumerical(err error) bool {
	var target *NumericalError
	return errors.As(err, &target)
}

// IsInvalidInput reports whether err carries an InvalidInputError
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// ErrorKind returns a stable machine-readable name for err
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInsufficientData(err):
		return "insufficient_data"
	case IsNumerical(err):
		return "numerical_error"
	case IsInvalidInput(err):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
