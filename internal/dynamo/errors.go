package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for identification, tuning and simulation.
var (
	// ErrInsufficientData indicates a fit was requested on too few samples.
	ErrInsufficientData = errors.New("dynamo: insufficient data")

	// ErrInvalidModel indicates a model record with missing fields or an unknown type tag.
	ErrInvalidModel = errors.New("dynamo: invalid process model")

	// ErrInvalidParameter indicates a configuration value outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: parameter out of valid bounds")

	// ErrLengthMismatch indicates input sequences of different length.
	ErrLengthMismatch = errors.New("dynamo: input sequences differ in length")

	// ErrNotMonotonic indicates a time axis that is not strictly increasing.
	ErrNotMonotonic = errors.New("dynamo: time axis not strictly increasing")

	// ErrNoStep indicates that no step could be found in the drive signal.
	ErrNoStep = errors.New("dynamo: no step found in drive signal")

	ErrUnknownRule   = errors.New("dynamo: unknown tuning rule")
	ErrUnknownVendor = errors.New("dynamo: unknown controller vendor")
)

// FitError wraps an error with the context of the fit that produced it.
type FitError struct {
	Model   string
	N       int
	Min     int
	Wrapped error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s fit: %d samples, need at least %d: %v", e.Model, e.N, e.Min, e.Wrapped)
}

func (e *FitError) Unwrap() error {
	return e.Wrapped
}
