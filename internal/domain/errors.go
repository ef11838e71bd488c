package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable marks retrieval failures and empty universes.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientData marks price histories too short to derive a return.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrOptimizationInfeasible marks an empty constraint set or a solver that failed to converge.
	ErrOptimizationInfeasible = errors.New("optimization infeasible")

	ErrInvalidThreshold = errors.New("alert threshold out of range")
	ErrUnknownPeriod    = errors.New("unknown period")
	ErrUnknownInterval  = errors.New("unknown interval")
)

// DataUnavailableError describes why a price table could not be produced.
type DataUnavailableError struct {
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data unavailable: %s: %v", e.Reason, e.Err)
	}
	return "data unavailable: " + e.Reason
}

func (e *DataUnavailableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDataUnavailable, e.Err}
	}
	return []error{ErrDataUnavailable}
}

// NewDataUnavailable builds a DataUnavailableError.
func NewDataUnavailable(reason string, err error) error {
	return &DataUnavailableError{Reason: reason, Err: err}
}

// InsufficientDataError is returned when fewer rows than required are present.
type InsufficientDataError struct {
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d price rows available, need at least %d", e.Rows, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// OptimizationInfeasibleError is returned when no weight vector satisfies the constraints.
type OptimizationInfeasibleError struct {
	Reason string
}

func (e *OptimizationInfeasibleError) Error() string {
	return "optimization infeasible: " + e.Reason
}

func (e *OptimizationInfeasibleError) Unwrap() error { return ErrOptimizationInfeasible }
