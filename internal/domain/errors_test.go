package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load prices: %w", NewDataUnavailable("download failed", cause))

	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")

	var target *DataUnavailableError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "download failed", target.Reason)
}

func TestInsufficientDataError(t *testing.T) {
	err := error(&InsufficientDataError{Rows: 1, Required: 2})

	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Equal(t, "insufficient data: 1 price rows available, need at least 2", err.Error())
}

func TestOptimizationInfeasibleError(t *testing.T) {
	err := error(&OptimizationInfeasibleError{Reason: "empty constraint set"})

	assert.True(t, errors.Is(err, ErrOptimizationInfeasible))
	assert.False(t, errors.Is(err, ErrDataUnavailable))
}
