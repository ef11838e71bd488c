package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/prices"
	"github.com/aristath/allocator/pkg/formulas"
)

// MinPriceRows is the shortest price history from which a return can be derived.
const MinPriceRows = 2

// ReturnMethod selects how per-period returns are annualized into expected returns.
type ReturnMethod string

const (
	// Arithmetic annualizes the mean simple return (mean-variance convention).
	Arithmetic ReturnMethod = "arithmetic"
	// Geometric annualizes cumulative growth (CAGR).
	Geometric ReturnMethod = "geometric"
)

// ParseReturnMethod maps a method name to a ReturnMethod. Empty selects
// Arithmetic.
func ParseReturnMethod(s string) (ReturnMethod, error) {
	switch ReturnMethod(s) {
	case "", Arithmetic:
		return Arithmetic, nil
	case Geometric:
		return Geometric, nil
	default:
		return "", fmt.Errorf("unknown return method: %s", s)
	}
}

// MomentEstimates are the annualized inputs of the mean-variance problem.
// Index i of ExpectedReturns and row/column i of Covariance refer to Assets[i].
type MomentEstimates struct {
	Assets          []string
	ExpectedReturns []float64
	Covariance      *mat.SymDense
	Method          ReturnMethod
	Observations    int     // number of per-period returns used
	PeriodsPerYear  float64 // annualization factor
}

// Estimator derives MomentEstimates from price matrices.
type Estimator struct {
	method ReturnMethod
	log    zerolog.Logger
}

// NewEstimator creates an estimator using arithmetic expected returns.
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{
		method: Arithmetic,
		log:    log.With().Str("component", "estimator").Logger(),
	}
}

// WithMethod returns a copy of the estimator using method. Empty keeps the
// current method.
func (e *Estimator) WithMethod(method ReturnMethod) *Estimator {
	cp := *e
	if method != "" {
		cp.method = method
	}
	return &cp
}

// Estimate computes annualized expected returns and the annualized sample
// covariance of simple per-period returns. Near-singular covariance is
// returned as-is; the solver regularizes it.
func (e *Estimator) Estimate(m *prices.PriceMatrix, interval domain.Interval) (*MomentEstimates, error) {
	if m.Rows() < MinPriceRows {
		return nil, &domain.InsufficientDataError{Rows: m.Rows(), Required: MinPriceRows}
	}
	if interval == "" {
		interval = domain.DefaultInterval
	}
	ppy := interval.PeriodsPerYear()

	returns := m.Returns()
	n := len(returns.Assets)

	expected := make([]float64, n)
	for j := 0; j < n; j++ {
		col := returns.Column(j)
		switch e.method {
		case Geometric:
			expected[j] = formulas.CompoundedAnnualReturn(col, ppy)
		default:
			expected[j] = formulas.AnnualizedMean(col, ppy)
		}
		if math.IsNaN(expected[j]) || math.IsInf(expected[j], 0) {
			return nil, fmt.Errorf("non-finite expected return for %s", returns.Assets[j])
		}
	}

	cov, err := calculateSampleCovariance(returns)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate covariance: %w", err)
	}
	cov.ScaleSym(ppy, cov)

	e.log.Debug().
		Int("assets", n).
		Int("observations", returns.Rows()).
		Str("method", string(e.method)).
		Float64("periods_per_year", ppy).
		Msg("Estimated moments")

	return &MomentEstimates{
		Assets:          append([]string(nil), returns.Assets...),
		ExpectedReturns: expected,
		Covariance:      cov,
		Method:          e.method,
		Observations:    returns.Rows(),
		PeriodsPerYear:  ppy,
	}, nil
}
