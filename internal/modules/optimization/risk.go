package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/allocator/internal/modules/prices"
)

// Constants for risk model configuration
const (
	HighCorrelationThreshold = 0.95  // pairs above this are near-duplicates
	maxCondition             = 1e10  // covariance condition number tolerated without ridge
	initialRidge             = 1e-8  // first ridge step, relative to mean variance
	maxRidge                 = 1e-1  // ridge steps stop here
	zeroVolatility           = 1e-15 // volatility treated as zero
)

// CorrelationPair is a pair of assets whose returns move almost together.
type CorrelationPair struct {
	Asset1      string  `json:"asset1"`
	Asset2      string  `json:"asset2"`
	Correlation float64 `json:"correlation"`
}

// calculateSampleCovariance returns the per-period sample covariance (N-1
// denominator). With a single observation the covariance is undefined and
// the zero matrix is returned.
func calculateSampleCovariance(returns *prices.ReturnSeries) (*mat.SymDense, error) {
	n := len(returns.Assets)
	if n == 0 {
		return nil, fmt.Errorf("no assets provided")
	}

	cov := mat.NewSymDense(n, nil)
	if returns.Rows() < 2 {
		return cov, nil
	}

	data := mat.NewDense(returns.Rows(), n, nil)
	for i, row := range returns.Values {
		if len(row) != n {
			return nil, fmt.Errorf("return row %d has %d values, expected %d", i, len(row), n)
		}
		data.SetRow(i, row)
	}

	stat.CovarianceMatrix(cov, data, nil)
	return cov, nil
}

// HighCorrelations extracts asset pairs whose absolute return correlation
// reaches threshold. Zero-variance assets are skipped.
func (m *MomentEstimates) HighCorrelations(threshold float64) []CorrelationPair {
	n := len(m.Assets)
	correlations := make([]CorrelationPair, 0)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			vi, vj := m.Covariance.At(i, i), m.Covariance.At(j, j)
			if vi <= 0 || vj <= 0 {
				continue
			}
			correlation := m.Covariance.At(i, j) / math.Sqrt(vi*vj)
			if math.Abs(correlation) >= threshold {
				correlations = append(correlations, CorrelationPair{
					Asset1:      m.Assets[i],
					Asset2:      m.Assets[j],
					Correlation: correlation,
				})
			}
		}
	}

	return correlations
}

// regularize returns cov unchanged when it factorizes with an acceptable
// condition number, otherwise a copy with a ridge term added to the
// diagonal. The ridge starts at initialRidge times the mean variance and
// grows tenfold until the matrix factorizes.
func regularize(cov *mat.SymDense) (*mat.SymDense, float64) {
	n, _ := cov.Dims()

	var chol mat.Cholesky
	if chol.Factorize(cov) && chol.Cond() < maxCondition {
		return cov, 0
	}

	scale := 0.0
	for i := 0; i < n; i++ {
		scale += cov.At(i, i)
	}
	scale /= float64(n)
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}

	var reg *mat.SymDense
	ridge := 0.0
	for delta := initialRidge; delta <= maxRidge; delta *= 10 {
		ridge = delta * scale
		reg = mat.NewSymDense(n, nil)
		reg.CopySym(cov)
		for i := 0; i < n; i++ {
			reg.SetSym(i, i, cov.At(i, i)+ridge)
		}
		if chol.Factorize(reg) && chol.Cond() < maxCondition {
			return reg, ridge
		}
	}

	// Still not positive definite (e.g. strongly negative eigenvalues from a
	// non-PSD input): fall back to the ridged diagonal alone.
	diag := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		diag.SetSym(i, i, math.Max(cov.At(i, i), 0)+ridge)
	}
	return diag, ridge
}
