package optimization

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

const qpTolerance = 1e-12

var errActiveSetNotConverged = errors.New("active-set iteration limit reached")

// solveSimplexQP minimizes xᵀQx subject to aᵀx = 1 and x ≥ 0 with a primal
// active-set method. Q must be positive definite and at least one a_i must
// be positive. Indices in the working set are held at zero; the remaining
// free indices solve the equality-constrained subproblem
//
//	[2Q_FF  a_F] [z] = [0]
//	[a_Fᵀ    0 ] [ν]   [1]
//
// and a bound leaves the working set when its multiplier (2Qx + νa)_i is negative.
func solveSimplexQP(q mat.Symmetric, a []float64, maxIter int) ([]float64, error) {
	n := len(a)
	x := make([]float64, n)
	free := make([]bool, n)

	scale := 0.0
	for _, v := range a {
		if v > 0 {
			scale += v * v
		}
	}
	if scale == 0 {
		return nil, errors.New("no feasible direction: all coefficients are non-positive")
	}
	for i, v := range a {
		if v > 0 {
			x[i] = v / scale
			free[i] = true
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		idx := make([]int, 0, n)
		for i := range free {
			if free[i] {
				idx = append(idx, i)
			}
		}

		z, nu, err := solveEqualityQP(q, a, idx)
		if err != nil {
			return nil, err
		}

		// Largest feasible step toward the subproblem optimum.
		alpha := 1.0
		blocking := -1
		for k, i := range idx {
			if z[k] < 0 {
				step := x[i] / (x[i] - z[k])
				if step < alpha {
					alpha = step
					blocking = i
				}
			}
		}

		if blocking >= 0 {
			for k, i := range idx {
				x[i] += alpha * (z[k] - x[i])
			}
			x[blocking] = 0
			free[blocking] = false
			continue
		}

		for k, i := range idx {
			x[i] = math.Max(z[k], 0)
		}

		// Optimal for the current working set; check bound multipliers.
		grad := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				grad[i] += 2 * q.At(i, j) * x[j]
			}
		}
		leaving := -1
		minLambda := -qpTolerance
		for i := 0; i < n; i++ {
			if free[i] {
				continue
			}
			lambda := grad[i] + nu*a[i]
			if lambda < minLambda {
				minLambda = lambda
				leaving = i
			}
		}
		if leaving < 0 {
			return x, nil
		}
		free[leaving] = true
	}

	return nil, errActiveSetNotConverged
}

// solveEqualityQP solves the KKT system restricted to the free indices idx.
// It returns z (aligned with idx) and the equality multiplier ν.
func solveEqualityQP(q mat.Symmetric, a []float64, idx []int) ([]float64, float64, error) {
	m := len(idx)
	kkt := mat.NewDense(m+1, m+1, nil)
	rhs := mat.NewVecDense(m+1, nil)
	for r, i := range idx {
		for c, j := range idx {
			kkt.Set(r, c, 2*q.At(i, j))
		}
		kkt.Set(r, m, a[i])
		kkt.Set(m, r, a[i])
	}
	rhs.SetVec(m, 1)

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err != nil {
		// A Condition error still carries a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, 0, err
		}
	}

	z := make([]float64, m)
	for k := 0; k < m; k++ {
		z[k] = sol.AtVec(k)
		if math.IsNaN(z[k]) || math.IsInf(z[k], 0) {
			return nil, 0, errors.New("singular KKT system")
		}
	}
	nu := sol.AtVec(m)
	if math.IsNaN(nu) || math.IsInf(nu, 0) {
		return nil, 0, errors.New("singular KKT system")
	}
	return z, nu, nil
}
