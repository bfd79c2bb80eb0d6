// Package linalg holds the small dense linear-algebra helpers shared by the
// optimizer, the adaptive selector and the uncertainty analyzer. Matrices are
// k×k with k the ontology size (typically <= 10), so everything is dense.
package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"goelicit/domain/core"
)

// MinTemperature is the smallest logistic temperature whose square is still a
// normal float64. Below it the information weight p(1-p)/T² is 0/0 or x/0.
const MinTemperature = 0x1p-511

// Sigmoid is the logistic function evaluated without overflow
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// BernoulliVariance returns p(1-p) for p = Sigmoid(x), computed as
// e/(1+e)^2 with e = exp(-|x|) so it stays finite and exact in both tails
func BernoulliVariance(x float64) float64 {
	e := math.Exp(-math.Abs(x))
	d := 1 + e
	return e / (d * d)
}

// StableDot computes a·b with a rescaled by its largest magnitude, so huge
// but finite inputs overflow to ±Inf instead of producing Inf-Inf = NaN
func StableDot(a, b []float64) float64 {
	m := floats.Norm(a, math.Inf(1))
	if m == 0 {
		return 0
	}
	s := 0.0
	for i := range a {
		s += (a[i] / m) * b[i]
	}
	return m * s
}

// CheckFinite rejects vectors containing NaN or Inf
func CheckFinite(name string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return core.NewArgumentError(name, fmt.Sprintf("component %d is not finite", i))
		}
	}
	return nil
}

// ScaledIdentity returns s*I_k
func ScaledIdentity(k int, s float64) *mat.SymDense {
	m := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		m.SetSym(i, i, s)
	}
	return m
}

// RankOne returns alpha * d dᵀ. A zero d yields the exact zero matrix.
func RankOne(d []float64, alpha float64) *mat.SymDense {
	k := len(d)
	m := mat.NewSymDense(k, nil)
	if alpha == 0 {
		return m
	}
	m.SymRankOne(m, alpha, mat.NewVecDense(k, append([]float64(nil), d...)))
	return m
}

// Add returns a + b as a new matrix
func Add(a, b mat.Symmetric) *mat.SymDense {
	out := mat.NewSymDense(a.SymmetricDim(), nil)
	out.AddSym(a, b)
	return out
}

// AddInPlace accumulates b into acc
func AddInPlace(acc *mat.SymDense, b mat.Symmetric) {
	acc.AddSym(acc, b)
}

// AddRankOneInPlace accumulates alpha * d dᵀ into acc
func AddRankOneInPlace(acc *mat.SymDense, d []float64, alpha float64) {
	if alpha == 0 {
		return
	}
	acc.SymRankOne(acc, alpha, mat.NewVecDense(len(d), append([]float64(nil), d...)))
}

// LogDet returns log det(m) for a positive definite m; ok is false when the
// Cholesky factorization fails
func LogDet(m mat.Symmetric) (float64, bool) {
	var chol mat.Cholesky
	if !chol.Factorize(m) {
		return math.Inf(-1), false
	}
	return chol.LogDet(), true
}

// Det returns det(m) via LU, valid for any square matrix
func Det(m mat.Matrix) float64 {
	return mat.Det(m)
}

// Inverse returns m⁻¹ for a positive definite m
func Inverse(m mat.Symmetric) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if !chol.Factorize(m) {
		return nil, fmt.Errorf("matrix is not positive definite")
	}
	inv := mat.NewSymDense(m.SymmetricDim(), nil)
	if err := chol.InverseTo(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// QuadForm returns dᵀ m d
func QuadForm(m mat.Symmetric, d []float64) float64 {
	v := mat.NewVecDense(len(d), d)
	return mat.Inner(v, m, v)
}

// Eigenvalues returns the eigenvalues of a symmetric matrix in ascending order
func Eigenvalues(m mat.Symmetric) ([]float64, error) {
	var es mat.EigenSym
	if !es.Factorize(m, false) {
		return nil, fmt.Errorf("eigendecomposition did not converge")
	}
	return es.Values(nil), nil
}

// IsSymmetric reports whether |m[i,j] - m[j,i]| <= tol for all i, j
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// IsZero reports whether every entry of m is exactly zero
func IsZero(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// SymFromRows copies a row-major square matrix into a SymDense using the
// upper triangle; callers validate symmetry first
func SymFromRows(rows [][]float64) *mat.SymDense {
	k := len(rows)
	m := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			m.SetSym(i, j, rows[i][j])
		}
	}
	return m
}

// ToRows copies a matrix into a row-major slice of slices
func ToRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
