package posterior

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"goelicit/domain/core"
)

const (
	// symmetryTolerance bounds |cov[i][j] - cov[j][i]| for a valid posterior
	symmetryTolerance = 1e-9
	// psdTolerance, scaled by the largest variance, is how far below zero
	// the smallest covariance eigenvalue may fall
	psdTolerance = 1e-10
)

// Distribution is a Gaussian belief over named preference dimensions.
// INVARIANTS:
// - Dimensions are unique; their order defines index alignment
// - len(Mean) == len(Covariance) == len(Dimensions)
// - Covariance is square, symmetric and positive semi-definite
//
// Distributions are produced by the belief-update collaborator and only read here.
type Distribution struct {
	Dimensions []string    `json:"dimensions"`
	Mean       []float64   `json:"mean"`
	Covariance [][]float64 `json:"covariance"`
}

// Validate enforces the distribution invariants
func (d Distribution) Validate() error {
	k := len(d.Dimensions)
	if k == 0 {
		return core.NewPosteriorError("no dimensions")
	}
	seen := make(map[string]struct{}, k)
	for _, name := range d.Dimensions {
		if name == "" {
			return core.NewPosteriorError("empty dimension name")
		}
		if _, dup := seen[name]; dup {
			return core.NewPosteriorError(fmt.Sprintf("duplicate dimension %q", name))
		}
		seen[name] = struct{}{}
	}
	if len(d.Mean) != k {
		return fmt.Errorf("%w: %w", core.ErrInvalidPosterior, core.NewDimensionError("mean", len(d.Mean), k))
	}
	if len(d.Covariance) != k {
		return fmt.Errorf("%w: %w", core.ErrInvalidPosterior, core.NewDimensionError("covariance", len(d.Covariance), k))
	}
	for i, row := range d.Covariance {
		if len(row) != k {
			return fmt.Errorf("%w: %w", core.ErrInvalidPosterior, core.NewDimensionError(fmt.Sprintf("covariance row %d", i), len(row), k))
		}
	}
	for i := 0; i < k; i++ {
		if math.IsNaN(d.Mean[i]) || math.IsInf(d.Mean[i], 0) {
			return core.NewPosteriorError(fmt.Sprintf("non-finite mean for %q", d.Dimensions[i]))
		}
		for j := 0; j < k; j++ {
			v := d.Covariance[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewPosteriorError(fmt.Sprintf("non-finite covariance at (%d,%d)", i, j))
			}
			if j > i && math.Abs(v-d.Covariance[j][i]) > symmetryTolerance {
				return core.NewPosteriorError(fmt.Sprintf("covariance not symmetric at (%d,%d)", i, j))
			}
		}
		if d.Covariance[i][i] < 0 {
			return core.NewPosteriorError(fmt.Sprintf("negative variance for %q", d.Dimensions[i]))
		}
	}
	return d.checkPositiveSemidefinite()
}

func (d Distribution) checkPositiveSemidefinite() error {
	k := len(d.Dimensions)
	cov := mat.NewSymDense(k, nil)
	scale := 0.0
	for i := 0; i < k; i++ {
		scale = math.Max(scale, d.Covariance[i][i])
		for j := i; j < k; j++ {
			cov.SetSym(i, j, d.Covariance[i][j])
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(cov, false) {
		return core.NewPosteriorError("covariance eigen-decomposition did not converge")
	}
	// EigenSym returns eigenvalues in ascending order
	if lowest := eig.Values(nil)[0]; lowest < -psdTolerance*scale {
		return core.NewPosteriorError(fmt.Sprintf("covariance not positive semi-definite (smallest eigenvalue %g)", lowest))
	}
	return nil
}

// K returns the number of dimensions
func (d Distribution) K() int {
	return len(d.Dimensions)
}

// Variance returns the diagonal covariance entry for dimension i
func (d Distribution) Variance(i int) float64 {
	return d.Covariance[i][i]
}

// Variances returns the diagonal of the covariance in dimension order
func (d Distribution) Variances() []float64 {
	out := make([]float64, len(d.Dimensions))
	for i := range d.Dimensions {
		out[i] = d.Covariance[i][i]
	}
	return out
}

// Index returns the position of a named dimension, or -1
func (d Distribution) Index(name string) int {
	for i, dim := range d.Dimensions {
		if dim == name {
			return i
		}
	}
	return -1
}

// DimensionPair is an unordered pair of distinct dimensions where First
// precedes Second in the posterior's dimension order
type DimensionPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// String renders the pair as "first|second"
func (p DimensionPair) String() string {
	return p.First + "|" + p.Second
}

// NewIsotropic builds a posterior with the given mean and variance*I covariance
func NewIsotropic(dimensions []string, mean []float64, variance float64) Distribution {
	k := len(dimensions)
	cov := make([][]float64, k)
	for i := range cov {
		cov[i] = make([]float64, k)
		cov[i][i] = variance
	}
	m := make([]float64, k)
	copy(m, mean)
	dims := make([]string, k)
	copy(dims, dimensions)
	return Distribution{Dimensions: dims, Mean: m, Covariance: cov}
}

// NewDiagonal builds a posterior with independent per-dimension variances
func NewDiagonal(dimensions []string, mean, variances []float64) Distribution {
	d := NewIsotropic(dimensions, mean, 0)
	for i := range variances {
		if i < len(d.Covariance) {
			d.Covariance[i][i] = variances[i]
		}
	}
	return d
}
