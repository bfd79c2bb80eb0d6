// Package optimizer selects D-optimal vignette batteries for a binary logit
// choice model. For a pair with feature difference d and prior mean β the
// choice probability is p = σ(β·d/T) and the pair's Fisher information is
// p(1-p)/T² · d dᵀ.
package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/profile"
	"goelicit/internal"
	"goelicit/internal/linalg"
	"goelicit/internal/metrics"
	"goelicit/ports"
)

const (
	DefaultTemperature   = 1.0
	DefaultPriorVariance = 0.5
	DefaultWorkers       = 4
)

// Optimizer builds information-maximizing vignette batteries. It holds no
// per-call state and is safe for concurrent use.
type Optimizer struct {
	encoder     ports.ProfileEncoder
	temperature float64
	workers     int
	logger      *internal.Logger
	metrics     *metrics.Recorder
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithTemperature sets the choice-model temperature used during selection
func WithTemperature(t float64) Option {
	return func(o *Optimizer) {
		o.temperature = t
	}
}

// WithWorkers bounds the goroutines that score candidate pairs each round
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		o.workers = n
	}
}

// WithLogger sets the optimizer logger
func WithLogger(l *internal.Logger) Option {
	return func(o *Optimizer) {
		o.logger = l
	}
}

// WithMetrics records selection timing and FIM evaluation counts
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Optimizer) {
		o.metrics = r
	}
}

// NewOptimizer creates an optimizer over the encoder's feature space
func NewOptimizer(encoder ports.ProfileEncoder, opts ...Option) *Optimizer {
	o := &Optimizer{
		encoder:     encoder,
		temperature: DefaultTemperature,
		workers:     DefaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	o.logger = internal.OrDefault(o.logger).Named("optimizer")
	return o
}

// Temperature returns the temperature used by SelectStaticVignettes
func (o *Optimizer) Temperature() float64 {
	return o.temperature
}

// NumDimensions is the ontology size k of the underlying encoder
func (o *Optimizer) NumDimensions() int {
	return o.encoder.NumDimensions()
}

// CheckTemperature rejects temperatures outside [linalg.MinTemperature, +Inf)
func CheckTemperature(t float64) error {
	if !(t >= linalg.MinTemperature) || math.IsInf(t, 0) {
		return core.NewArgumentError("temperature", fmt.Sprintf("must be a finite number >= %g, got %g", linalg.MinTemperature, t))
	}
	return nil
}

func checkPriorVariance(v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return core.NewArgumentError("prior_variance", fmt.Sprintf("must be a positive finite number, got %g", v))
	}
	return nil
}

// checkPriorMean rejects a mean whose length disagrees with the encoder
func (o *Optimizer) checkPriorMean(priorMean []float64) error {
	if k := o.encoder.NumDimensions(); len(priorMean) != k {
		return core.NewDimensionError("prior mean", len(priorMean), k)
	}
	return linalg.CheckFinite("prior_mean", priorMean)
}

func (o *Optimizer) encode(p profile.Profile) (profile.FeatureVector, error) {
	x, err := o.encoder.EncodeProfile(p)
	if err != nil {
		return nil, err
	}
	if k := o.encoder.NumDimensions(); len(x) != k {
		return nil, core.NewDimensionError("feature vector", len(x), k)
	}
	return x, nil
}

// InformationWeight returns c = p(1-p)/T² for a feature difference d, the
// scalar in FIM = c·d dᵀ
func InformationWeight(d, priorMean []float64, temperature float64) float64 {
	u := linalg.StableDot(priorMean, d) / temperature
	return linalg.BernoulliVariance(u) / (temperature * temperature)
}

// ComputeVignetteFIM returns the Fisher information of comparing a with b.
// Identical feature vectors yield the exact zero matrix.
func (o *Optimizer) ComputeVignetteFIM(a, b profile.Profile, priorMean []float64, temperature float64) (*mat.SymDense, error) {
	if err := o.checkPriorMean(priorMean); err != nil {
		return nil, err
	}
	if err := CheckTemperature(temperature); err != nil {
		return nil, err
	}
	xa, err := o.encode(a)
	if err != nil {
		return nil, fmt.Errorf("encoding profile a: %w", err)
	}
	xb, err := o.encode(b)
	if err != nil {
		return nil, fmt.Errorf("encoding profile b: %w", err)
	}
	o.metrics.AddFIMEvaluations(1)

	d := xa.Sub(xb)
	if d.IsZero() {
		return mat.NewSymDense(len(d), nil), nil
	}
	return linalg.RankOne(d, InformationWeight(d, priorMean, temperature)), nil
}

// OptimizationStatistics summarizes the information a battery accumulates on
// top of the isotropic prior precision I_k/priorVariance
func (o *Optimizer) OptimizationStatistics(vignettes []design.Vignette, priorMean []float64, priorVariance float64) (*design.Stats, error) {
	if err := o.checkPriorMean(priorMean); err != nil {
		return nil, err
	}
	if err := checkPriorVariance(priorVariance); err != nil {
		return nil, err
	}

	k := len(priorMean)
	running := linalg.ScaledIdentity(k, 1/priorVariance)
	for i, v := range vignettes {
		fim, err := o.ComputeVignetteFIM(v.A, v.B, priorMean, o.temperature)
		if err != nil {
			return nil, fmt.Errorf("vignette %d: %w", i, err)
		}
		linalg.AddInPlace(running, fim)
	}

	return statistics(running, len(vignettes))
}

func statistics(running *mat.SymDense, n int) (*design.Stats, error) {
	k := running.SymmetricDim()
	eig, err := linalg.Eigenvalues(running)
	if err != nil {
		return nil, fmt.Errorf("information matrix: %w", err)
	}
	det := linalg.Det(running)
	s := &design.Stats{
		NumVignettes:   n,
		FIMDeterminant: det,
		DEfficiency:    math.Pow(det, 1/float64(k)),
		Eigenvalues:    eig,
		MinEigenvalue:  eig[0],
		MaxEigenvalue:  eig[k-1],
	}
	s.ConditionNumber = s.MaxEigenvalue / s.MinEigenvalue
	return s, nil
}
