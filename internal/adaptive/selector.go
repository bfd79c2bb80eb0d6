// Package adaptive picks the next vignette once answers have started to
// arrive. It targets the dimensions the current posterior is least sure about
// and scores every unasked pair by the log-determinant gain
// log det(Σ⁻¹ + c·d dᵀ) - log det(Σ⁻¹) = log(1 + c·dᵀΣd).
package adaptive

import (
	"context"
	"fmt"
	"math"
	"slices"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/posterior"
	"goelicit/domain/profile"
	"goelicit/internal"
	"goelicit/internal/linalg"
	"goelicit/internal/metrics"
	"goelicit/internal/optimizer"
	"goelicit/internal/uncertainty"
	"goelicit/ports"
)

// Recommendation is the selected follow-up vignette
type Recommendation struct {
	Vignette design.Vignette
	// Targets are the dimensions the pair was required to move
	Targets []string
	// Gain is log(1 + c·dᵀΣd)
	Gain float64
	// Projection is Σ|d_t| over targeted dimensions
	Projection float64
	// Candidates counts pairs that were eligible and scored
	Candidates int
}

// Selector is stateless apart from its configuration
type Selector struct {
	encoder     ports.ProfileEncoder
	analyzer    *uncertainty.Analyzer
	temperature float64
	topK        int
	logger      *internal.Logger
	metrics     *metrics.Recorder
}

// Option configures a Selector
type Option func(*Selector)

// WithTemperature sets the choice-model temperature
func WithTemperature(t float64) Option {
	return func(s *Selector) {
		s.temperature = t
	}
}

// WithTopK sets how many dimensions to target when none exceeds the
// analyzer threshold
func WithTopK(k int) Option {
	return func(s *Selector) {
		s.topK = k
	}
}

// WithLogger sets the selector logger
func WithLogger(l *internal.Logger) Option {
	return func(s *Selector) {
		s.logger = l
	}
}

// WithMetrics counts recommendation outcomes
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Selector) {
		s.metrics = r
	}
}

// NewSelector creates a selector over the encoder's feature space
func NewSelector(encoder ports.ProfileEncoder, analyzer *uncertainty.Analyzer, opts ...Option) *Selector {
	s := &Selector{
		encoder:     encoder,
		analyzer:    analyzer,
		temperature: optimizer.DefaultTemperature,
		topK:        uncertainty.DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = internal.OrDefault(s.logger).Named("adaptive")
	return s
}

// dimensionNamer is implemented by encoders that know their ontology names
type dimensionNamer interface {
	Dimensions() []string
}

func (s *Selector) checkAlignment(post posterior.Distribution) error {
	if k := s.encoder.NumDimensions(); post.K() != k {
		return core.NewDimensionError("posterior", post.K(), k)
	}
	if n, ok := s.encoder.(dimensionNamer); ok {
		if want := n.Dimensions(); !slices.Equal(want, post.Dimensions) {
			return fmt.Errorf("%w: posterior dimensions %v do not match ontology %v",
				core.ErrDimensionMismatch, post.Dimensions, want)
		}
	}
	return nil
}

// Targets returns the high-uncertainty dimensions, or the topK most
// uncertain when none exceeds the threshold
func (s *Selector) Targets(post posterior.Distribution) ([]string, error) {
	high, err := s.analyzer.HighUncertaintyDimensions(post)
	if err != nil {
		return nil, err
	}
	if len(high) > 0 {
		return high, nil
	}
	k := s.topK
	if k < 1 {
		k = 1
	}
	if k > post.K() {
		k = post.K()
	}
	return s.analyzer.UncertainDimensions(post, k)
}

// NextVignette returns the unasked pair from pool with the largest
// information gain among pairs whose feature difference touches a targeted
// dimension. Equal gains prefer the larger projection, then the earlier pair.
func (s *Selector) NextVignette(ctx context.Context, post posterior.Distribution, pool []profile.Profile, asked []design.Vignette) (*Recommendation, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAlignment(post); err != nil {
		return nil, err
	}
	if err := optimizer.CheckTemperature(s.temperature); err != nil {
		return nil, err
	}

	targets, err := s.Targets(post)
	if err != nil {
		return nil, err
	}
	targetIdx := make([]int, len(targets))
	for i, name := range targets {
		targetIdx[i] = post.Index(name)
	}

	skip := make(map[string]struct{}, len(asked))
	for _, v := range asked {
		skip[v.Key()] = struct{}{}
	}

	xs := make([]profile.FeatureVector, len(pool))
	for i, p := range pool {
		x, err := s.encoder.EncodeProfile(p)
		if err != nil {
			return nil, fmt.Errorf("encoding candidate %d: %w", i, err)
		}
		xs[i] = x
	}

	sigma := linalg.SymFromRows(post.Covariance)
	best := &Recommendation{Targets: targets, Gain: math.Inf(-1)}
	found := false
	for i := 0; i < len(pool); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(pool); j++ {
			v := design.Vignette{A: pool[i], B: pool[j]}
			if _, done := skip[v.Key()]; done {
				continue
			}
			d := xs[i].Sub(xs[j])
			proj := 0.0
			for _, t := range targetIdx {
				proj += math.Abs(d[t])
			}
			if proj == 0 {
				continue
			}

			c := optimizer.InformationWeight(d, post.Mean, s.temperature)
			gain := math.Log1p(c * linalg.QuadForm(sigma, d))
			best.Candidates++
			if !found || gain > best.Gain || (gain == best.Gain && proj > best.Projection) {
				best.Vignette, best.Gain, best.Projection = v, gain, proj
				found = true
			}
			// mark the key as seen so mirrored duplicates in the pool are skipped
			skip[v.Key()] = struct{}{}
		}
	}

	if !found {
		s.metrics.IncAdaptive("exhausted")
		return nil, fmt.Errorf("%w: no unasked pair moves %v", core.ErrInsufficientCandidates, targets)
	}
	s.metrics.IncAdaptive("selected")
	s.logger.Debug("next vignette %s targets %v gain %.6g over %d candidates",
		best.Vignette.Key(), targets, best.Gain, best.Candidates)
	return best, nil
}
