// Package uncertainty summarizes a posterior belief for reporting and for
// choosing which preference dimensions the next question should target.
// Every method is a pure function of its posterior argument.
package uncertainty

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"goelicit/domain/core"
	"goelicit/domain/posterior"
)

const (
	DefaultThreshold = 0.3
	// DefaultTopK is the number of dimensions listed in a Report
	DefaultTopK = 3
)

// DimensionScore is one dimension's posterior variance
type DimensionScore struct {
	Dimension string  `json:"dimension"`
	Variance  float64 `json:"variance"`
}

// Correlation is the posterior correlation of a dimension pair
type Correlation struct {
	Pair  posterior.DimensionPair `json:"pair"`
	Value float64                 `json:"value"`
}

// Report aggregates every analyzer view of a single posterior
type Report struct {
	GlobalUncertainty         float64            `json:"global_uncertainty"`
	UncertaintyPerDimension   map[string]float64 `json:"uncertainty_per_dimension"`
	Dimensions                []string           `json:"dimensions"`
	TopUncertainDimensions    []string           `json:"top_uncertain_dimensions"`
	HighUncertaintyDimensions []string           `json:"high_uncertainty_dimensions"`
	UncertaintyThreshold      float64            `json:"uncertainty_threshold"`
	NDimensionsAboveThreshold int                `json:"n_dimensions_above_threshold"`
}

// Analyzer holds the single high-uncertainty threshold
type Analyzer struct {
	threshold float64
}

// NewAnalyzer creates an analyzer; dimensions with variance strictly above
// threshold count as highly uncertain
func NewAnalyzer(threshold float64) *Analyzer {
	return &Analyzer{threshold: threshold}
}

// Threshold returns the configured variance threshold
func (a *Analyzer) Threshold() float64 {
	return a.threshold
}

// WithThreshold returns a copy using a different threshold
func (a *Analyzer) WithThreshold(threshold float64) *Analyzer {
	return &Analyzer{threshold: threshold}
}

// Scores returns each dimension's variance in the posterior's order
func (a *Analyzer) Scores(post posterior.Distribution) ([]DimensionScore, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	return scores(post), nil
}

func scores(post posterior.Distribution) []DimensionScore {
	out := make([]DimensionScore, post.K())
	for i, name := range post.Dimensions {
		out[i] = DimensionScore{Dimension: name, Variance: post.Variance(i)}
	}
	return out
}

// ScoreMap is Scores keyed by dimension name
func (a *Analyzer) ScoreMap(post posterior.Distribution) (map[string]float64, error) {
	s, err := a.Scores(post)
	if err != nil {
		return nil, err
	}
	return scoreMap(s), nil
}

func scoreMap(s []DimensionScore) map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, d := range s {
		out[d.Dimension] = d.Variance
	}
	return out
}

// UncertainDimensions returns the topK dimensions by descending variance.
// Ties keep the posterior's dimension order, so the first element does not
// depend on topK.
func (a *Analyzer) UncertainDimensions(post posterior.Distribution, topK int) ([]string, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	if topK < 1 || topK > post.K() {
		return nil, core.NewArgumentError("top_k", fmt.Sprintf("must be between 1 and %d, got %d", post.K(), topK))
	}
	return ranked(post)[:topK], nil
}

func ranked(post posterior.Distribution) []string {
	s := scores(post)
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Variance > s[j].Variance
	})
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Dimension
	}
	return out
}

// HighUncertaintyDimensions lists, in posterior order, every dimension whose
// variance strictly exceeds the threshold
func (a *Analyzer) HighUncertaintyDimensions(post posterior.Distribution) ([]string, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	return a.high(post), nil
}

func (a *Analyzer) high(post posterior.Distribution) []string {
	out := []string{}
	for i, name := range post.Dimensions {
		if post.Variance(i) > a.threshold {
			out = append(out, name)
		}
	}
	return out
}

// GlobalUncertainty is the arithmetic mean of the per-dimension variances
func (a *Analyzer) GlobalUncertainty(post posterior.Distribution) (float64, error) {
	if err := post.Validate(); err != nil {
		return 0, err
	}
	return stats.Mean(post.Variances())
}

// DimensionCorrelations returns cov[i][j]/sqrt(var_i var_j) for every pair
// i < j in posterior order. A pair involving a zero-variance dimension has
// correlation 0.
func (a *Analyzer) DimensionCorrelations(post posterior.Distribution) ([]Correlation, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	k := post.K()
	out := make([]Correlation, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			denom := math.Sqrt(post.Variance(i) * post.Variance(j))
			r := 0.0
			if denom > 0 {
				r = post.Covariance[i][j] / denom
			}
			out = append(out, Correlation{
				Pair:  posterior.DimensionPair{First: post.Dimensions[i], Second: post.Dimensions[j]},
				Value: r,
			})
		}
	}
	return out, nil
}

// CorrelationMap is DimensionCorrelations keyed by pair
func (a *Analyzer) CorrelationMap(post posterior.Distribution) (map[posterior.DimensionPair]float64, error) {
	corr, err := a.DimensionCorrelations(post)
	if err != nil {
		return nil, err
	}
	out := make(map[posterior.DimensionPair]float64, len(corr))
	for _, c := range corr {
		out[c.Pair] = c.Value
	}
	return out, nil
}

// Report computes every summary from one validation of the posterior
func (a *Analyzer) Report(post posterior.Distribution) (*Report, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	s := scores(post)
	global, err := stats.Mean(post.Variances())
	if err != nil {
		return nil, err
	}
	topK := DefaultTopK
	if topK > post.K() {
		topK = post.K()
	}
	high := a.high(post)
	return &Report{
		GlobalUncertainty:         global,
		UncertaintyPerDimension:   scoreMap(s),
		Dimensions:                append([]string(nil), post.Dimensions...),
		TopUncertainDimensions:    ranked(post)[:topK],
		HighUncertaintyDimensions: high,
		UncertaintyThreshold:      a.threshold,
		NDimensionsAboveThreshold: len(high),
	}, nil
}

// Range returns the smallest and largest per-dimension variance
func (a *Analyzer) Range(post posterior.Distribution) (lo, hi float64, err error) {
	if err := post.Validate(); err != nil {
		return 0, 0, err
	}
	v := post.Variances()
	if lo, err = stats.Min(v); err != nil {
		return 0, 0, err
	}
	hi, err = stats.Max(v)
	return lo, hi, err
}
