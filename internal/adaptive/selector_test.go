package adaptive

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/posterior"
	"goelicit/domain/profile"
	"goelicit/internal"
	"goelicit/internal/linalg"
	"goelicit/internal/metrics"
	"goelicit/internal/optimizer"
	"goelicit/internal/profiles"
	"goelicit/internal/uncertainty"
)

const space = `
attributes:
  - name: wage
    label: Salary
    type: ordered
    coding: linear
    levels:
      - {id: low, label: "30k", value: 30000}
      - {id: high, label: "60k", value: 60000}
  - name: remote
    label: Remote work
    type: categorical
    coding: dummy
    base_level_id: office
    levels:
      - {id: office, label: Office}
      - {id: remote, label: Remote}
  - name: contract
    label: Contract
    type: categorical
    coding: dummy
    base_level_id: temporary
    levels:
      - {id: temporary, label: Temporary}
      - {id: permanent, label: Permanent}
model:
  parameters:
    - {name: financial, attribute: wage, prior: {distribution: normal, mean: 0.5, sd: 1}}
    - {name: work_environment, attribute: remote, prior: {distribution: normal, mean: 0, sd: 1}}
    - {name: job_security, attribute: contract, prior: {distribution: normal, mean: 0.2, sd: 0.5}}
`

func setup(t *testing.T) (*profiles.Generator, []profile.Profile) {
	t.Helper()
	g, err := profiles.Parse([]byte(space), internal.NewNopLogger())
	require.NoError(t, err)
	pool, err := g.GenerateAllProfiles(0)
	require.NoError(t, err)
	return g, pool
}

func diag(g *profiles.Generator, variances ...float64) posterior.Distribution {
	return posterior.NewDiagonal(g.Dimensions(), g.PriorMean(), variances)
}

func TestSelector_TargetsHighUncertainty(t *testing.T) {
	g, pool := setup(t)
	s := NewSelector(g, uncertainty.NewAnalyzer(0.3), WithLogger(internal.NewNopLogger()))

	post := diag(g, 0.01, 0.01, 0.9)
	rec, err := s.NextVignette(context.Background(), post, pool, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"job_security"}, rec.Targets)
	xa, err := g.EncodeProfile(rec.Vignette.A)
	require.NoError(t, err)
	xb, err := g.EncodeProfile(rec.Vignette.B)
	require.NoError(t, err)
	assert.NotEqual(t, xa[2], xb[2], "recommended pair must move the targeted dimension")
	assert.Greater(t, rec.Gain, 0.0)
	assert.Equal(t, math.Abs(xa[2]-xb[2]), rec.Projection)
}

func TestSelector_FallsBackToTopK(t *testing.T) {
	g, _ := setup(t)
	s := NewSelector(g, uncertainty.NewAnalyzer(5), WithTopK(2))

	targets, err := s.Targets(diag(g, 0.2, 0.1, 0.4))
	require.NoError(t, err)
	assert.Equal(t, []string{"job_security", "financial"}, targets)

	s = NewSelector(g, uncertainty.NewAnalyzer(5), WithTopK(10))
	targets, err = s.Targets(diag(g, 0.2, 0.1, 0.4))
	require.NoError(t, err)
	assert.Len(t, targets, 3)
}

func TestSelector_MatchesBruteForce(t *testing.T) {
	g, pool := setup(t)
	s := NewSelector(g, uncertainty.NewAnalyzer(0.3))
	post := posterior.Distribution{
		Dimensions: g.Dimensions(),
		Mean:       []float64{0.4, -0.1, 0.3},
		Covariance: [][]float64{
			{0.8, 0.1, 0},
			{0.1, 0.5, 0.05},
			{0, 0.05, 0.2},
		},
	}
	sigma := linalg.SymFromRows(post.Covariance)

	bestGain := math.Inf(-1)
	for i := range pool {
		for j := i + 1; j < len(pool); j++ {
			xa, _ := g.EncodeProfile(pool[i])
			xb, _ := g.EncodeProfile(pool[j])
			d := xa.Sub(xb)
			if d[0] == 0 && d[1] == 0 {
				continue
			}
			c := optimizer.InformationWeight(d, post.Mean, 1)
			if gain := math.Log1p(c * linalg.QuadForm(sigma, d)); gain > bestGain {
				bestGain = gain
			}
		}
	}

	rec, err := s.NextVignette(context.Background(), post, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"financial", "work_environment"}, rec.Targets)
	assert.InDelta(t, bestGain, rec.Gain, 1e-12)
}

func TestSelector_SkipsAskedPairs(t *testing.T) {
	g, pool := setup(t)
	rec := metrics.NewRecorder()
	s := NewSelector(g, uncertainty.NewAnalyzer(0.3), WithMetrics(rec))
	post := diag(g, 0.01, 0.01, 0.9)

	var asked []design.Vignette
	for {
		r, err := s.NextVignette(context.Background(), post, pool, asked)
		if err != nil {
			assert.ErrorIs(t, err, core.ErrInsufficientCandidates)
			break
		}
		for _, v := range asked {
			require.NotEqual(t, v.Key(), r.Vignette.Key())
		}
		// asked in reverse order must still count as asked
		asked = append(asked, design.Vignette{A: r.Vignette.B, B: r.Vignette.A})
	}

	// 4 profiles on each side of the contract split: 4*4 pairs move job_security
	assert.Len(t, asked, 16)
	assert.Equal(t, 16.0, testutil.ToFloat64(rec.AdaptiveSelections.WithLabelValues("selected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.AdaptiveSelections.WithLabelValues("exhausted")))
}

func TestSelector_Deterministic(t *testing.T) {
	g, pool := setup(t)
	s := NewSelector(g, uncertainty.NewAnalyzer(0.3))
	post := g.PriorPosterior()

	first, err := s.NextVignette(context.Background(), post, pool, nil)
	require.NoError(t, err)
	second, err := s.NextVignette(context.Background(), post, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Vignette.Key(), second.Vignette.Key())
	assert.Equal(t, first.Gain, second.Gain)
}

func TestSelector_Errors(t *testing.T) {
	g, pool := setup(t)
	s := NewSelector(g, uncertainty.NewAnalyzer(0.3))
	ctx := context.Background()

	short := posterior.NewIsotropic([]string{"financial", "job_security"}, []float64{0, 0}, 1)
	_, err := s.NextVignette(ctx, short, pool, nil)
	assert.True(t, core.IsDimensionError(err))

	renamed := posterior.NewIsotropic([]string{"financial", "job_security", "work_environment"}, []float64{0, 0, 0}, 1)
	_, err = s.NextVignette(ctx, renamed, pool, nil)
	assert.True(t, core.IsDimensionError(err))

	bad := g.PriorPosterior()
	bad.Covariance[0][1] = 0.5
	_, err = s.NextVignette(ctx, bad, pool, nil)
	assert.ErrorIs(t, err, core.ErrInvalidPosterior)

	for _, temp := range []float64{0, 1e-200} {
		hot := NewSelector(g, uncertainty.NewAnalyzer(0.3), WithTemperature(temp))
		_, err = hot.NextVignette(ctx, g.PriorPosterior(), pool, nil)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "temperature %g", temp)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.NextVignette(cancelled, g.PriorPosterior(), pool, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
