package uncertainty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goelicit/domain/core"
	"goelicit/domain/posterior"
)

var fixtureDims = []string{"wage", "remote", "career_growth", "flexibility", "job_security", "task_variety", "culture_alignment"}

func fixture() posterior.Distribution {
	return posterior.NewDiagonal(fixtureDims, make([]float64, 7), []float64{0.8, 0.5, 0.2, 0.1, 0.6, 0.05, 0.4})
}

func correlated() posterior.Distribution {
	return posterior.Distribution{
		Dimensions: []string{"dim1", "dim2", "dim3"},
		Mean:       []float64{0, 0, 0},
		Covariance: [][]float64{
			{1, 0.5, 0},
			{0.5, 1, -0.3},
			{0, -0.3, 1},
		},
	}
}

func TestAnalyzer_ObservedFixture(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	post := fixture()

	top, err := a.UncertainDimensions(post, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"wage", "job_security", "remote"}, top)

	high, err := a.HighUncertaintyDimensions(post)
	require.NoError(t, err)
	assert.Equal(t, []string{"wage", "remote", "job_security", "culture_alignment"}, high)

	global, err := a.GlobalUncertainty(post)
	require.NoError(t, err)
	assert.InDelta(t, 2.65/7, global, 1e-12)
}

func TestAnalyzer_Scores(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	s, err := a.Scores(fixture())
	require.NoError(t, err)
	require.Len(t, s, 7)

	for i, d := range s {
		assert.Equal(t, fixtureDims[i], d.Dimension)
		assert.GreaterOrEqual(t, d.Variance, 0.0)
	}
	assert.Equal(t, DimensionScore{Dimension: "flexibility", Variance: 0.1}, s[3])

	m, err := a.ScoreMap(fixture())
	require.NoError(t, err)
	assert.Len(t, m, 7)
	assert.Equal(t, 0.6, m["job_security"])
}

func TestAnalyzer_UncertainDimensions(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	post := fixture()

	all, err := a.UncertainDimensions(post, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"wage", "job_security", "remote", "culture_alignment", "career_growth", "flexibility", "task_variety"}, all)

	for k := 1; k <= 7; k++ {
		got, err := a.UncertainDimensions(post, k)
		require.NoError(t, err)
		assert.Len(t, got, k)
		assert.Equal(t, "wage", got[0], "top-1 must not depend on topK")
	}

	for _, k := range []int{0, -1, 8} {
		_, err := a.UncertainDimensions(post, k)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, "topK=%d", k)
	}
}

func TestAnalyzer_TiesKeepDeclaredOrder(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	post := posterior.NewIsotropic([]string{"c", "a", "b"}, []float64{0, 0, 0}, 0.5)

	got, err := a.UncertainDimensions(post, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestAnalyzer_ThresholdExtremes(t *testing.T) {
	post := fixture()

	high, err := NewAnalyzer(10).HighUncertaintyDimensions(post)
	require.NoError(t, err)
	assert.Empty(t, high)

	high, err = NewAnalyzer(0).HighUncertaintyDimensions(post)
	require.NoError(t, err)
	assert.Equal(t, fixtureDims, high)

	// strictly above: a variance equal to the threshold does not count
	high, err = NewAnalyzer(0.4).HighUncertaintyDimensions(post)
	require.NoError(t, err)
	assert.Equal(t, []string{"wage", "remote", "job_security"}, high)
}

func TestAnalyzer_ThresholdMonotonicity(t *testing.T) {
	post := fixture()
	base := NewAnalyzer(DefaultThreshold)

	prev := len(fixtureDims) + 1
	for _, th := range []float64{-1, 0, 0.05, 0.1, 0.15, 0.3, 0.45, 0.6, 0.79, 0.8, 2} {
		high, err := base.WithThreshold(th).HighUncertaintyDimensions(post)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(high), prev, "threshold %g", th)
		prev = len(high)
	}
	assert.Equal(t, DefaultThreshold, base.Threshold())
}

func TestAnalyzer_DimensionCorrelations(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)

	corr, err := a.DimensionCorrelations(correlated())
	require.NoError(t, err)
	require.Len(t, corr, 3)
	assert.Equal(t, posterior.DimensionPair{First: "dim1", Second: "dim2"}, corr[0].Pair)
	assert.Equal(t, posterior.DimensionPair{First: "dim1", Second: "dim3"}, corr[1].Pair)
	assert.Equal(t, posterior.DimensionPair{First: "dim2", Second: "dim3"}, corr[2].Pair)

	m, err := a.CorrelationMap(correlated())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m[posterior.DimensionPair{First: "dim1", Second: "dim2"}], 1e-12)
	assert.InDelta(t, 0.0, m[posterior.DimensionPair{First: "dim1", Second: "dim3"}], 1e-12)
	assert.InDelta(t, -0.3, m[posterior.DimensionPair{First: "dim2", Second: "dim3"}], 1e-12)

	_, reversed := m[posterior.DimensionPair{First: "dim2", Second: "dim1"}]
	assert.False(t, reversed)
}

func TestAnalyzer_CorrelationWithZeroVariance(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	post := posterior.NewDiagonal([]string{"x", "y"}, []float64{0, 0}, []float64{0, 1})

	corr, err := a.DimensionCorrelations(post)
	require.NoError(t, err)
	require.Len(t, corr, 1)
	assert.Equal(t, 0.0, corr[0].Value)
}

func TestAnalyzer_ReportConsistency(t *testing.T) {
	for _, post := range []posterior.Distribution{fixture(), correlated()} {
		a := NewAnalyzer(DefaultThreshold)

		report, err := a.Report(post)
		require.NoError(t, err)

		scores, err := a.ScoreMap(post)
		require.NoError(t, err)
		assert.Equal(t, scores, report.UncertaintyPerDimension)

		high, err := a.HighUncertaintyDimensions(post)
		require.NoError(t, err)
		assert.Equal(t, high, report.HighUncertaintyDimensions)
		assert.Equal(t, len(report.HighUncertaintyDimensions), report.NDimensionsAboveThreshold)

		top, err := a.UncertainDimensions(post, 3)
		require.NoError(t, err)
		assert.Equal(t, top, report.TopUncertainDimensions)

		lo, hi, err := a.Range(post)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, report.GlobalUncertainty, lo)
		assert.LessOrEqual(t, report.GlobalUncertainty, hi)

		assert.Equal(t, DefaultThreshold, report.UncertaintyThreshold)
		assert.Equal(t, post.Dimensions, report.Dimensions)
	}
}

func TestAnalyzer_ReportCapsTopKAtDimensionCount(t *testing.T) {
	post := posterior.NewDiagonal([]string{"a", "b"}, []float64{0, 0}, []float64{0.1, 0.9})
	report, err := NewAnalyzer(DefaultThreshold).Report(post)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, report.TopUncertainDimensions)
	assert.Equal(t, []string{"b"}, report.HighUncertaintyDimensions)
}

func TestAnalyzer_Deterministic(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	first, err := a.Report(fixture())
	require.NoError(t, err)
	second, err := a.Report(fixture())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzer_RejectsInvalidPosterior(t *testing.T) {
	a := NewAnalyzer(DefaultThreshold)
	bad := posterior.Distribution{
		Dimensions: []string{"a", "b"},
		Mean:       []float64{0, 0},
		Covariance: [][]float64{{1, 0.2}, {0.3, 1}},
	}

	_, err := a.Scores(bad)
	assert.ErrorIs(t, err, core.ErrInvalidPosterior)
	_, err = a.Report(bad)
	assert.ErrorIs(t, err, core.ErrInvalidPosterior)
	_, err = a.DimensionCorrelations(bad)
	assert.ErrorIs(t, err, core.ErrInvalidPosterior)
	_, err = a.GlobalUncertainty(posterior.Distribution{})
	assert.ErrorIs(t, err, core.ErrInvalidPosterior)

	// symmetric with a valid diagonal, but |cov| exceeds sqrt(var_a var_b)
	indefinite := posterior.Distribution{
		Dimensions: []string{"a", "b"},
		Mean:       []float64{0, 0},
		Covariance: [][]float64{{1, 10}, {10, 1}},
	}
	_, err = a.DimensionCorrelations(indefinite)
	assert.ErrorIs(t, err, core.ErrInvalidPosterior)
}
