package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goelicit/internal/testkit"
)

// setup points the engine at the small test space and returns a temp dir
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testkit.SmallSpace), 0o644))

	t.Setenv("PROFILE_CONFIG_PATH", path)
	t.Setenv("NUM_STATIC_VIGNETTES", "4")
	t.Setenv("NUM_BEGINNING_VIGNETTES", "2")
	t.Setenv("OPTIMIZER_WORKERS", "2")
	t.Setenv("LOG_LEVEL", "ERROR")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	setup(t)

	out, err := run(t, "info")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.EqualValues(t, 12, info["total_combinations"])
}

func TestProfiles(t *testing.T) {
	setup(t)

	out, err := run(t, "profiles", "--limit", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "0-0-0\t"))
	assert.Contains(t, lines[0], "Salary: 40k")
}

func TestDesignExportThenStats(t *testing.T) {
	dir := setup(t)
	xlsx := filepath.Join(dir, "battery.xlsx")

	out, err := run(t, "design", "--format", "json", "--xlsx", xlsx)
	require.NoError(t, err)
	var planned map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &planned))
	assert.EqualValues(t, 4, planned["num_vignettes"])

	out, err = run(t, "stats", xlsx)
	require.NoError(t, err)
	var scored map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &scored))
	assert.EqualValues(t, 4, scored["num_vignettes"])
	assert.InDelta(t, planned["fim_determinant"], scored["fim_determinant"], 1e-9*planned["fim_determinant"].(float64))
}

func TestDesignMarkdownAndBadFormat(t *testing.T) {
	setup(t)

	out, err := run(t, "design", "--num-static", "3", "--num-beginning", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "# Vignette battery")

	_, err = run(t, "design", "--format", "yaml")
	assert.Error(t, err)
}

func writePosterior(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "posterior.json")
	post := map[string]any{
		"dimensions": []string{"financial", "work_life_balance", "job_security"},
		"mean":       []float64{0.5, 0.2, 0.3},
		"covariance": [][]float64{{0.5, 0.1, 0}, {0.1, 0.2, 0}, {0, 0, 0.1}},
	}
	raw, err := json.Marshal(post)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestAnalyze(t *testing.T) {
	dir := setup(t)
	path := writePosterior(t, dir)

	out, err := run(t, "analyze", path)
	require.NoError(t, err)
	var analysis struct {
		Report struct {
			GlobalUncertainty         float64  `json:"global_uncertainty"`
			HighUncertaintyDimensions []string `json:"high_uncertainty_dimensions"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.InDelta(t, 0.8/3, analysis.Report.GlobalUncertainty, 1e-12)
	assert.Equal(t, []string{"financial"}, analysis.Report.HighUncertaintyDimensions)

	out, err = run(t, "analyze", path, "--threshold", "0.15", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 3 dimensions above")

	out, err = run(t, "analyze", path, "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "<html")

	_, err = run(t, "analyze", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	dir := setup(t)
	path := writePosterior(t, dir)

	out, err := run(t, "next", path)
	require.NoError(t, err)
	assert.Contains(t, out, "targets: [financial]")
	assert.Contains(t, out, "A [")
}
