package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveSelection(time.Second)
		r.AddFIMEvaluations(10)
		r.SetDEfficiency(1.5)
		r.IncAdaptive("selected")
		r.ObserveHTTP("GET", "/healthz", "200", time.Millisecond)
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.AddFIMEvaluations(15)
	r.AddFIMEvaluations(0)
	r.AddFIMEvaluations(5)
	assert.Equal(t, 20.0, testutil.ToFloat64(r.FIMEvaluations))

	r.SetDEfficiency(2.25)
	assert.Equal(t, 2.25, testutil.ToFloat64(r.DEfficiency))

	r.IncAdaptive("selected")
	r.IncAdaptive("selected")
	r.IncAdaptive("exhausted")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.AdaptiveSelections.WithLabelValues("selected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AdaptiveSelections.WithLabelValues("exhausted")))

	r.ObserveSelection(20 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(r.SelectionDuration))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.AddFIMEvaluations(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goelicit_fim_evaluations_total 3")
}

func TestRecorders_AreIndependent(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.AddFIMEvaluations(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FIMEvaluations))
}
