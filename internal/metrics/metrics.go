package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the engine's collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	SelectionDuration  prometheus.Histogram
	FIMEvaluations     prometheus.Counter
	DEfficiency        prometheus.Gauge
	AdaptiveSelections *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// NewRecorder registers all collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		SelectionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "goelicit_battery_selection_duration_seconds",
			Help:    "Wall time of a static battery selection",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		FIMEvaluations: f.NewCounter(prometheus.CounterOpts{
			Name: "goelicit_fim_evaluations_total",
			Help: "Vignette Fisher information evaluations",
		}),
		DEfficiency: f.NewGauge(prometheus.GaugeOpts{
			Name: "goelicit_battery_d_efficiency",
			Help: "D-efficiency of the most recently planned battery",
		}),
		AdaptiveSelections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "goelicit_adaptive_selections_total",
			Help: "Adaptive next-vignette recommendations by outcome",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "goelicit_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goelicit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Registry exposes the underlying registry for gathering in tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSelection records one finished battery selection
func (r *Recorder) ObserveSelection(d time.Duration) {
	if r == nil {
		return
	}
	r.SelectionDuration.Observe(d.Seconds())
}

// AddFIMEvaluations counts n pair information evaluations
func (r *Recorder) AddFIMEvaluations(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.FIMEvaluations.Add(float64(n))
}

// SetDEfficiency publishes the latest battery D-efficiency
func (r *Recorder) SetDEfficiency(v float64) {
	if r == nil {
		return
	}
	r.DEfficiency.Set(v)
}

// IncAdaptive counts an adaptive recommendation outcome
func (r *Recorder) IncAdaptive(outcome string) {
	if r == nil {
		return
	}
	r.AdaptiveSelections.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(method, path, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, path, status).Inc()
	r.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
