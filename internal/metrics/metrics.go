// Package metrics exposes Prometheus counters for link resolution and
// result classification.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalink"

// Recorder owns the collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	tiers           *prometheus.CounterVec
	formats         *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	searches        *prometheus.CounterVec
}

// NewRecorder registers the collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_resolved_total",
			Help:      "Links chosen per resolution tier.",
		}, []string{"tier"}),
		formats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_classified_total",
			Help:      "Results per item format.",
		}, []string{"format"}),
		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Latency of protocol resolve calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches per strategy and status.",
		}, []string{"strategy", "status"}),
	}
	r.registry.MustRegister(
		r.tiers, r.formats, r.resolveDuration, r.searches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveTier counts one resolved link.
func (r *Recorder) ObserveTier(tier string) {
	if r == nil {
		return
	}
	r.tiers.WithLabelValues(tier).Inc()
}

// ObserveFormat counts one classified result.
func (r *Recorder) ObserveFormat(format string) {
	if r == nil {
		return
	}
	r.formats.WithLabelValues(format).Inc()
}

// ObserveResolveCall records the latency of one resolver call. outcome is
// "zero", "single", "multiple" or "error".
func (r *Recorder) ObserveResolveCall(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.resolveDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveSearch counts one search.
func (r *Recorder) ObserveSearch(strategy string, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.searches.WithLabelValues(strategy, status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
