// Package metrics records page-load metrics with Prometheus.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the page-load collectors. A nil *Recorder records nothing.
type Recorder struct {
	reg               *prom.Registry
	phaseDuration     *prom.HistogramVec
	pageLoads         *prom.CounterVec
	autoBlockFailures *prom.CounterVec
	rumCheckpoints    *prom.CounterVec
	rumObserved       *prom.CounterVec
}

// NewRecorder creates the collectors and registers them with reg. A nil reg
// gets a fresh registry.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pagedeco",
			Name:      "phase_duration_seconds",
			Help:      "Duration of page load phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"}),
		pageLoads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagedeco",
			Name:      "page_loads_total",
			Help:      "Page loads by outcome",
		}, []string{"outcome"}),
		autoBlockFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagedeco",
			Name:      "autoblock_failures_total",
			Help:      "Suppressed auto-block synthesis failures",
		}, []string{"synthesizer"}),
		rumCheckpoints: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagedeco",
			Name:      "rum_checkpoints_total",
			Help:      "Sampled RUM checkpoints",
		}, []string{"checkpoint", "generation"}),
		rumObserved: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagedeco",
			Name:      "rum_observed_elements_total",
			Help:      "Elements registered with the RUM observer",
		}, []string{"kind"}),
	}
	reg.MustRegister(r.phaseDuration, r.pageLoads, r.autoBlockFailures, r.rumCheckpoints, r.rumObserved)
	return r
}

// ObservePhase records how long a phase took.
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// PageLoad counts a finished page load.
func (r *Recorder) PageLoad(outcome string) {
	if r == nil {
		return
	}
	r.pageLoads.WithLabelValues(outcome).Inc()
}

// AutoBlockFailed counts a suppressed synthesis failure.
func (r *Recorder) AutoBlockFailed(synthesizer string) {
	if r == nil {
		return
	}
	r.autoBlockFailures.WithLabelValues(synthesizer).Inc()
}

// RUMCheckpoint counts a sampled checkpoint.
func (r *Recorder) RUMCheckpoint(checkpoint, generation string) {
	if r == nil {
		return
	}
	r.rumCheckpoints.WithLabelValues(checkpoint, generation).Inc()
}

// RUMObserved counts observed elements of a kind (block, media).
func (r *Recorder) RUMObserved(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rumObserved.WithLabelValues(kind).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
