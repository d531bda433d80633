// Package metrics exposes Prometheus collectors for the check queue and the tracking worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xptracker"

// Registry owns the collectors of one process.
type Registry struct {
	registry *prometheus.Registry

	checks        *prometheus.CounterVec
	checkDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
	reconciles    *prometheus.CounterVec
	earnedXP      prometheus.Counter
	sweepUsers    prometheus.Gauge
	sweepDuration prometheus.Histogram
}

// New creates a registry with the process and Go runtime collectors attached.
func New(service string) *Registry {
	constLabels := prometheus.Labels{"service": service}

	r := &Registry{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "checks_total",
			Help:        "Profile checks processed by the queue, by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "check_duration_seconds",
			Help:        "Time spent fetching one profile check.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "queue_depth",
			Help:        "Checks waiting in the queue.",
			ConstLabels: constLabels,
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "reconciles_total",
			Help:        "Tracked user reconciliations, by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		earnedXP: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "earned_xp_total",
			Help:        "XP credited to tracked users.",
			ConstLabels: constLabels,
		}),
		sweepUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "sweep_users",
			Help:        "Tracked users visited by the last sweep.",
			ConstLabels: constLabels,
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "sweep_duration_seconds",
			Help:        "Duration of a full tracking sweep.",
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			ConstLabels: constLabels,
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.checks,
		r.checkDuration,
		r.queueDepth,
		r.reconciles,
		r.earnedXP,
		r.sweepUsers,
		r.sweepDuration,
	)

	return r
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveCheck records one processed queue item.
func (r *Registry) ObserveCheck(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}

	r.checks.WithLabelValues(result).Inc()
	r.checkDuration.Observe(duration.Seconds())
}

// SetQueueDepth records the number of pending checks.
func (r *Registry) SetQueueDepth(depth int) {
	r.queueDepth.Set(float64(depth))
}

// ObserveReconcile records the outcome of one reconciliation.
func (r *Registry) ObserveReconcile(outcome string, earned int) {
	r.reconciles.WithLabelValues(outcome).Inc()

	if earned > 0 {
		r.earnedXP.Add(float64(earned))
	}
}

// ObserveSweep records a finished sweep.
func (r *Registry) ObserveSweep(users int, duration time.Duration) {
	r.sweepUsers.Set(float64(users))
	r.sweepDuration.Observe(duration.Seconds())
}
