// Package metrics records deployment runs as Prometheus metrics.
//
// A Recorder owns a private registry so several recorders can coexist in one
// process (tests, watch mode). It implements the reconcile, bundle and
// content observers; deploy writes its registry to a node-exporter textfile
// after every run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/reconcile"
)

const namespace = "metadeploy"

// Recorder collects run metrics.
type Recorder struct {
	registry *prometheus.Registry

	objectsInstalled *prometheus.CounterVec
	bundlesInstalled prometheus.Counter
	bundleSeconds    prometheus.Histogram
	refreshSeconds   *prometheus.HistogramVec
	refreshFailures  *prometheus.CounterVec
	lastRunTime      prometheus.Gauge
	lastRunSuccess   prometheus.Gauge
}

// NewRecorder creates a recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		objectsInstalled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_installed_total",
			Help:      "Objects installed, by type and outcome (created or updated).",
		}, []string{"type", "outcome"}),
		bundlesInstalled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundles_installed_total",
			Help:      "Bundles installed.",
		}),
		bundleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_install_seconds",
			Help:      "Time to install one bundle, including its session flush.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		refreshSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_seconds",
			Help:      "Time to refresh one content manager.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"manager"}),
		refreshFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Content manager refreshes that failed.",
		}, []string{"manager"}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last deploy run finished.",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last deploy run succeeded, 0 otherwise.",
		}),
	}
	r.registry.MustRegister(
		r.objectsInstalled,
		r.bundlesInstalled,
		r.bundleSeconds,
		r.refreshSeconds,
		r.refreshFailures,
		r.lastRunTime,
		r.lastRunSuccess,
	)
	return r
}

// Registry exposes the recorder's registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObjectInstalled implements reconcile.Observer.
func (r *Recorder) ObjectInstalled(t ir.Type, outcome reconcile.Outcome) {
	r.objectsInstalled.WithLabelValues(string(t), string(outcome)).Inc()
}

// BundleInstalled implements bundle.Observer.
func (r *Recorder) BundleInstalled(_ string, elapsed time.Duration) {
	r.bundlesInstalled.Inc()
	r.bundleSeconds.Observe(elapsed.Seconds())
}

// ManagerRefreshed implements content.Observer.
func (r *Recorder) ManagerRefreshed(name string, elapsed time.Duration, err error) {
	r.refreshSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		r.refreshFailures.WithLabelValues(name).Inc()
	}
}

// RunFinished records the end of a deploy run.
func (r *Recorder) RunFinished(at time.Time, err error) {
	r.lastRunTime.Set(float64(at.UnixNano()) / 1e9)
	if err != nil {
		r.lastRunSuccess.Set(0)
		return
	}
	r.lastRunSuccess.Set(1)
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
