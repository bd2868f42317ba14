// Package metrics exposes sync activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	qsync "github.com/lherron/quotesync/internal/sync"
)

const namespace = "quotesync"

// Metrics implements sync.Observer.
type Metrics struct {
	cycles           *prometheus.CounterVec
	pushFailures     prometheus.Counter
	conflicts        prometheus.Counter
	pendingConflicts prometheus.Gauge
	lastSync         prometheus.Gauge
	duration         prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by final status.",
		}, []string{"status"}),
		pushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failures_total",
			Help:      "Local records the remote did not accept.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_detected_total",
			Help:      "Conflicts produced by merge.",
		}),
		pendingConflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_conflicts",
			Help:      "Conflicts waiting for resolution.",
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last cycle that completed a merge.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync cycles that ran.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.cycles, m.pushFailures, m.conflicts, m.pendingConflicts, m.lastSync, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveCycle records one cycle.
func (m *Metrics) ObserveCycle(res *qsync.Result) {
	m.cycles.WithLabelValues(string(res.Status)).Inc()
	m.pendingConflicts.Set(float64(res.PendingConflicts))
	if res.Status == qsync.StatusSkipped {
		return
	}

	m.pushFailures.Add(float64(res.PushFailed))
	m.conflicts.Add(float64(res.Conflicts))
	m.duration.Observe(res.Duration().Seconds())
	if res.Succeeded() {
		m.lastSync.Set(float64(res.FinishedAt.Unix()))
	}
}

// SetPending updates the pending conflict gauge outside a cycle, after a
// resolution.
func (m *Metrics) SetPending(n int) {
	m.pendingConflicts.Set(float64(n))
}

// Notifier returns a sync.Notifier for the resolver, whose conflict count
// notifications carry the number still pending.
func (m *Metrics) Notifier() qsync.Notifier {
	return pendingNotifier{m: m}
}

type pendingNotifier struct {
	qsync.NopNotifier
	m *Metrics
}

func (n pendingNotifier) NotifyConflictCount(count int) {
	n.m.SetPending(count)
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
