package status

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync results recorded in eae_status_sync_total.
const (
	resultOK           = "ok"
	resultError        = "error"
	resultNoCollection = "no_collection"
)

// Metrics records refresh and sync activity of a Helper.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	syncs        *prometheus.CounterVec
	syncDuration prometheus.Histogram
	lastSync     prometheus.Gauge
	refreshes    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eae_status_sync_total",
			Help: "Status sync attempts by result",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eae_status_sync_duration_seconds",
			Help:    "Duration of status upserts against the store",
			Buckets: prometheus.DefBuckets,
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eae_status_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful status sync",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eae_status_refresh_total",
			Help: "Status refreshes from host telemetry",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.syncs, m.syncDuration, m.lastSync, m.refreshes)
	}
	return m
}

func (m *Metrics) recordSync(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(result).Inc()
	if result == resultNoCollection {
		return
	}
	m.syncDuration.Observe(elapsed.Seconds())
	if result == resultOK {
		m.lastSync.SetToCurrentTime()
	}
}

func (m *Metrics) recordRefresh() {
	if m == nil {
		return
	}
	m.refreshes.Inc()
}
