package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	localWrites    *prometheus.CounterVec
	downgrades     *prometheus.CounterVec
}

// New registers the sync-layer collectors on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classcaptain_remote_calls_total",
			Help: "Remote store calls by collection, operation and classified status.",
		}, []string{"collection", "op", "status"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classcaptain_remote_call_duration_seconds",
			Help:    "Remote store call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection", "op"}),
		localWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classcaptain_local_writes_total",
			Help: "Records created in the local fallback cache, by reason.",
		}, []string{"collection", "reason"}),
		downgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classcaptain_mode_downgrades_total",
			Help: "Collections switched from remote to fallback mode by a write.",
		}, []string{"collection"}),
	}
	for _, c := range []prometheus.Collector{m.remoteCalls, m.remoteDuration, m.localWrites, m.downgrades} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordRemoteCall(collection, op, status string, took time.Duration) {
	if m == nil || m.remoteCalls == nil {
		return
	}
	m.remoteCalls.WithLabelValues(collection, op, status).Inc()
	m.remoteDuration.WithLabelValues(collection, op).Observe(took.Seconds())
}

func (m *Metrics) RecordLocalWrite(collection, reason string) {
	if m != nil && m.localWrites != nil {
		m.localWrites.WithLabelValues(collection, reason).Inc()
	}
}

func (m *Metrics) RecordDowngrade(collection string) {
	if m != nil && m.downgrades != nil {
		m.downgrades.WithLabelValues(collection).Inc()
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
