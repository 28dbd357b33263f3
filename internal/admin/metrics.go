package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the poller did with each refresh
type Metrics struct {
	Ticks   prometheus.Counter
	Applied prometheus.Counter
	Stale   prometheus.Counter
	Failed  prometheus.Counter
}

// NewMetrics registers the poller counters with reg. A nil reg creates
// unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "daiverp_admin_poll_ticks_total",
			Help: "Total number of admin panel refreshes started",
		}),
		Applied: f.NewCounter(prometheus.CounterOpts{
			Name: "daiverp_admin_poll_applied_total",
			Help: "Total number of refreshes applied to the panel",
		}),
		Stale: f.NewCounter(prometheus.CounterOpts{
			Name: "daiverp_admin_poll_stale_total",
			Help: "Total number of refreshes discarded because a newer one was already applied",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "daiverp_admin_poll_failed_total",
			Help: "Total number of refreshes that failed to reach the backend",
		}),
	}
}

func (m *Metrics) tick() {
	if m != nil {
		m.Ticks.Inc()
	}
}

func (m *Metrics) applied() {
	if m != nil {
		m.Applied.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.Stale.Inc()
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.Failed.Inc()
	}
}
