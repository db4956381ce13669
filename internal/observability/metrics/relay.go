package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters/histograms for the assistant relay.
type RelayMetrics struct {
	requestsTotal *prometheus.CounterVec
	pollAttempts  prometheus.Histogram
	duration      *prometheus.HistogramVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Total relay calls by outcome",
		}, []string{"outcome"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "assistant",
			Subsystem: "relay",
			Name:      "poll_attempts",
			Help:      "Run status polls made per relay call",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assistant",
			Subsystem: "relay",
			Name:      "duration_seconds",
			Help:      "End-to-end latency of relay calls",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 12, 16, 20, 30},
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.pollAttempts, m.duration)
	return m
}

// ObserveOutcome records one finished relay call.
func (m *RelayMetrics) ObserveOutcome(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(seconds)
}

// ObservePollAttempts records how many status polls a call needed.
func (m *RelayMetrics) ObservePollAttempts(attempts int) {
	if m == nil {
		return
	}
	m.pollAttempts.Observe(float64(attempts))
}
