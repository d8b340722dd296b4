package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InboundMessages   *prometheus.CounterVec
	RepliesSent       *prometheus.CounterVec
	Escalations       *prometheus.CounterVec
	QueueLength       prometheus.Gauge
	UpstreamFailures  *prometheus.CounterVec
	ResponderDuration prometheus.Histogram
}

// New registers the collectors on reg. A nil *Metrics is valid and records nothing.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_inbound_messages_total",
			Help: "Total number of inbound customer messages by routed intent",
		}, []string{"intent"}),
		RepliesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_replies_sent_total",
			Help: "Total number of synthesized messages by sender type",
		}, []string{"sender"}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_escalations_total",
			Help: "Total number of human escalation requests by outcome",
		}, []string{"outcome"}),
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "support_queue_length",
			Help: "Current number of conversations waiting for a human agent",
		}),
		UpstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_upstream_failures_total",
			Help: "Total number of upstream calls replaced by a fallback reply",
		}, []string{"upstream"}),
		ResponderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "support_responder_duration_seconds",
			Help:    "Time taken to synthesize an AI reply",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Inbound(intent string) {
	if m == nil {
		return
	}
	m.InboundMessages.WithLabelValues(intent).Inc()
}

func (m *Metrics) Reply(sender string) {
	if m == nil {
		return
	}
	m.RepliesSent.WithLabelValues(sender).Inc()
}

func (m *Metrics) Escalation(outcome string) {
	if m == nil {
		return
	}
	m.Escalations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(n))
}

func (m *Metrics) UpstreamFailure(upstream string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(upstream).Inc()
}

func (m *Metrics) ObserveResponder(seconds float64) {
	if m == nil {
		return
	}
	m.ResponderDuration.Observe(seconds)
}
