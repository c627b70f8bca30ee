package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayCallbackMetrics records gateway return/IPN callback outcomes.
type GatewayCallbackMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewGatewayCallbackMetrics registers the callback metrics on the provided registerer.
func NewGatewayCallbackMetrics(reg prometheus.Registerer) *GatewayCallbackMetrics {
	if reg == nil {
		return &GatewayCallbackMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_callback_duration_seconds",
		Help:    "Duration of payment gateway callback handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_callback_outcomes",
		Help: "Gateway callback results by channel and acknowledgement code.",
	}, []string{"channel", "code"})
	reg.MustRegister(duration, outcomes)
	return &GatewayCallbackMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveDuration records the handling duration for the named channel.
func (g *GatewayCallbackMetrics) ObserveDuration(channel string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
}

// IncOutcome increments the outcome counter for the channel and ack code.
func (g *GatewayCallbackMetrics) IncOutcome(channel, code string) {
	if g == nil || g.outcomes == nil {
		return
	}
	g.outcomes.WithLabelValues(normalizeLabel(channel), normalizeLabel(code)).Inc()
}

// PublisherMetrics records metadata for the outbox publisher loop.
type PublisherMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_success",
		Help: "Successfully published outbox events.",
	}, []string{"topic"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failure",
		Help: "Failed outbox publish attempts.",
	}, []string{"topic"})
	reg.MustRegister(duration, success, failure)
	return &PublisherMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the publish duration for the named topic.
func (p *PublisherMetrics) ObserveDuration(topic string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named topic.
func (p *PublisherMetrics) IncSuccess(topic string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailure increments the failure counter for the named topic.
func (p *PublisherMetrics) IncFailure(topic string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(topic)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
