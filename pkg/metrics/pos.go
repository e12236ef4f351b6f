package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// POSMetrics records checkout and offline-replay outcomes.
type POSMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutOutcome  *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	replayed         *prometheus.CounterVec
}

// NewPOSMetrics registers the terminal metrics on the provided registerer.
func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	if reg == nil {
		return &POSMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	checkoutOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome (completed, queued_offline).",
	}, []string{"outcome"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "offline_queue_depth",
		Help: "Number of sales waiting in the offline queue.",
	})
	replayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_replay_total",
		Help: "Offline queue replay results (ok, failed).",
	}, []string{"result"})
	reg.MustRegister(checkoutDuration, checkoutOutcome, queueDepth, replayed)
	return &POSMetrics{
		checkoutDuration: checkoutDuration,
		checkoutOutcome:  checkoutOutcome,
		queueDepth:       queueDepth,
		replayed:         replayed,
	}
}

// ObserveCheckout records one checkout attempt.
func (p *POSMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if p == nil {
		return
	}
	if p.checkoutDuration != nil {
		p.checkoutDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
	}
	if p.checkoutOutcome != nil {
		p.checkoutOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
	}
}

// SetQueueDepth publishes the current offline queue length.
func (p *POSMetrics) SetQueueDepth(depth int64) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(depth))
}

// IncReplayed counts one replay result.
func (p *POSMetrics) IncReplayed(result string) {
	if p == nil || p.replayed == nil {
		return
	}
	p.replayed.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
