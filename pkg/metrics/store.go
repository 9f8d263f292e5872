package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// StoreMetrics records cart and order lifecycle activity.
type StoreMetrics struct {
	transitions    *prometheus.CounterVec
	refundDuration *prometheus.HistogramVec
	cartOps        *prometheus.CounterVec
	cartCache      *prometheus.CounterVec
	outboxEvents   *prometheus.CounterVec
}

// NewStoreMetrics registers the storefront metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})
	refundDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_refund_duration_seconds",
		Help:    "Latency of refund gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart mutations and reads.",
	}, []string{"operation"})
	cartCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_cache_lookups_total",
		Help: "Cart cache lookups by result.",
	}, []string{"result"})
	outboxEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events handed to the broker by outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(transitions, refundDuration, cartOps, cartCache, outboxEvents)
	return &StoreMetrics{
		transitions:    transitions,
		refundDuration: refundDuration,
		cartOps:        cartOps,
		cartCache:      cartCache,
		outboxEvents:   outboxEvents,
	}
}

// IncTransition counts an order operation with its outcome.
func (m *StoreMetrics) IncTransition(operation, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveRefund records the duration of a refund gateway call.
func (m *StoreMetrics) ObserveRefund(outcome string, duration time.Duration) {
	if m == nil || m.refundDuration == nil {
		return
	}
	m.refundDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncCartOperation counts a cart operation.
func (m *StoreMetrics) IncCartOperation(operation string) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncCartCache counts a cache hit or miss.
func (m *StoreMetrics) IncCartCache(hit bool) {
	if m == nil || m.cartCache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cartCache.WithLabelValues(result).Inc()
}

// IncOutboxPublished counts a publish attempt for an outbox event.
func (m *StoreMetrics) IncOutboxPublished(eventType, outcome string) {
	if m == nil || m.outboxEvents == nil {
		return
	}
	m.outboxEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
