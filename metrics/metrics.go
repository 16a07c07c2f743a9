package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Subscription kinds used as metric labels
const (
	KindCollection = "collection"
	KindDocument   = "document"
)

// Collector provides observability for the realtime subscription path.
//
// All methods are safe to call on a nil *Collector, which records nothing.
type Collector struct {
	ActiveClients       prometheus.Gauge
	ActiveSubscriptions *prometheus.GaugeVec
	DeliveredMessages   *prometheus.CounterVec
	ListenerFailures    *prometheus.CounterVec
	DroppedMessages     prometheus.Counter
	gatherer            prometheus.Gatherer
}

// New creates a Collector registered against the given registry.
func New(registry *prometheus.Registry) *Collector {
	factory := promauto.With(registry)
	return &Collector{
		ActiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "docwatch_realtime_active_clients",
			Help: "Number of realtime clients currently registered",
		}),
		ActiveSubscriptions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "docwatch_realtime_active_subscriptions",
			Help: "Number of live change-feed subscriptions",
		}, []string{"kind"}),
		DeliveredMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docwatch_realtime_messages_delivered_total",
			Help: "Total number of messages handed to client outboxes",
		}, []string{"event"}),
		ListenerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docwatch_realtime_listener_failures_total",
			Help: "Total number of change-feed listener failures reported to clients",
		}, []string{"collection"}),
		DroppedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "docwatch_realtime_messages_dropped_total",
			Help: "Total number of outbound messages dropped because the session ended",
		}),
		gatherer: registry,
	}
}

// NewWithDefaults creates a Collector whose registry also carries the Go runtime and process
// collectors.
func NewWithDefaults() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return New(registry)
}

// Handler returns the HTTP handler exposing the collected metrics.
func (m *Collector) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ClientConnected records a newly registered client.
func (m *Collector) ClientConnected() {
	if m == nil {
		return
	}
	m.ActiveClients.Inc()
}

// ClientDisconnected records a client leaving.
func (m *Collector) ClientDisconnected() {
	if m == nil {
		return
	}
	m.ActiveClients.Dec()
}

// SubscriptionOpened records a new subscription of the given kind.
func (m *Collector) SubscriptionOpened(kind string) {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.WithLabelValues(kind).Inc()
}

// SubscriptionClosed records a cancelled subscription of the given kind.
func (m *Collector) SubscriptionClosed(kind string) {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.WithLabelValues(kind).Dec()
}

// MessageDelivered records one outbound message by event name.
func (m *Collector) MessageDelivered(event string) {
	if m == nil {
		return
	}
	m.DeliveredMessages.WithLabelValues(event).Inc()
}

// ListenerFailed records a listener failure on a collection.
func (m *Collector) ListenerFailed(collection string) {
	if m == nil {
		return
	}
	m.ListenerFailures.WithLabelValues(collection).Inc()
}

// MessageDropped records an outbound message discarded by a closing session.
func (m *Collector) MessageDropped() {
	if m == nil {
		return
	}
	m.DroppedMessages.Inc()
}
