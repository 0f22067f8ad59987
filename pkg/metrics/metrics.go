package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/forumnotify/pkg/notifications"
)

// Metrics holds the Prometheus collectors for notification delivery, live
// streams and the HTTP surface. It satisfies notifications.Recorder and its
// BusPanic method matches broadcast.PanicHook.
type Metrics struct {
	// Delivery
	created         *prometheus.CounterVec // by kind
	suppressed      *prometheus.CounterVec // by kind, reason
	readTransitions prometheus.Counter

	// Streams
	activeStreams  prometheus.Gauge
	streamCloses   *prometheus.CounterVec // by reason
	streamDuration prometheus.Histogram
	streamRejected *prometheus.CounterVec // by reason
	framesSent     *prometheus.CounterVec // by event
	busPanics      prometheus.Counter

	// HTTP
	httpRequests *prometheus.CounterVec   // by method, route, status
	httpDuration *prometheus.HistogramVec // by method, route
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.created = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumnotify_notifications_created_total",
			Help: "Notifications persisted, by kind",
		},
		[]string{"kind"},
	)
	m.suppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumnotify_notifications_suppressed_total",
			Help: "Candidates rejected by the delivery policy, by kind and reason",
		},
		[]string{"kind", "reason"}, // reason: self_notification, kind_disabled, quiet_hours
	)
	m.readTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forumnotify_notifications_read_total",
			Help: "Notifications transitioned from unread to read",
		},
	)

	m.activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forumnotify_streams_active",
			Help: "Currently open live notification streams",
		},
	)
	m.streamCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumnotify_stream_closes_total",
			Help: "Closed live notification streams, by reason",
		},
		[]string{"reason"},
	)
	m.streamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forumnotify_stream_duration_seconds",
			Help:    "Lifetime of live notification streams",
			Buckets: []float64{1, 10, 30, 60, 300, 600, 1200, 1800, 3600},
		},
	)
	m.streamRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumnotify_stream_rejected_total",
			Help: "Stream connection attempts refused before streaming, by reason",
		},
		[]string{"reason"},
	)
	m.framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumnotify_stream_frames_total",
			Help: "Frames written to live streams, by event type",
		},
		[]string{"event"},
	)
	m.busPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forumnotify_bus_handler_panics_total",
			Help: "Bus subscriber handlers that panicked during publish",
		},
	)

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumnotify_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forumnotify_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

func (m *Metrics) NotificationCreated(kind notifications.Kind) {
	m.created.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) NotificationSuppressed(kind notifications.Kind, reason notifications.Reason) {
	m.suppressed.WithLabelValues(string(kind), string(reason)).Inc()
}

func (m *Metrics) NotificationsRead(count int) {
	if count > 0 {
		m.readTransitions.Add(float64(count))
	}
}

// StreamOpened marks a stream as active. Pair every call with StreamClosed.
func (m *Metrics) StreamOpened() {
	m.activeStreams.Inc()
}

func (m *Metrics) StreamClosed(reason string, lifetime time.Duration) {
	m.activeStreams.Dec()
	m.streamCloses.WithLabelValues(reason).Inc()
	m.streamDuration.Observe(lifetime.Seconds())
}

func (m *Metrics) StreamRejected(reason string) {
	m.streamRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) FrameSent(event string) {
	m.framesSent.WithLabelValues(event).Inc()
}

// BusPanic counts a recovered subscriber panic.
func (m *Metrics) BusPanic(_ any, _ any) {
	m.busPanics.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.created.Collect(ch)
	m.suppressed.Collect(ch)
	m.readTransitions.Collect(ch)
	m.activeStreams.Collect(ch)
	m.streamCloses.Collect(ch)
	m.streamDuration.Collect(ch)
	m.streamRejected.Collect(ch)
	m.framesSent.Collect(ch)
	m.busPanics.Collect(ch)
	m.httpRequests.Collect(ch)
	m.httpDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.created.Describe(ch)
	m.suppressed.Describe(ch)
	m.readTransitions.Describe(ch)
	m.activeStreams.Describe(ch)
	m.streamCloses.Describe(ch)
	m.streamDuration.Describe(ch)
	m.streamRejected.Describe(ch)
	m.framesSent.Describe(ch)
	m.busPanics.Describe(ch)
	m.httpRequests.Describe(ch)
	m.httpDuration.Describe(ch)
}
