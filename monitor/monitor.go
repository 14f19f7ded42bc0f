// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedSessions prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	EventsReceived    *prometheus.CounterVec
	EventsRejected    *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	EventLatency      prometheus.Histogram
	RoomFull          prometheus.Counter
	RoundsRevealed    prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_sessions",
			Help:      "Number of open WebSocket sessions",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one participant",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound events by type",
		}, []string{"type"}),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Inbound frames rejected at the boundary, by reason",
		}, []string{"reason"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages by type, counted once per recipient",
		}, []string{"type"}),
		EventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_latency_seconds",
			Help:      "Time from reading an inbound event to finishing delivery",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		RoomFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_full_rejections_total",
			Help:      "Joins rejected because the room was at capacity",
		}),
		RoundsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_revealed_total",
			Help:      "Rounds whose votes were revealed",
		}),
	}
}

// Monitor owns a private registry so several servers (and tests) can coexist
// in one process.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		m.metrics.ConnectedSessions,
		m.metrics.ActiveRooms,
		m.metrics.EventsReceived,
		m.metrics.EventsRejected,
		m.metrics.MessagesSent,
		m.metrics.EventLatency,
		m.metrics.RoomFull,
		m.metrics.RoundsRevealed,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
		collectors.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) IncConnectedSessions() {
	m.metrics.ConnectedSessions.Inc()
}

func (m *Monitor) DecConnectedSessions() {
	m.metrics.ConnectedSessions.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncEventsReceived(eventType string) {
	m.metrics.EventsReceived.WithLabelValues(eventType).Inc()
}

func (m *Monitor) IncEventsRejected(reason string) {
	m.metrics.EventsRejected.WithLabelValues(reason).Inc()
}

func (m *Monitor) AddMessagesSent(eventType string, recipients int) {
	m.metrics.MessagesSent.WithLabelValues(eventType).Add(float64(recipients))
}

func (m *Monitor) IncRoomFull() {
	m.metrics.RoomFull.Inc()
}

func (m *Monitor) IncRoundsRevealed() {
	m.metrics.RoundsRevealed.Inc()
}

func (m *Monitor) ObserveEventLatency(duration time.Duration) {
	m.metrics.EventLatency.Observe(duration.Seconds())
}
