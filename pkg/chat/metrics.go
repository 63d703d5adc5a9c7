package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of chat streams. A nil *Metrics
// records nothing.
type Metrics struct {
	framesReceived  *prometheus.CounterVec
	eventsDelivered prometheus.Counter
	heartbeatsSent  prometheus.Counter
	heartbeatAcks   prometheus.Counter
	streamErrors    *prometheus.CounterVec
}

// NewMetrics registers the chat collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trovo",
			Subsystem: "chat",
			Name:      "frames_received_total",
			Help:      "Total number of decoded frames by message type",
		}, []string{"type"}),

		eventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trovo",
			Subsystem: "chat",
			Name:      "events_delivered_total",
			Help:      "Total number of chat events handed to the consumer",
		}),

		heartbeatsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trovo",
			Subsystem: "chat",
			Name:      "heartbeats_sent_total",
			Help:      "Total number of PING messages queued",
		}),

		heartbeatAcks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trovo",
			Subsystem: "chat",
			Name:      "heartbeat_acks_total",
			Help:      "Total number of PONG messages that advanced the acknowledged counter",
		}),

		streamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trovo",
			Subsystem: "chat",
			Name:      "stream_errors_total",
			Help:      "Total number of terminal stream errors by operation",
		}, []string{"op"}),
	}
}

func (m *Metrics) frameReceived(typ string) {
	if m != nil {
		m.framesReceived.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) eventDelivered() {
	if m != nil {
		m.eventsDelivered.Inc()
	}
}

func (m *Metrics) heartbeatSent() {
	if m != nil {
		m.heartbeatsSent.Inc()
	}
}

func (m *Metrics) heartbeatAcked() {
	if m != nil {
		m.heartbeatAcks.Inc()
	}
}

func (m *Metrics) streamError(op string) {
	if m != nil {
		m.streamErrors.WithLabelValues(op).Inc()
	}
}
