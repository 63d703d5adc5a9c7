package chat

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.frameReceived("CHAT")
	m.frameReceived("CHAT")
	m.frameReceived("PONG")
	m.eventDelivered()
	m.heartbeatSent()
	m.heartbeatAcked()
	m.streamError("decode")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("CHAT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("PONG")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDelivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heartbeatsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heartbeatAcks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamErrors.WithLabelValues("decode")))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.frameReceived("CHAT")
		m.eventDelivered()
		m.heartbeatSent()
		m.heartbeatAcked()
		m.streamError("read")
	})
}

func TestNewMetrics_Names(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.frameReceived("CHAT")
	m.streamError("read")

	count, err := testutil.GatherAndCount(reg,
		"trovo_chat_frames_received_total",
		"trovo_chat_events_delivered_total",
		"trovo_chat_heartbeats_sent_total",
		"trovo_chat_heartbeat_acks_total",
		"trovo_chat_stream_errors_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 5, count)
}
