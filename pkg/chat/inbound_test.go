package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/omochice/trovo-chat/internal/transport/ws"
	"github.com/omochice/trovo-chat/pkg/protocol"
)

func newTestInbound(t *testing.T) (*inbound, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	_, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &inbound{
		commands: make(chan protocol.Message, commandQueueSize),
		events:   make(chan result, eventQueueSize),
		cancel:   cancel,
		clock:    clock.NewMock(),
		logger:   zap.New(core),
		nonce:    DefaultNonce,
		authed:   make(chan struct{}),
		hb:       heartbeat{interval: DefaultHeartbeatInterval},
		exited:   make(chan struct{}),
	}, logs
}

func TestInbound_HandleResponse(t *testing.T) {
	in, _ := newTestInbound(t)
	authed := in.authed
	ctx := context.Background()

	require.True(t, in.handle(ctx, protocol.Response{Nonce: "other"}))
	select {
	case <-authed:
		t.Fatal("handshake completed on a foreign nonce")
	default:
	}

	require.True(t, in.handle(ctx, protocol.Response{Nonce: DefaultNonce}))
	select {
	case <-authed:
	default:
		t.Fatal("expected handshake to complete")
	}
	assert.Nil(t, in.authed)
	assert.NotNil(t, in.ticks(), "heartbeat timer must be armed by the ack")

	// A duplicate acknowledgement must not close the channel twice.
	assert.True(t, in.handle(ctx, protocol.Response{Nonce: DefaultNonce}))
}

func TestInbound_HandlePong(t *testing.T) {
	in, logs := newTestInbound(t)
	ctx := context.Background()
	in.hb.sent = 1

	require.True(t, in.handle(ctx, protocol.Pong{Nonce: "1", Gap: 10}))
	assert.Equal(t, uint64(1), in.hb.acked)
	assert.Equal(t, 10*time.Second, in.hb.interval)

	require.True(t, in.handle(ctx, protocol.Pong{Nonce: "-2", Gap: 40}))
	assert.Equal(t, uint64(1), in.hb.acked)
	assert.Equal(t, 10*time.Second, in.hb.interval)
	assert.Equal(t, 1, logs.FilterMessage("skipping heartbeat ack").Len())

	in.hb.acked, in.hb.sent = 5, 6
	require.True(t, in.handle(ctx, protocol.Pong{Nonce: "2", Gap: 40}))
	assert.Equal(t, uint64(5), in.hb.acked)
	assert.Equal(t, 10*time.Second, in.hb.interval)
}

func TestInbound_HandleChatPreservesOrder(t *testing.T) {
	in, _ := newTestInbound(t)
	events := make(chan result, eventQueueSize)
	in.events = events
	ctx := context.Background()

	batch := protocol.Chat{EID: "e"}
	for _, id := range []string{"a", "b", "c", "d"} {
		batch.Chats = append(batch.Chats, protocol.ChatEvent{MessageID: id})
	}
	require.True(t, in.handle(ctx, batch))

	require.Len(t, events, 4)
	for _, want := range []string{"a", "b", "c", "d"} {
		r := <-events
		require.NoError(t, r.err)
		assert.Equal(t, want, r.event.MessageID)
	}
}

func TestInbound_HandleChatStopsWhenCancelled(t *testing.T) {
	in, _ := newTestInbound(t)
	in.events = make(chan result)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	keepGoing := in.handle(ctx, protocol.Chat{Chats: []protocol.ChatEvent{{MessageID: "a"}}})
	assert.False(t, keepGoing)
}

func TestInbound_HandleIgnoresClientMessages(t *testing.T) {
	in, logs := newTestInbound(t)
	ctx := context.Background()

	assert.True(t, in.handle(ctx, protocol.Ping{Nonce: "1"}))
	assert.True(t, in.handle(ctx, protocol.Auth{Nonce: "n"}))
	assert.Equal(t, 2, logs.FilterMessage("ignoring unexpected message from peer").Len())
}

func TestReadError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantOp string
	}{
		{"transport close frame", &ws.CloseError{Code: 1000, Reason: "bye"}, "close"},
		{"dialer close error", &PeerClosedError{Code: 1001, Reason: "bye"}, "close"},
		{"other read error", errors.New("connection reset"), "read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := readError(tt.err)
			assert.Equal(t, tt.wantOp, err.Op)
			if tt.wantOp == "close" {
				var peerErr *PeerClosedError
				require.ErrorAs(t, err, &peerErr)
				assert.Equal(t, "bye", peerErr.Reason)
			}
		})
	}
}

func TestInbound_NoHeartbeatBeforeAck(t *testing.T) {
	in, _ := newTestInbound(t)
	assert.Nil(t, in.ticks())

	require.True(t, in.handle(context.Background(), protocol.Pong{Nonce: "1", Gap: 5}))
	assert.Nil(t, in.ticks())
}

func TestRecoverActor(t *testing.T) {
	var got *StreamError
	func() {
		defer recoverActor("inbound", func(err *StreamError) { got = err })
		panic("boom")
	}()

	require.NotNil(t, got)
	assert.Equal(t, "panic", got.Op)
	assert.EqualError(t, got.Err, "inbound actor: boom")
}

