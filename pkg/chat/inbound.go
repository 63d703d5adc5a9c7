package chat

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/omochice/trovo-chat/internal/transport/ws"
	"github.com/omochice/trovo-chat/pkg/protocol"
)

// result is one item of the event queue.
type result struct {
	event protocol.ChatEvent
	err   error
}

// frame is one read from the transport.
type frame struct {
	data []byte
	err  error
}

// inbound owns the read half of the connection and the heartbeat state.
type inbound struct {
	frames   <-chan frame
	commands chan<- protocol.Message
	events   chan<- result
	cancel   context.CancelFunc
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *Metrics

	// nonce and authed belong to the pending handshake; authed is set to
	// nil once it has been closed.
	nonce  string
	authed chan struct{}

	// hb and timer drive the PING schedule; timer stays nil until the
	// handshake is acknowledged.
	hb    heartbeat
	timer *clock.Timer

	// cause is the terminal error, valid once exited is closed.
	cause  error
	exited chan struct{}
}

// run is the inbound event loop.
func (in *inbound) run(ctx context.Context) {
	defer close(in.exited)
	defer in.cancel()
	defer close(in.commands)
	defer recoverActor("inbound", func(err *StreamError) { in.fail(ctx, err) })
	defer func() {
		if in.timer != nil {
			in.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			in.logger.Debug("inbound actor cancelled")
			return

		case <-in.ticks():
			nonce, err := in.hb.tick()
			if err != nil {
				in.fail(ctx, &StreamError{Op: "heartbeat", Err: err})
				return
			}
			in.timer.Reset(in.hb.interval)
			select {
			case in.commands <- protocol.Ping{Nonce: nonce}:
				in.logger.Debug("heartbeat queued", zap.String("nonce", nonce))
				in.metrics.heartbeatSent()
			case <-ctx.Done():
				return
			}

		case f, ok := <-in.frames:
			if !ok {
				in.logger.Debug("chat socket reached end of stream")
				return
			}
			if f.err != nil {
				in.fail(ctx, readError(f.err))
				return
			}
			msg, err := protocol.Decode(f.data)
			if err != nil {
				in.fail(ctx, &StreamError{Op: "decode", Err: err})
				return
			}
			if !in.handle(ctx, msg) {
				return
			}
		}
	}
}

// handle applies one decoded message and reports whether the loop should continue.
func (in *inbound) handle(ctx context.Context, msg protocol.Message) bool {
	in.metrics.frameReceived(msg.Type().String())

	switch m := msg.(type) {
	case protocol.Response:
		if in.authed == nil || m.Nonce != in.nonce {
			in.logger.Debug("ignoring auth response", zap.String("nonce", m.Nonce))
			return true
		}
		in.logger.Debug("chat socket authenticated")
		// Armed before authed is closed, so Connect returns with the timer running.
		in.timer = in.clock.Timer(in.hb.interval)
		close(in.authed)
		in.authed = nil

	case protocol.Pong:
		advanced, err := in.hb.ack(m.Nonce, m.Gap)
		if err != nil {
			in.logger.Warn("skipping heartbeat ack", zap.Error(err))
			return true
		}
		if advanced {
			in.metrics.heartbeatAcked()
			in.logger.Debug("heartbeat acknowledged",
				zap.Uint64("acked", in.hb.acked),
				zap.Duration("interval", in.hb.interval))
		}

	case protocol.Chat:
		for _, ev := range m.Chats {
			select {
			case in.events <- result{event: ev}:
				in.metrics.eventDelivered()
			case <-ctx.Done():
				return false
			}
		}

	default:
		in.logger.Warn("ignoring unexpected message from peer", zap.Stringer("type", msg.Type()))
	}
	return true
}

// ticks returns the heartbeat timer channel, or nil before the handshake.
// No PING is queued until the outbound actor runs.
func (in *inbound) ticks() <-chan time.Time {
	if in.timer == nil {
		return nil
	}
	return in.timer.C
}

// fail records err as the terminal cause and hands it to the consumer.
func (in *inbound) fail(ctx context.Context, err *StreamError) {
	in.cause = err
	in.logger.Error("inbound actor stopped", zap.Error(err))
	in.metrics.streamError(err.Op)
	emit(ctx, in.events, result{err: err})
}

func readError(err error) *StreamError {
	var closeErr *ws.CloseError
	if errors.As(err, &closeErr) {
		return &StreamError{Op: "close", Err: &PeerClosedError{Code: closeErr.Code, Reason: closeErr.Reason}}
	}
	var peerErr *PeerClosedError
	if errors.As(err, &peerErr) {
		return &StreamError{Op: "close", Err: peerErr}
	}
	return &StreamError{Op: "read", Err: err}
}

// pump feeds transport reads to the inbound actor. A clean end of stream
// closes frames without an error.
func pump(ctx context.Context, conn Conn, frames chan<- frame) {
	defer close(frames)

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case frames <- frame{err: err}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case frames <- frame{data: data}:
		case <-ctx.Done():
			return
		}
	}
}

// emit delivers r unless the stream is already shutting down.
func emit(ctx context.Context, events chan<- result, r result) {
	select {
	case events <- r:
	case <-ctx.Done():
	}
}
