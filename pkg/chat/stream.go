// Package chat implements the real-time chat socket client: the AUTH
// handshake, PING/PONG liveness and the stream of chat events.
//
// Connect starts two actors per connection. The inbound actor owns the read
// half and the heartbeat state, the outbound actor owns the write half. They
// talk through a command queue of capacity 1 and hand events to the consumer
// through a queue of capacity 32; both observe a single cancellation signal.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/trovo-chat/pkg/protocol"
)

const (
	commandQueueSize = 1
	eventQueueSize   = 32
)

// Stream is an authenticated chat connection. Next is meant for a single
// consumer; Close may be called from anywhere.
type Stream struct {
	events   <-chan result
	cancel   context.CancelFunc
	done     chan struct{}
	logger   *zap.Logger
	finished atomic.Bool

	closeOnce sync.Once
	cleanup   runtime.Cleanup
}

// Connect dials the chat service, authenticates with token and returns once
// the peer acknowledged the handshake. ctx bounds the dial and the handshake
// wait only; the returned Stream lives until Close or a terminal error.
func Connect(ctx context.Context, token protocol.ChatToken, opts ...Option) (*Stream, error) {
	o := newOptions(opts)
	logger := o.logger.With(zap.String("url", o.url))

	conn, err := o.dial(ctx, o.url)
	if err != nil {
		return nil, &ConnectError{Op: "dial", Err: err}
	}
	logger.Debug("chat socket connected")

	runCtx, cancel := context.WithCancel(context.Background())
	frames := make(chan frame)
	commands := make(chan protocol.Message, commandQueueSize)
	events := make(chan result, eventQueueSize)

	in := &inbound{
		frames:   frames,
		commands: commands,
		events:   events,
		cancel:   cancel,
		clock:    o.clock,
		logger:   logger.Named("inbound"),
		metrics:  o.metrics,
		nonce:    o.nonce,
		authed:   make(chan struct{}),
		hb:       heartbeat{interval: o.heartbeat},
		exited:   make(chan struct{}),
	}
	authed := in.authed

	var g errgroup.Group
	g.Go(func() error {
		<-runCtx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		pump(runCtx, conn, frames)
		return nil
	})
	g.Go(func() error {
		in.run(runCtx)
		return nil
	})

	abort := func(err error) (*Stream, error) {
		cancel()
		if werr := g.Wait(); werr != nil {
			logger.Debug("failed to close chat socket", zap.Error(werr))
		}
		return nil, err
	}

	auth, err := protocol.Encode(protocol.Auth{Nonce: o.nonce, Token: token})
	if err != nil {
		return abort(&ConnectError{Op: "encode", Err: err})
	}
	if err := conn.WriteFrame(auth); err != nil {
		return abort(&ConnectError{Op: "auth", Err: err})
	}

	if err := waitAuth(ctx, in, authed); err != nil {
		return abort(&ConnectError{Op: "handshake", Err: err})
	}

	out := &outbound{
		conn:     conn,
		commands: commands,
		events:   events,
		cancel:   cancel,
		logger:   logger.Named("outbound"),
		metrics:  o.metrics,
	}
	g.Go(func() error {
		out.run(runCtx)
		return nil
	})

	// The goroutine below must not reference s, or the cleanup never runs.
	done := make(chan struct{})
	go func() {
		if err := g.Wait(); err != nil {
			logger.Debug("failed to close chat socket", zap.Error(err))
		}
		close(events)
		close(done)
	}()

	s := &Stream{
		events: events,
		cancel: cancel,
		done:   done,
		logger: logger,
	}
	s.cleanup = runtime.AddCleanup(s, func(cancel context.CancelFunc) { cancel() }, cancel)

	logger.Info("chat stream started")
	return s, nil
}

// waitAuth blocks until the handshake is acknowledged, the inbound actor
// exits or ctx is done. The ack wins when several are ready at once; the
// actor closes authed before exited.
func waitAuth(ctx context.Context, in *inbound, authed <-chan struct{}) error {
	select {
	case <-authed:
		return nil
	case <-in.exited:
	case <-ctx.Done():
	}

	select {
	case <-authed:
		return nil
	default:
	}

	select {
	case <-in.exited:
		if in.cause != nil {
			return fmt.Errorf("%w: %w", ErrClosedBeforeAuth, in.cause)
		}
		return ErrClosedBeforeAuth
	default:
		return ctx.Err()
	}
}

// Next returns the next chat event. It returns io.EOF once the stream has
// ended; a terminal *StreamError is returned exactly once before that.
func (s *Stream) Next(ctx context.Context) (protocol.ChatEvent, error) {
	if s.finished.Load() {
		return protocol.ChatEvent{}, io.EOF
	}

	select {
	case <-ctx.Done():
		return protocol.ChatEvent{}, ctx.Err()
	case r, ok := <-s.events:
		if !ok {
			s.finished.Store(true)
			return protocol.ChatEvent{}, io.EOF
		}
		if r.err != nil {
			s.finished.Store(true)
			s.Close()
			return protocol.ChatEvent{}, r.err
		}
		if s.finished.Load() {
			return protocol.ChatEvent{}, io.EOF
		}
		return r.event, nil
	}
}

// Events returns the remaining events as a sequence. The sequence stops
// after the terminal error or at the end of the stream.
func (s *Stream) Events(ctx context.Context) iter.Seq2[protocol.ChatEvent, error] {
	return func(yield func(protocol.ChatEvent, error) bool) {
		for {
			ev, err := s.Next(ctx)
			if errors.Is(err, io.EOF) && !isStreamError(err) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close stops both actors and closes the socket. It is safe to call
// concurrently and more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.finished.Store(true)
		s.cleanup.Stop()
		s.cancel()
		s.logger.Info("chat stream closed")
	})
	return nil
}

// Done is closed once both actors have exited and the socket is closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func isStreamError(err error) bool {
	var streamErr *StreamError
	return errors.As(err, &streamErr)
}
