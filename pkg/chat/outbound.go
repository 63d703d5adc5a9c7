package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/omochice/trovo-chat/pkg/protocol"
)

// outbound owns the write half of the connection.
type outbound struct {
	conn     Conn
	commands <-chan protocol.Message
	events   chan<- result
	cancel   context.CancelFunc
	logger   *zap.Logger
	metrics  *Metrics
}

// run writes queued messages in order until the queue is closed, the
// context is cancelled or a write fails.
func (o *outbound) run(ctx context.Context) {
	defer o.cancel()
	defer recoverActor("outbound", func(err *StreamError) { o.fail(ctx, err) })

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-o.commands:
			if !ok {
				o.logger.Debug("command queue closed")
				return
			}
			if err := o.write(msg); err != nil {
				o.fail(ctx, err)
				return
			}
		}
	}
}

func (o *outbound) fail(ctx context.Context, err *StreamError) {
	o.logger.Error("outbound actor stopped", zap.Error(err))
	o.metrics.streamError(err.Op)
	emit(ctx, o.events, result{err: err})
}

func (o *outbound) write(msg protocol.Message) *StreamError {
	data, err := protocol.Encode(msg)
	if err != nil {
		return &StreamError{Op: "encode", Err: err}
	}
	if err := o.conn.WriteFrame(data); err != nil {
		return &StreamError{Op: "write", Err: err}
	}
	o.logger.Debug("frame sent", zap.Stringer("type", msg.Type()))
	return nil
}

// recoverActor turns a panic in an actor into a terminal stream error
// handed to fail. It must be deferred directly.
func recoverActor(name string, fail func(*StreamError)) {
	if r := recover(); r != nil {
		fail(&StreamError{Op: "panic", Err: fmt.Errorf("%s actor: %v", name, r)})
	}
}
