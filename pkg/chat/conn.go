package chat

import (
	"context"

	"github.com/omochice/trovo-chat/internal/transport/ws"
)

// Conn is a message-oriented duplex connection to the chat service.
// ReadFrame is only called by the inbound actor and WriteFrame only by
// the outbound actor (and once by Connect for the handshake).
type Conn interface {
	// ReadFrame returns the next whole text or binary message.
	ReadFrame() ([]byte, error)
	// WriteFrame writes one text message.
	WriteFrame(data []byte) error
	// Close tears down the connection. It may be called more than once.
	Close() error
}

// DialFunc opens a Conn to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

func dialWebSocket(ctx context.Context, url string) (Conn, error) {
	conn, err := ws.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
