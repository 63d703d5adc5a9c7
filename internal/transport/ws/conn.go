// Package ws provides the client side of a WebSocket connection built on gobwas/ws.
package ws

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/multierr"
)

// closeWriteTimeout bounds how long Close waits to send the close frame.
const closeWriteTimeout = time.Second

// CloseError is returned by ReadFrame when the peer sent a close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return "websocket closed by peer: status " + strconv.Itoa(e.Code)
	}
	return "websocket closed by peer: status " + strconv.Itoa(e.Code) + ": " + e.Reason
}

// HasStatus reports whether the peer sent a close status at all.
func (e *CloseError) HasStatus() bool {
	return ws.StatusCode(e.Code) != ws.StatusNoStatusRcvd && e.Code != 0
}

// Conn is a client WebSocket connection. ReadFrame and WriteFrame may be
// called from different goroutines; each must have a single caller.
type Conn struct {
	conn      net.Conn
	reader    *wsutil.Reader
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a WebSocket connection to url.
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	dialer := ws.Dialer{}
	if header != nil {
		dialer.Header = ws.HandshakeHeaderHTTP(header)
	}

	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return NewConn(conn, br), nil
}

// NewConn wraps an already upgraded net.Conn. br holds bytes the server sent
// right after the handshake and may be nil.
func NewConn(conn net.Conn, br *bufio.Reader) *Conn {
	var src io.Reader = conn
	if br != nil {
		src = br
	}

	c := &Conn{conn: conn}
	c.reader = &wsutil.Reader{
		Source:         src,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: c.handleControl,
	}
	return c
}

// ReadFrame returns the payload of the next text or binary message.
// Control frames are answered internally.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, err
		}

		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, c.reader); err != nil {
				return nil, err
			}
			continue
		}

		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := c.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		return io.ReadAll(c.reader)
	}
}

// WriteFrame writes data as a single text message.
func (c *Conn) WriteFrame(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := wsutil.WriteClientText(c.conn, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close sends a normal closure frame and closes the socket. It is safe to
// call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(closeWriteTimeout))

		c.wmu.Lock()
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		werr := wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
		c.wmu.Unlock()

		c.closeErr = multierr.Append(werr, c.conn.Close())
	})
	return c.closeErr
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// handleControl answers ping and close frames. The reply is built in memory
// and written under the write lock so it never interleaves with WriteFrame.
func (c *Conn) handleControl(hdr ws.Header, r io.Reader) error {
	var reply bytes.Buffer
	handler := wsutil.ControlHandler{
		Src:   r,
		Dst:   &reply,
		State: ws.StateClientSide,
	}
	herr := handler.Handle(hdr)

	if reply.Len() > 0 {
		c.wmu.Lock()
		_, werr := c.conn.Write(reply.Bytes())
		c.wmu.Unlock()
		if werr != nil && herr == nil {
			herr = werr
		}
	}

	var closed wsutil.ClosedError
	if errors.As(herr, &closed) {
		return &CloseError{Code: int(closed.Code), Reason: closed.Reason}
	}
	return herr
}
