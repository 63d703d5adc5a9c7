// Package chattest provides a scriptable chat peer for tests.
package chattest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/trovo-chat/pkg/protocol"
)

// DefaultTimeout bounds every blocking helper.
const DefaultTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server accepts chat socket connections and hands each one to the test as a Peer.
type Server struct {
	// URL is the ws:// address of the chat endpoint.
	URL string

	srv   *httptest.Server
	peers chan *Peer
	quit  chan struct{}
	once  sync.Once
}

// NewServer starts a Server that is stopped when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		peers: make(chan *Peer, 4),
		quit:  make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleWebSocket)
	s.srv = httptest.NewServer(mux)
	s.URL = "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/chat"

	t.Cleanup(s.Close)
	return s
}

// Close stops the server and drops every open connection.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.quit)
		s.srv.CloseClientConnections()
		s.srv.Close()
	})
}

// Accept waits for the next client connection.
func (s *Server) Accept(t testing.TB) *Peer {
	t.Helper()

	select {
	case p := <-s.peers:
		return p
	case <-time.After(DefaultTimeout):
		t.Fatal("timeout waiting for client connection")
		return nil
	}
}

// handleWebSocket upgrades the request and keeps it open until the peer is closed
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p := &Peer{
		conn:   conn,
		header: r.Header.Clone(),
		done:   make(chan struct{}),
	}
	select {
	case s.peers <- p:
	case <-s.quit:
		conn.Close()
		return
	}

	select {
	case <-p.done:
	case <-s.quit:
		p.Drop()
	}
}

// Peer is the server end of one chat socket.
type Peer struct {
	conn   *websocket.Conn
	header http.Header
	wmu    sync.Mutex
	once   sync.Once
	done   chan struct{}
}

// Header returns the handshake request headers sent by the client.
func (p *Peer) Header() http.Header {
	return p.header
}

// ReadMessage reads and decodes the next frame sent by the client.
func (p *Peer) ReadMessage() (protocol.Message, error) {
	_ = p.conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(data)
}

// Expect reads the next frame and fails the test if it cannot be decoded.
func (p *Peer) Expect(t testing.TB) protocol.Message {
	t.Helper()

	msg, err := p.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read client message: %v", err)
	}
	return msg
}

// AcceptAuth reads the client's AUTH message and acknowledges it.
func (p *Peer) AcceptAuth(t testing.TB) protocol.Auth {
	t.Helper()

	auth, ok := p.Expect(t).(protocol.Auth)
	if !ok {
		t.Fatal("expected AUTH as the first client message")
	}
	if err := p.Send(protocol.Response{Nonce: auth.Nonce}); err != nil {
		t.Fatalf("failed to acknowledge auth: %v", err)
	}
	return auth
}

// Send encodes msg and writes it as a text frame.
func (p *Peer) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return p.SendRaw(data)
}

// SendRaw writes data as a text frame without validating it.
func (p *Peer) SendRaw(data []byte) error {
	return p.write(websocket.TextMessage, data)
}

// SendBinary writes data as a binary frame.
func (p *Peer) SendBinary(data []byte) error {
	return p.write(websocket.BinaryMessage, data)
}

func (p *Peer) write(kind int, data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(DefaultTimeout))
	return p.conn.WriteMessage(kind, data)
}

// CloseWith sends a close frame with code and reason, then drops the connection.
func (p *Peer) CloseWith(code int, reason string) error {
	p.wmu.Lock()
	err := p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(DefaultTimeout))
	p.wmu.Unlock()

	// Give the client a chance to read the close frame before the socket goes away.
	_ = p.conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	for {
		if _, _, rerr := p.conn.ReadMessage(); rerr != nil {
			break
		}
	}
	p.Drop()
	return err
}

// Drop closes the underlying connection without a close frame.
func (p *Peer) Drop() {
	p.once.Do(func() {
		p.conn.Close()
		close(p.done)
	})
}

// WaitClosed blocks until the client closes the connection and returns the
// close code it sent, or -1 if the connection ended without a close frame.
func (p *Peer) WaitClosed(t testing.TB) int {
	t.Helper()

	_ = p.conn.SetReadDeadline(time.Now().Add(DefaultTimeout))
	for {
		_, _, err := p.conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return closeErr.Code
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("timeout waiting for client to close")
		}
		return -1
	}
}
