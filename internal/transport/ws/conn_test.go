package ws_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/trovo-chat/internal/transport/ws"
)

var upgrader = websocket.Upgrader{}

func newServer(t *testing.T, handle func(c *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		defer c.Close()
		handle(c)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *ws.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConn_ReadFrame(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.TextMessage, []byte("text frame"))
		c.WriteMessage(websocket.BinaryMessage, []byte("binary frame"))
		c.ReadMessage()
	})
	conn := dial(t, url)

	for _, want := range []string{"text frame", "binary frame"} {
		data, err := conn.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if string(data) != want {
			t.Errorf("ReadFrame() = %q, want %q", string(data), want)
		}
	}
}

func TestConn_WriteFrame(t *testing.T) {
	type frame struct {
		kind int
		data []byte
	}
	received := make(chan frame, 1)

	url := newServer(t, func(c *websocket.Conn) {
		kind, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		received <- frame{kind, data}
	})
	conn := dial(t, url)

	if err := conn.WriteFrame([]byte(`{"type":"PING","nonce":"1"}`)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	select {
	case f := <-received:
		if f.kind != websocket.TextMessage {
			t.Errorf("expected text message, got %d", f.kind)
		}
		if string(f.data) != `{"type":"PING","nonce":"1"}` {
			t.Errorf("server received %q", string(f.data))
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestConn_ReadFrame_PeerClose(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.ReadMessage()
	})
	conn := dial(t, url)

	_, err := conn.ReadFrame()
	var closeErr *ws.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected *ws.CloseError, got %v", err)
	}
	if closeErr.Code != websocket.CloseGoingAway {
		t.Errorf("expected code %d, got %d", websocket.CloseGoingAway, closeErr.Code)
	}
	if closeErr.Reason != "bye" {
		t.Errorf("expected reason %q, got %q", "bye", closeErr.Reason)
	}
	if !closeErr.HasStatus() {
		t.Error("expected close error to carry a status")
	}
}

func TestConn_AnswersPing(t *testing.T) {
	pong := make(chan string, 1)

	url := newServer(t, func(c *websocket.Conn) {
		c.SetPongHandler(func(data string) error {
			pong <- data
			return nil
		})
		c.WriteControl(websocket.PingMessage, []byte("are you there"), time.Now().Add(time.Second))
		c.WriteMessage(websocket.TextMessage, []byte("after ping"))
		c.ReadMessage()
	})
	conn := dial(t, url)

	data, err := conn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if string(data) != "after ping" {
		t.Errorf("ReadFrame() = %q, want %q", string(data), "after ping")
	}

	select {
	case got := <-pong:
		if got != "are you there" {
			t.Errorf("expected pong payload %q, got %q", "are you there", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pong")
	}
}

func TestConn_Close(t *testing.T) {
	closed := make(chan error, 1)

	url := newServer(t, func(c *websocket.Conn) {
		_, _, err := c.ReadMessage()
		closed <- err
	})
	conn := dial(t, url)

	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	select {
	case err := <-closed:
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("expected normal closure, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}

	if _, err := conn.ReadFrame(); err == nil {
		t.Error("expected ReadFrame to fail after Close")
	}
}

func TestDial_Refused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := ws.Dial(ctx, "ws://127.0.0.1:1/chat", nil); err == nil {
		t.Error("expected connection error, got nil")
	}
}
