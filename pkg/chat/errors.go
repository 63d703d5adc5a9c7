package chat

import (
	"errors"
	"strconv"
)

var (
	// ErrClosedBeforeAuth is returned by Connect when the socket ended before
	// the peer acknowledged the handshake.
	ErrClosedBeforeAuth = errors.New("chat socket closed before authenticated")
	// ErrHeartbeatTimeout ends the stream when the peer stops acknowledging heartbeats.
	ErrHeartbeatTimeout = errors.New("chat peer missed heartbeat acknowledgements")
)

// ConnectError is returned by Connect.
type ConnectError struct {
	// Op is one of "dial", "encode", "auth" or "handshake".
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return "failed to connect chat (" + e.Op + "): " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// StreamError is the terminal item of an event stream.
type StreamError struct {
	// Op is one of "read", "decode", "close", "write", "encode", "heartbeat" or "panic".
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return "chat stream " + e.Op + ": " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// PeerClosedError reports a close frame sent by the peer.
type PeerClosedError struct {
	Code int
	// Reason is empty if the peer sent none.
	Reason string
}

func (e *PeerClosedError) Error() string {
	if e.Reason == "" {
		return "closed by peer (" + strconv.Itoa(e.Code) + ")"
	}
	return "closed by peer (" + strconv.Itoa(e.Code) + "): " + e.Reason
}
