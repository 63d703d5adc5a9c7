package chat

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultURL is the chat service endpoint.
	DefaultURL = "wss://open-chat.trovo.live/chat"
	// DefaultNonce is sent with AUTH unless another nonce is configured.
	DefaultNonce = "authenticate"
	// DefaultHeartbeatInterval is used until the peer advises another one.
	DefaultHeartbeatInterval = 30 * time.Second
)

type options struct {
	url       string
	dial      DialFunc
	logger    *zap.Logger
	clock     clock.Clock
	nonce     string
	heartbeat time.Duration
	metrics   *Metrics
}

// Option configures Connect.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		url:       DefaultURL,
		dial:      dialWebSocket,
		logger:    zap.NewNop(),
		clock:     clock.New(),
		nonce:     DefaultNonce,
		heartbeat: DefaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithURL sets the chat endpoint.
func WithURL(url string) Option {
	return func(o *options) {
		o.url = url
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(dial DialFunc) Option {
	return func(o *options) {
		if dial != nil {
			o.dial = dial
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock driving heartbeats.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithNonce sets the handshake nonce.
func WithNonce(nonce string) Option {
	return func(o *options) {
		o.nonce = nonce
	}
}

// WithRandomNonce generates a fresh handshake nonce for the connection.
func WithRandomNonce() Option {
	return func(o *options) {
		o.nonce = uuid.NewString()
	}
}

// WithHeartbeatInterval sets the interval used until the peer advises one.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.heartbeat = d
		}
	}
}

// WithMetrics records stream activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
