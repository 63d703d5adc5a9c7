// Package api is a small client for the open platform REST API: user and
// channel lookup, chat tokens and sending chat messages.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the root of the open platform API.
	DefaultBaseURL = "https://open-api.trovo.live/openplatform"
	// DefaultTimeout applies to the default HTTP client.
	DefaultTimeout = 30 * time.Second

	tracerName = "github.com/omochice/trovo-chat/pkg/api"
)

// Client makes requests to the API on behalf of an auth provider.
type Client struct {
	http    *http.Client
	baseURL string
	auth    ClientIDProvider
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient shares an existing HTTP client and its connection pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBaseURL replaces DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewClient creates a Client. auth may also implement AccessTokenProvider
// to enable the calls made on behalf of a user.
func NewClient(auth ClientIDProvider, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultBaseURL,
		auth:    auth,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	op     string
	method string
	path   string
	body   any
	// authorized adds the user's access token.
	authorized bool
}

// do sends req and decodes a successful response into out, which may be nil.
func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "api."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("http.path", req.path),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Client-ID", c.auth.ClientID())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.authorized {
		provider, ok := c.auth.(AccessTokenProvider)
		if !ok {
			return ErrAccessTokenRequired
		}
		token, err := accessToken(ctx, provider)
		if err != nil {
			return err
		}
		httpReq.Header.Set("Authorization", "OAuth "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", req.op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("api request",
		zap.String("op", req.op),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode))

	if canHandleCode(resp.StatusCode) {
		data, _ := io.ReadAll(resp.Body)
		return decodeAPIError(data)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: unexpected status %s: %s", req.op, resp.Status, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.op, err)
	}
	return nil
}

// Users looks up users by username. The API returns nothing at all if any
// of the usernames does not exist.
func (c *Client) Users(ctx context.Context, usernames []string) ([]User, error) {
	var resp getUsersResponse
	err := c.do(ctx, request{
		op:     "get_users",
		method: http.MethodPost,
		path:   "/getusers",
		body:   getUsersPayload{User: usernames},
	}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == StatusInvalidParameters {
			return []User{}, nil
		}
		return nil, err
	}
	if resp.Users == nil {
		resp.Users = []User{}
	}
	return resp.Users, nil
}

// User looks up a single user by username. It returns nil if the user does not exist.
func (c *Client) User(ctx context.Context, username string) (*User, error) {
	users, err := c.Users(ctx, []string{username})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// ChannelByID returns the channel with the given id, or nil if it does not exist.
func (c *Client) ChannelByID(ctx context.Context, channelID string) (*ChannelInfo, error) {
	var channel ChannelInfo
	err := c.do(ctx, request{
		op:     "get_channel",
		method: http.MethodPost,
		path:   "/channels/id",
		body:   getChannelByIDPayload{ChannelID: channelID},
	}, &channel)
	if err != nil {
		return nil, err
	}
	// Unknown channels come back zeroed out with a blank username.
	if channel.Username == "" {
		return nil, nil
	}
	return &channel, nil
}

// SendChatMessage sends content to channelID, or to the user's own channel
// if channelID is empty.
func (c *Client) SendChatMessage(ctx context.Context, channelID, content string) error {
	return c.do(ctx, request{
		op:         "send_chat",
		method:     http.MethodPost,
		path:       "/chat/send",
		body:       sendChatMessagePayload{Content: content, ChannelID: channelID},
		authorized: true,
	}, nil)
}
