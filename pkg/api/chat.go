package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/omochice/trovo-chat/pkg/chat"
	"github.com/omochice/trovo-chat/pkg/protocol"
)

// ChatTokenForChannel returns a chat token for reading channelID.
func (c *Client) ChatTokenForChannel(ctx context.Context, channelID string) (protocol.ChatToken, error) {
	var token protocol.ChatToken
	err := c.do(ctx, request{
		op:     "chat_channel_token",
		method: http.MethodGet,
		path:   "/chat/channel-token/" + url.PathEscape(channelID),
	}, &token)
	return token, err
}

// ChatTokenForUser returns a chat token for the authenticated user's channel.
func (c *Client) ChatTokenForUser(ctx context.Context) (protocol.ChatToken, error) {
	var token protocol.ChatToken
	err := c.do(ctx, request{
		op:         "chat_token",
		method:     http.MethodGet,
		path:       "/chat/token",
		authorized: true,
	}, &token)
	return token, err
}

// ChatMessagesForChannel connects to the chat of channelID.
func (c *Client) ChatMessagesForChannel(ctx context.Context, channelID string, opts ...chat.Option) (*chat.Stream, error) {
	token, err := c.ChatTokenForChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat token for channel %s: %w", channelID, err)
	}
	return chat.Connect(ctx, token, opts...)
}

// ChatMessagesForUser connects to the chat of the authenticated user's channel.
func (c *Client) ChatMessagesForUser(ctx context.Context, opts ...chat.Option) (*chat.Stream, error) {
	token, err := c.ChatTokenForUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat token for user: %w", err)
	}
	return chat.Connect(ctx, token, opts...)
}
