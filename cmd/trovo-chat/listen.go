package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/trovo-chat/pkg/chat"
	"github.com/omochice/trovo-chat/pkg/protocol"
)

func listenCmd(a *app) *cobra.Command {
	var (
		username    string
		channelID   string
		self        bool
		interactive bool
		randomNonce bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print chat events of a channel",
		Long: `Connect to the chat of a channel and print every chat event.

With --interactive, lines typed on stdin are sent to the same channel
('quit' or 'exit' stops).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if self {
				if err := a.cfg.RequireAccessToken(); err != nil {
					return err
				}
			} else if channelID == "" {
				if username == "" {
					return errors.New("one of --user, --channel or --self is required")
				}
				user, err := a.api.User(ctx, username)
				if err != nil {
					return fmt.Errorf("failed to look up user %s: %w", username, err)
				}
				if user == nil {
					return fmt.Errorf("user %s not found", username)
				}
				channelID = user.ChannelID
			}
			if interactive {
				if err := a.cfg.RequireAccessToken(); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			metrics, err := a.startMetrics(ctx, g)
			if err != nil {
				return err
			}

			opts := []chat.Option{
				chat.WithURL(a.cfg.ChatURL),
				chat.WithLogger(a.logger.Named("chat")),
				chat.WithMetrics(metrics),
			}
			if randomNonce {
				opts = append(opts, chat.WithRandomNonce())
			}

			var stream *chat.Stream
			if self {
				stream, err = a.api.ChatMessagesForUser(ctx, opts...)
			} else {
				stream, err = a.api.ChatMessagesForChannel(ctx, channelID, opts...)
			}
			if err != nil {
				return err
			}
			defer stream.Close()

			a.logger.Info("listening", zap.String("channel_id", channelID), zap.Bool("self", self))

			if interactive {
				go a.readInput(ctx, cmd.InOrStdin(), channelID, stream)
			}

			g.Go(func() error {
				defer cancel()
				for ev, err := range stream.Events(ctx) {
					if err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
					printEvent(cmd.OutOrStdout(), ev)
				}
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "Username of the channel owner")
	cmd.Flags().StringVarP(&channelID, "channel", "c", "", "Channel id")
	cmd.Flags().BoolVar(&self, "self", false, "Listen to the channel of the access token's user")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Send lines read from stdin")
	cmd.Flags().BoolVar(&randomNonce, "random-nonce", false, "Use a fresh handshake nonce")
	cmd.MarkFlagsMutuallyExclusive("user", "channel", "self")

	return cmd
}

// readInput sends every non-empty line of r until EOF, quit or exit.
func (a *app) readInput(ctx context.Context, r io.Reader, channelID string, stream *chat.Stream) {
	defer stream.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := a.api.SendChatMessage(sendCtx, channelID, text); err != nil {
			a.logger.Warn("failed to send message", zap.Error(err))
		}
		cancel()
	}
	if err := scanner.Err(); err != nil {
		a.logger.Warn("failed to read input", zap.Error(err))
	}
}

// printEvent writes one chat event in a human readable form.
func printEvent(w io.Writer, ev protocol.ChatEvent) {
	switch ev.Kind {
	case protocol.KindNormal:
		fmt.Fprintf(w, "[%s]: %s\n", ev.NickName, ev.Content)
	case protocol.KindFollow:
		fmt.Fprintf(w, "*** %s followed the channel ***\n", ev.NickName)
	case protocol.KindWelcome:
		fmt.Fprintf(w, "*** %s joined the chat ***\n", ev.NickName)
	default:
		fmt.Fprintf(w, "*** %s [%s]: %s ***\n", ev.NickName, ev.Kind, ev.Content)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
