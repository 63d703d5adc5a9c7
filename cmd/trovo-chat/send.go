package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func sendCmd(a *app) *cobra.Command {
	var channelID string

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a chat message",
		Long:  `Send a chat message to a channel, or to your own channel if --channel is not given.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAccessToken(); err != nil {
				return err
			}

			content := strings.Join(args, " ")
			if err := a.api.SendChatMessage(cmd.Context(), channelID, content); err != nil {
				return err
			}
			a.logger.Debug("message sent", zap.String("channel_id", channelID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&channelID, "channel", "c", "", "Channel id (default: your own channel)")

	return cmd
}
