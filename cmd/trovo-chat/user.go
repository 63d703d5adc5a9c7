package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/omochice/trovo-chat/pkg/api"
)

func userCmd(a *app) *cobra.Command {
	var withChannel bool

	cmd := &cobra.Command{
		Use:   "user USERNAME",
		Short: "Look up a user and their channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			user, err := a.api.User(ctx, args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s not found", args[0])
			}

			var channel *api.ChannelInfo
			if withChannel {
				channel, err = a.api.ChannelByID(ctx, user.ChannelID)
				if err != nil {
					return err
				}
			}
			printUser(cmd.OutOrStdout(), user, channel)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withChannel, "channel-info", false, "Also fetch the channel information")

	return cmd
}

func printUser(w io.Writer, user *api.User, channel *api.ChannelInfo) {
	fmt.Fprintf(w, "Username:   %s\n", user.Username)
	fmt.Fprintf(w, "Nickname:   %s\n", user.Nickname)
	fmt.Fprintf(w, "User ID:    %s\n", user.UserID)
	fmt.Fprintf(w, "Channel ID: %s\n", user.ChannelID)
	if channel == nil {
		return
	}
	fmt.Fprintf(w, "Live:       %t\n", channel.IsLive)
	fmt.Fprintf(w, "Title:      %s\n", channel.LiveTitle)
	fmt.Fprintf(w, "Category:   %s\n", channel.CategoryName)
	fmt.Fprintf(w, "Viewers:    %d\n", channel.CurrentViewers)
	fmt.Fprintf(w, "Followers:  %d\n", channel.Followers)
	fmt.Fprintf(w, "URL:        %s\n", channel.ChannelURL)
}
