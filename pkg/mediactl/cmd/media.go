package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omriharel/mediactl/pkg/mediactl"
	"github.com/omriharel/mediactl/pkg/mediactl/util"
)

func addMediaCommands(root *cobra.Command) {
	transportCommands := []struct {
		use   string
		short string
		send  func(mediactl.MediaTransport) bool
	}{
		{"play", "Resume playback", mediactl.MediaTransport.Play},
		{"pause", "Pause playback", mediactl.MediaTransport.Pause},
		{"next", "Skip to the next track", mediactl.MediaTransport.Next},
		{"previous", "Go back to the previous track", mediactl.MediaTransport.Previous},
		{"stop", "Stop playback", mediactl.MediaTransport.Stop},
	}

	for _, tc := range transportCommands {
		send := tc.send
		use := tc.use

		root.AddCommand(&cobra.Command{
			Use:   use,
			Short: tc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, _, err := prepare()
				if err != nil {
					return err
				}

				if !send(m.Transport()) {
					return fmt.Errorf("%s: %w", use, mediactl.ErrMediaUnavailable)
				}

				return nil
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "now-playing",
		Short: "Print the current track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := prepare()
			if err != nil {
				return err
			}

			info, ok := m.Transport().CurrentMedia()
			if !ok {
				return mediactl.ErrMediaUnavailable
			}

			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print media, volume and mute changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, named, err := prepare()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			subscription := m.Watch(ctx, func(event mediactl.Event) {
				fmt.Fprintln(cmd.OutOrStdout(), event.String())
			})

			signal := <-util.SetupCloseHandler()
			named.Debugw("Interrupted", "signal", signal)

			subscription.Stop()
			return nil
		},
	})
}
