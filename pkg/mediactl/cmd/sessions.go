package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omriharel/mediactl/pkg/mediactl"
	"github.com/omriharel/mediactl/pkg/mediactl/util"
)

func addSessionCommands(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List audio sessions with their volume and mute state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := prepare()
			if err != nil {
				return err
			}

			m.WithAllSessions(func(session mediactl.Session) {
				printSession(cmd, session)
			})

			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get <session>",
		Short: `Print a session's volume and mute state ("master", a process name or "current")`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(args[0], func(session mediactl.Session) {
				printSession(cmd, session)
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "set <session> <volume>",
		Short: `Set a session's volume, as a scalar ("0.35") or a percentage ("35%")`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := util.ParseScalar(args[1])
			if err != nil {
				return err
			}

			m, _, err := prepare()
			if err != nil {
				return err
			}

			matched, applied := m.SetVolume(args[0], volume)
			if matched == 0 {
				return fmt.Errorf("no audio session named %q", args[0])
			}

			m.WithSessions(args[0], func(session mediactl.Session) {
				printSession(cmd, session)
			})

			if applied < matched {
				return fmt.Errorf("volume of %q did not change, see the log for details", args[0])
			}

			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "mute <session>",
		Short: "Mute a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(args[0], func(session mediactl.Session) {
				session.SetMute(true)
				printSession(cmd, session)
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "unmute <session>",
		Short: "Unmute a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(args[0], func(session mediactl.Session) {
				session.SetMute(false)
				printSession(cmd, session)
			})
		},
	})
}

func withSessions(target string, f func(mediactl.Session)) error {
	m, _, err := prepare()
	if err != nil {
		return err
	}

	if matched := m.WithSessions(target, f); matched == 0 {
		return fmt.Errorf("no audio session named %q", target)
	}

	return nil
}

func printSession(cmd *cobra.Command, session mediactl.Session) {
	state := ""
	if session.GetMute() {
		state = " (muted)"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-24s %3.0f%%%s\n", session.GetName(), util.NormalizeScalar(session.GetVolume())*100, state)
}
