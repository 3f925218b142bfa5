package main

import (
	gp "gameserver_panel"
	"gameserver_panel/internal/logger"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "panelctl",
		Short: "Start, stop and inspect the game server.",
		Long: `panelctl signs in with the configured identity provider and sends
start, stop and status commands to the game server control API.

The password is read from PANEL_PASSWORD or prompted for.`,
		SilenceUsage: true,
	}
	root.SetOut(a.out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.configDir, "config", "configs", "directory containing config.yml")
	pf.StringVarP(&a.opts.username, "username", "u", "", "user name (prompted when empty)")
	pf.StringVar(&a.opts.provider, "provider", "", "identity provider (default from config)")
	pf.StringVar(&a.opts.logLevel, "log-level", logger.WarnLevel, "log level")

	root.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Sign in and show the server status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runLogin(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the server status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runStatus(cmd.Context())
			},
		},
		actionCmd(a, "start", "Start the server", gp.ActionStart),
		actionCmd(a, "stop", "Stop the server", gp.ActionStop),
		rawActionCmd(a),
	)
	return root
}

func actionCmd(a *app, use, short string, action gp.Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAction(cmd.Context(), string(action))
		},
	}
	cmd.Flags().BoolVar(&a.opts.wait, "wait", true, "poll until the server reaches the target status")
	return cmd
}

func rawActionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action <name>",
		Short: "Send an arbitrary action to the control API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAction(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&a.opts.wait, "wait", true, "poll until the server reaches the target status")
	return cmd
}
