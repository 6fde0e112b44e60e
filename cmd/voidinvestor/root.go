package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var flags globalFlags
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "voidinvestor",
		Short:         "Autonomous SpaceTraders fleet agent",
		Long:          "voidinvestor keeps a small SpaceTraders fleet mining and selling: every cycle it checks the session, fetches a page of ships and gives each of them a turn.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.wire(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.settings, "settings", "voidinvestor.toml", "settings file, missing is fine")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(a),
		newOnceCmd(a),
		newStatusCmd(a),
		newRegisterCmd(a),
		newConfigCmd(a),
	)
	closeAfterRun(a, rootCmd)
	return rootCmd
}

// closeAfterRun releases what wire opened once a command returns, whether it
// failed or not. cobra skips post run hooks after an error.
func closeAfterRun(a *app, cmd *cobra.Command) {
	for _, c := range cmd.Commands() {
		closeAfterRun(a, c)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return errors.Join(run(c, args), a.Close())
	}
}
