package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	ConfigPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "actionlog",
		Short: "gNB agent with an append-only action log",
		Long: `actionlog runs the gNB management agent and its action log.

Every tool invocation (config patching, start/stop scripts, document search)
is recorded as one JSON line with inputs, outcome and duration. The log
rotates by size and keeps a bounded number of backup generations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newTailCmd(opts))
	cmd.AddCommand(newDumpCmd(opts))
	cmd.AddCommand(newHashKeyCmd())

	return cmd
}
