package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/coffersTech/actionlog/internal/config"
	"github.com/coffersTech/actionlog/internal/logread"
)

func newDumpCmd(rootOpts *rootOptions) *cobra.Command {
	var opts logread.DumpOptions

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump action records to stdout",
		Long: `Dump the action log to stdout, one JSON record per line.

With --backups, rotated generations are included oldest-first, including
generations archived out-of-band as .zst files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			reader := logread.New(cfg.Log.Path)
			return reader.Dump(os.Stdout, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tool, "tool", "", "only records for this tool")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only records with this status (ok, error, cancelled)")
	cmd.Flags().BoolVar(&opts.IncludeBackups, "backups", false, "include rotated generations")

	return cmd
}
