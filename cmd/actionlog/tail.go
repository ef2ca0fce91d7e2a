package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coffersTech/actionlog/internal/config"
	"github.com/coffersTech/actionlog/internal/logread"
)

func newTailCmd(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Follow the action log as records are appended",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reader := logread.New(cfg.Log.Path)
			err = reader.Follow(ctx, func(line []byte) error {
				_, werr := fmt.Fprintf(os.Stdout, "%s\n", line)
				return werr
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
