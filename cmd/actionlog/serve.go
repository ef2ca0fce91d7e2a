package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/coffersTech/actionlog/internal/actionlog"
	"github.com/coffersTech/actionlog/internal/agent"
	"github.com/coffersTech/actionlog/internal/config"
	"github.com/coffersTech/actionlog/internal/logread"
	"github.com/coffersTech/actionlog/internal/server"
)

func newServeCmd(rootOpts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(rootOpts *rootOptions, addr string) error {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log.Println("gNB agent starting...")

	// Action log pipeline: metrics -> appender -> instrumenter.
	registry := prometheus.NewRegistry()
	metrics := actionlog.NewMetrics(registry)
	appender := actionlog.NewAppender(cfg.Log.Path,
		actionlog.WithMaxBytes(cfg.Log.MaxBytes),
		actionlog.WithBackups(cfg.Log.Backups),
		actionlog.WithMetrics(metrics),
	)
	inst := actionlog.NewInstrumenter(appender, cfg.Log.ServerType)
	log.Printf("Action log: %s (max %d bytes, %d backups)", cfg.Log.Path, cfg.Log.MaxBytes, cfg.Log.Backups)

	ag := agent.New(agent.Options{
		ConfDir:      cfg.Agent.ConfDir,
		ConfFile:     cfg.Agent.ConfFile,
		StartScript:  cfg.Agent.StartScript,
		StopScript:   cfg.Agent.StopScript,
		ConfigScript: cfg.Agent.ConfigScript,
		LogsDir:      cfg.Agent.LogsDir,
		DocsDir:      cfg.Agent.DocsDir,
	}, inst)
	log.Printf("Tools registered: %v", ag.Tools())
	log.Printf("Using configuration directory: %s", cfg.Agent.ConfDir)

	reader := logread.New(cfg.Log.Path)
	srv := server.New(ag, reader, cfg.Server.APIKeyHash, registry)

	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		if err := srv.Start(cfg.Server.Addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("gNB agent exited gracefully.")
	return nil
}
