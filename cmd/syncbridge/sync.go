package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syncbridge/syncbridge/internal/config"
	"github.com/syncbridge/syncbridge/internal/logging"
	"github.com/syncbridge/syncbridge/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run every configured connector once.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync()
	},
}

func runSync() error {
	logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: "sync"})
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := sync.NewService(cfg, logger)
	if err != nil {
		return err
	}
	if err := svc.RunOnce(ctx); err != nil {
		if errors.Is(err, sync.ErrNoConnectors) {
			logger.Warn("nothing to sync", "connectors_path", cfg.ConnectorsPath)
			return nil
		}
		return err
	}
	return nil
}
