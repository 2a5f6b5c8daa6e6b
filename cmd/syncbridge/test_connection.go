package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syncbridge/syncbridge/internal/config"
	"github.com/syncbridge/syncbridge/internal/logging"
	"github.com/syncbridge/syncbridge/internal/sync"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection [connector-id]",
	Short: "Verify that configured connectors can reach their external APIs.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		onlyID := ""
		if len(args) == 1 {
			onlyID = args[0]
		}
		return runTestConnection(onlyID)
	},
}

func runTestConnection(onlyID string) error {
	logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: "test-connection"})
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
	connectors, err := svc.Connectors()
	if err != nil {
		return err
	}

	tested := 0
	failed := 0
	for _, connector := range connectors {
		if onlyID != "" && connector.ID != onlyID {
			continue
		}
		tested++
		runner, err := sync.NewConnectorRunner(connector, svc.Deps())
		if err != nil {
			failed++
			logger.Error("connector is misconfigured", "connector_id", connector.ID, "err", err)
			continue
		}
		if err := runner.TestConnection(ctx); err != nil {
			failed++
			logger.Error("connection test failed", "connector_id", connector.ID, "err", err)
			continue
		}
		logger.Info("connection ok", "connector_id", connector.ID, "connector_name", connector.Name)
	}

	if tested == 0 {
		if onlyID != "" {
			return fmt.Errorf("connector %q is not configured", onlyID)
		}
		return sync.ErrNoConnectors
	}
	if failed > 0 {
		return silentExit(1, fmt.Errorf("%d of %d connection tests failed", failed, tested))
	}
	return nil
}
