package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/syncbridge/syncbridge/internal/config"
	"github.com/syncbridge/syncbridge/internal/httpapp"
	"github.com/syncbridge/syncbridge/internal/logging"
	"github.com/syncbridge/syncbridge/internal/metrics"
	"github.com/syncbridge/syncbridge/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler with the operational HTTP endpoints.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: "serve"})
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := sync.NewService(cfg, logger)
	if err != nil {
		return err
	}

	_, metricsErr := metrics.StartServer(ctx, cfg.MetricsAddr)

	es := httpapp.NewEchoServer(svc, logger)
	scheduler := sync.Scheduler{Runner: svc, Interval: cfg.SyncInterval, Logger: logger}
	go scheduler.Run(ctx)
	es.MarkReady()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           es.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-metricsErr:
		return err
	}
}
