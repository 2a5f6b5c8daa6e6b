package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/syncbridge/syncbridge/internal/behavior"
	"github.com/syncbridge/syncbridge/internal/config"
	"github.com/syncbridge/syncbridge/internal/httpexec"
	"github.com/syncbridge/syncbridge/internal/platform"
)

// Service runs every configured connector once per pass, a bounded number of
// them in parallel. It satisfies Runner.
type Service struct {
	cfg    config.Config
	deps   Deps
	logger *slog.Logger
}

func NewService(cfg config.Config, logger *slog.Logger) (*Service, error) {
	client, err := platform.New(cfg.PlatformURL, cfg.PlatformAPIToken)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Platform:    client,
		Executor:    httpexec.New(),
		Logger:      logger,
		SaveDataDir: cfg.SaveDataDir,
	}

	// On-premise installs resolve credential-lookup secrets from Vault
	// instead of the cloud endpoint.
	if cfg.VaultAddr != "" {
		store, err := platform.NewVaultSecretStore(platform.VaultOptions{
			Address:   cfg.VaultAddr,
			Token:     cfg.VaultToken,
			MountPath: cfg.VaultMountPath,
		})
		if err != nil {
			return nil, fmt.Errorf("vault secret store: %w", err)
		}
		deps.Secrets = store
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, deps: deps, logger: logger}, nil
}

// Deps exposes the service's collaborator set so commands can reuse it for
// one-off runs.
func (s *Service) Deps() Deps {
	return s.deps
}

// Connectors loads and parses the configured connectors file.
func (s *Service) Connectors() ([]behavior.ConnectorConfig, error) {
	data, err := os.ReadFile(s.cfg.ConnectorsPath)
	if err != nil {
		return nil, fmt.Errorf("read connectors file: %w", err)
	}
	connectors, err := behavior.ParseConnectors(data)
	if err != nil {
		return nil, err
	}
	return connectors, nil
}

// RunOnce syncs every configured connector. Connectors run independently: one
// failing does not stop the others, and the first failure is returned.
func (s *Service) RunOnce(ctx context.Context) error {
	connectors, err := s.Connectors()
	if err != nil {
		return err
	}
	if len(connectors) == 0 {
		return ErrNoConnectors
	}

	var g errgroup.Group
	g.SetLimit(s.workers())
	for _, cfg := range connectors {
		g.Go(func() error {
			runner, err := NewConnectorRunner(cfg, s.deps)
			if err != nil {
				s.logger.Error("connector is misconfigured", "connector_id", cfg.ID, "err", err)
				return err
			}
			if err := runner.Run(ctx); err != nil {
				s.logger.Error("connector sync failed", "connector_id", cfg.ID, "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) workers() int {
	if s.cfg.SyncWorkers > 0 {
		return s.cfg.SyncWorkers
	}
	return 1
}
