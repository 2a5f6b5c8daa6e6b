package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr     = ":8080"
	defaultMetricsAddr  = "off"
	defaultSyncInterval = 15 * time.Minute
	defaultSyncWorkers  = 3
	defaultSaveDataDir  = "./saved_data"
)

type Config struct {
	PlatformURL      string
	PlatformAPIToken string
	ConnectorsPath   string
	HTTPAddr         string
	MetricsAddr      string
	SyncInterval     time.Duration
	SyncWorkers      int
	SaveDataDir      string
	VaultAddr        string
	VaultToken       string
	VaultMountPath   string
}

type LoadOptions struct {
	RequirePlatformURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequirePlatformURL: true})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		PlatformURL:      strings.TrimSpace(os.Getenv("PLATFORM_URL")),
		PlatformAPIToken: strings.TrimSpace(os.Getenv("PLATFORM_API_TOKEN")),
		ConnectorsPath:   getenvDefault("CONNECTORS_PATH", "connectors.json"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:      getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		SyncInterval:     defaultSyncInterval,
		SyncWorkers:      getenvIntDefault("SYNC_WORKERS", defaultSyncWorkers),
		SaveDataDir:      getenvDefault("SAVE_DATA_DIR", defaultSaveDataDir),
		VaultAddr:        strings.TrimSpace(os.Getenv("VAULT_ADDR")),
		VaultToken:       strings.TrimSpace(os.Getenv("VAULT_TOKEN")),
		VaultMountPath:   getenvDefault("VAULT_MOUNT_PATH", "secret"),
	}

	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SyncInterval = d
		}
	}

	if opts.RequirePlatformURL && cfg.PlatformURL == "" {
		return cfg, errors.New("PLATFORM_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
