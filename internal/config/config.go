// Package config provides the configuration structure for the metrix
// benchmark service, loaded from a single TOML file via the shared
// configurator.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// ServerConfig holds the HTTP listen addresses for the Run API and the
// observability surface.
type ServerConfig struct {
	ListenAddress        string `toml:"listen_address"`
	ObservabilityAddress string `toml:"observability_address"`
}

// StorageConfig holds persistence and artifact storage settings. NATS
// fields are only required when Backend is "nats".
type StorageConfig struct {
	SQLiteDSN      string `toml:"sqlite_dsn"`
	ArtifactRoot   string `toml:"artifact_root"`
	Backend        string `toml:"backend"` // "local" or "nats"
	NATSURL        string `toml:"nats_url"`
	NATSBucket     string `toml:"nats_bucket"`
}

// VendorConfig holds per-vendor credentials and overrides.
type VendorConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ConcurrencyConfig controls the per-run worker pool and default vendor
// selection.
type ConcurrencyConfig struct {
	WorkersPerRun        int    `toml:"workers_per_run"`
	DefaultSynthVendor   string `toml:"default_synth_vendor"`
	DefaultEvaluatorVendor string `toml:"default_evaluator_vendor"`
}

// AggregationConfig controls dashboard rollups.
type AggregationConfig struct {
	LookbackWindowDays int `toml:"lookback_window_days"`
}

// EventsConfig controls best-effort domain event publishing.
type EventsConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// PathsConfig holds file paths the service needs before the rest of
// configuration is available, such as where the final logger writes.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure for the metrix service.
type Config struct {
	Server      ServerConfig            `toml:"server"`
	Storage     StorageConfig           `toml:"storage"`
	Vendors     map[string]VendorConfig `toml:"vendors"`
	Concurrency ConcurrencyConfig       `toml:"concurrency"`
	Aggregation AggregationConfig       `toml:"aggregation"`
	Events      EventsConfig            `toml:"events"`
	Paths       PathsConfig             `toml:"paths"`
}

// RequiredVendors lists the vendor keys the service refuses to start
// without, because core adapters depend on them for credentials.
var RequiredVendors = []string{"openai", "elevenlabs", "deepgram", "googlestt"}

// Load loads and validates the metrix service configuration.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Concurrency.WorkersPerRun <= 0 {
		cfg.Concurrency.WorkersPerRun = 4
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}

	if cfg.Storage.Backend == "nats" && cfg.Storage.NATSURL == "" {
		return fmt.Errorf("config: storage.backend=nats requires storage.nats_url")
	}

	for _, name := range RequiredVendors {
		if _, ok := cfg.Vendors[name]; !ok {
			return fmt.Errorf("config: missing required vendor configuration for %q", name)
		}
	}

	// mockvendor never needs real credentials; register an empty entry so
	// callers can look it up uniformly without special-casing it.
	if _, ok := cfg.Vendors["mockvendor"]; !ok {
		if cfg.Vendors == nil {
			cfg.Vendors = make(map[string]VendorConfig)
		}

		cfg.Vendors["mockvendor"] = VendorConfig{}
	}

	return nil
}
