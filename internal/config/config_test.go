// Package config_test tests configuration loading for the metrix service.
package config_test

import (
	"testing"

	"github.com/forkadarshp/metrix/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_UnmarshalsAllSections(t *testing.T) {
	t.Parallel()

	tomlData := `
[server]
listen_address = "127.0.0.1:8080"
observability_address = "127.0.0.1:9090"

[storage]
sqlite_dsn = "file:metrix.db"
artifact_root = "storage/"
backend = "local"

[vendors.openai]
api_key = "sk-test"
timeout_seconds = 30

[vendors.elevenlabs]
api_key = "el-test"

[vendors.deepgram]
api_key = "dg-test"

[vendors.googlestt]
api_key = "gc-test"

[concurrency]
workers_per_run = 8
default_synth_vendor = "openai"
default_evaluator_vendor = "openai"

[aggregation]
lookback_window_days = 30

[events]
enabled = true
brokers = ["localhost:9092"]
topic = "metrix.runs"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.ListenAddress)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.ObservabilityAddress)
	assert.Equal(t, "file:metrix.db", cfg.Storage.SQLiteDSN)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "sk-test", cfg.Vendors["openai"].APIKey)
	assert.Equal(t, 30, cfg.Vendors["openai"].TimeoutSeconds)
	assert.Equal(t, 8, cfg.Concurrency.WorkersPerRun)
	assert.Equal(t, 30, cfg.Aggregation.LookbackWindowDays)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.Brokers)
}

func TestLoadConfig_MissingStorageSectionDefaultsZero(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(`[server]`), &cfg)
	require.NoError(t, err)

	assert.Empty(t, cfg.Storage.Backend)
	assert.Empty(t, cfg.Vendors)
}
