package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:9090", cfg.PrometheusURL)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval())
	assert.Equal(t, 24*time.Hour, cfg.BaselineWindow())
	assert.Equal(t, 300*time.Second, cfg.AlertCooldown())
	assert.Equal(t, 10, cfg.RecentWindowSize)
	assert.Len(t, cfg.Metrics, 5)
	assert.False(t, cfg.OpenWebUI.Enabled())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord_webhook_url: "https://discord.com/api/webhooks/1/x"
check_interval_seconds: 30
alert_cooldown_seconds: 600
metrics:
  - name: heap
    query: go_memstats_heap_inuse_bytes
    zscore_threshold: 3.0
    rate_change_threshold_percent: 50
    direction: spike
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.CheckInterval())
	assert.Equal(t, 600*time.Second, cfg.AlertCooldown())
	require.Len(t, cfg.Metrics, 1)
	assert.Equal(t, "heap", cfg.Metrics[0].Name)
	assert.Equal(t, domain.DirectionSpike, cfg.Metrics[0].Direction)
	assert.Equal(t, 50.0, cfg.RateThresholdFor(cfg.Metrics[0]))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prometheus_url: "http://file:9090"
discord_webhook_url: "https://discord.com/api/webhooks/file"
`), 0o644))

	t.Setenv("PROMETHEUS_URL", "http://env:9090")
	t.Setenv("OPENWEBUI_URL", "http://llm:3000")
	t.Setenv("OPENWEBUI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:9090", cfg.PrometheusURL)
	assert.Equal(t, "https://discord.com/api/webhooks/file", cfg.DiscordWebhookURL)
	assert.True(t, cfg.OpenWebUI.Enabled())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing webhook", func(c *Config) { c.DiscordWebhookURL = "" }, "discord_webhook_url"},
		{"bad prometheus url", func(c *Config) { c.PrometheusURL = "localhost:9090" }, "prometheus_url"},
		{"zero interval", func(c *Config) { c.CheckIntervalSeconds = 0 }, "check_interval_seconds"},
		{"negative window", func(c *Config) { c.BaselineWindowHours = -1 }, "baseline_window_hours"},
		{"zero recent size", func(c *Config) { c.RecentWindowSize = 0 }, "recent_window_size"},
		{"zero rate threshold", func(c *Config) { c.RateChangeThresholdPercent = 0 }, "rate_change_threshold_percent"},
		{"zero cooldown", func(c *Config) { c.AlertCooldownSeconds = 0 }, "alert_cooldown_seconds"},
		{"no metrics", func(c *Config) { c.Metrics = nil }, "at least one metric"},
		{"unnamed metric", func(c *Config) { c.Metrics[0].Name = "" }, "name is required"},
		{"duplicate metric", func(c *Config) { c.Metrics[1].Name = c.Metrics[0].Name }, "duplicate name"},
		{"missing query", func(c *Config) { c.Metrics[0].Query = "" }, "query is required"},
		{"zero zscore threshold", func(c *Config) { c.Metrics[0].ZScoreThreshold = 0 }, "zscore_threshold"},
		{"bad direction", func(c *Config) { c.Metrics[0].Direction = "sideways" }, "direction"},
		{"negative divisor", func(c *Config) { c.Metrics[0].DisplayDivisor = -1 }, "display_divisor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRateThresholdFor_FallsBackToGlobal(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100.0, cfg.RateThresholdFor(cfg.Metrics[0]))

	cfg.Metrics[0].RateChangeThresholdPercent = 40
	assert.Equal(t, 40.0, cfg.RateThresholdFor(cfg.Metrics[0]))
}

func TestInsightTimeout_Default(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 15*time.Second, cfg.InsightTimeout())

	cfg.OpenWebUI.TimeoutSeconds = 5
	assert.Equal(t, 5*time.Second, cfg.InsightTimeout())
}
