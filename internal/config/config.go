package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

// Config is the full configuration surface of the daemon. Values come from
// defaults, then an optional YAML file, then environment overrides for the
// deployment-specific endpoints and secrets.
type Config struct {
	ListenAddr        string `yaml:"listen_addr"`
	PrometheusURL     string `yaml:"prometheus_url"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`

	// Optional collaborators. Empty means disabled.
	DatabaseDSN string `yaml:"database_dsn"`
	RedisAddr   string `yaml:"redis_addr"`

	CheckIntervalSeconds       int     `yaml:"check_interval_seconds"`
	BaselineWindowHours        int     `yaml:"baseline_window_hours"`
	RecentWindowSize           int     `yaml:"recent_window_size"`
	RateChangeThresholdPercent float64 `yaml:"rate_change_threshold_percent"`
	AlertCooldownSeconds       int     `yaml:"alert_cooldown_seconds"`

	OpenWebUI OpenWebUI `yaml:"openwebui"`

	Metrics []MetricSpec `yaml:"metrics"`
}

// OpenWebUI configures the optional insight enrichment service.
type OpenWebUI struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled reports whether insight generation is configured.
func (o OpenWebUI) Enabled() bool {
	return o.URL != "" && o.APIKey != ""
}

// MetricSpec describes one monitored metric: its PromQL query, detection
// thresholds and how values are rendered in alerts.
type MetricSpec struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Query       string `yaml:"query"`

	ZScoreThreshold float64 `yaml:"zscore_threshold"`
	// RateChangeThresholdPercent of 0 inherits the global default.
	RateChangeThresholdPercent float64          `yaml:"rate_change_threshold_percent"`
	Direction                  domain.Direction `yaml:"direction"`

	DisplayDivisor float64 `yaml:"display_divisor"`
	Unit           string  `yaml:"unit"`
}

// Default returns the built-in configuration: the four MinIO checks the
// daemon was written for, with their per-class thresholds.
func Default() Config {
	return Config{
		ListenAddr:                 ":8080",
		PrometheusURL:              "http://localhost:9090",
		CheckIntervalSeconds:       60,
		BaselineWindowHours:        24,
		RecentWindowSize:           10,
		RateChangeThresholdPercent: 100,
		AlertCooldownSeconds:       300,
		OpenWebUI: OpenWebUI{
			Model:          "llama2",
			TimeoutSeconds: 15,
		},
		Metrics: []MetricSpec{
			{
				Name:            "storage_space",
				DisplayName:     "Disk Storage - Free Space",
				Query:           "minio_disk_storage_bytes_free",
				ZScoreThreshold: 2.5,
				Direction:       domain.DirectionDrop,
				DisplayDivisor:  1e9,
				Unit:            "GB",
			},
			{
				Name:            "request_rate",
				DisplayName:     "Request Rate (requests/sec)",
				Query:           "rate(minio_gateway_requests_total[5m])",
				ZScoreThreshold: 2.0,
				Direction:       domain.DirectionBoth,
			},
			{
				Name:            "network_send",
				DisplayName:     "Network Send (bytes/sec)",
				Query:           "rate(minio_network_send_bytes_total[5m])",
				ZScoreThreshold: 2.5,
				Direction:       domain.DirectionBoth,
				DisplayDivisor:  1e6,
				Unit:            "MB/s",
			},
			{
				Name:            "network_receive",
				DisplayName:     "Network Receive (bytes/sec)",
				Query:           "rate(minio_network_receive_bytes_total[5m])",
				ZScoreThreshold: 2.5,
				Direction:       domain.DirectionBoth,
				DisplayDivisor:  1e6,
				Unit:            "MB/s",
			},
			{
				Name:            "error_rate",
				DisplayName:     "Error Rate (5xx errors/sec)",
				Query:           `rate(minio_gateway_requests_total{status=~"5.."}[5m])`,
				ZScoreThreshold: 2.0,
				Direction:       domain.DirectionSpike,
			},
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.ListenAddr = envOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.PrometheusURL = envOrDefault("PROMETHEUS_URL", cfg.PrometheusURL)
	cfg.DiscordWebhookURL = envOrDefault("DISCORD_WEBHOOK_URL", cfg.DiscordWebhookURL)
	cfg.DatabaseDSN = envOrDefault("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.RedisAddr = envOrDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.OpenWebUI.URL = envOrDefault("OPENWEBUI_URL", cfg.OpenWebUI.URL)
	cfg.OpenWebUI.APIKey = envOrDefault("OPENWEBUI_API_KEY", cfg.OpenWebUI.APIKey)
	cfg.OpenWebUI.Model = envOrDefault("OPENWEBUI_MODEL", cfg.OpenWebUI.Model)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration at startup so threshold or direction
// mistakes fail fast instead of silently disabling a rule.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.DiscordWebhookURL, "http") {
		return fmt.Errorf("discord_webhook_url is required and must be an http(s) URL")
	}
	if !strings.HasPrefix(c.PrometheusURL, "http") {
		return fmt.Errorf("prometheus_url must be an http(s) URL")
	}
	if c.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("check_interval_seconds must be positive")
	}
	if c.BaselineWindowHours <= 0 {
		return fmt.Errorf("baseline_window_hours must be positive")
	}
	if c.RecentWindowSize <= 0 {
		return fmt.Errorf("recent_window_size must be positive")
	}
	if c.RateChangeThresholdPercent <= 0 {
		return fmt.Errorf("rate_change_threshold_percent must be positive")
	}
	if c.AlertCooldownSeconds <= 0 {
		return fmt.Errorf("alert_cooldown_seconds must be positive")
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("at least one metric must be configured")
	}

	seen := make(map[string]bool, len(c.Metrics))
	for i, m := range c.Metrics {
		if m.Name == "" {
			return fmt.Errorf("metrics[%d]: name is required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("metrics[%d]: duplicate name %q", i, m.Name)
		}
		seen[m.Name] = true
		if m.Query == "" {
			return fmt.Errorf("metric %q: query is required", m.Name)
		}
		if m.ZScoreThreshold <= 0 {
			return fmt.Errorf("metric %q: zscore_threshold must be positive", m.Name)
		}
		if m.RateChangeThresholdPercent < 0 {
			return fmt.Errorf("metric %q: rate_change_threshold_percent must not be negative", m.Name)
		}
		if m.Direction != "" && !m.Direction.Valid() {
			return fmt.Errorf("metric %q: direction must be both, drop or spike", m.Name)
		}
		if m.DisplayDivisor < 0 {
			return fmt.Errorf("metric %q: display_divisor must not be negative", m.Name)
		}
	}
	return nil
}

// CheckInterval returns the tick interval as a duration.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// BaselineWindow returns the retention window as a duration.
func (c Config) BaselineWindow() time.Duration {
	return time.Duration(c.BaselineWindowHours) * time.Hour
}

// AlertCooldown returns the per-metric cooldown as a duration.
func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSeconds) * time.Second
}

// InsightTimeout returns the enrichment call timeout as a duration.
func (c Config) InsightTimeout() time.Duration {
	if c.OpenWebUI.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.OpenWebUI.TimeoutSeconds) * time.Second
}

// RateThresholdFor resolves a metric's rate-of-change threshold, falling
// back to the global default when the metric does not override it.
func (c Config) RateThresholdFor(m MetricSpec) float64 {
	if m.RateChangeThresholdPercent > 0 {
		return m.RateChangeThresholdPercent
	}
	return c.RateChangeThresholdPercent
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
