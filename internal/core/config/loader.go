package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	redisclient "github.com/vietddude/clinicnet/internal/infra/redis"
	"github.com/vietddude/clinicnet/internal/recovery/connectivity"
	"github.com/vietddude/clinicnet/internal/recovery/coordinator"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Archive.Retention == 0 {
		c.Archive.Retention = 30 * 24 * time.Hour
	}
	if c.API.HealthPath == "" {
		c.API.HealthPath = "/api/health/"
	}

	retry := coordinator.DefaultConfig()
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = retry.MaxRetries
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = retry.BaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = retry.MaxDelay
	}
	if c.Retry.Jitter == 0 {
		c.Retry.Jitter = retry.Jitter
	}
	if c.Retry.Capacity <= 0 {
		c.Retry.Capacity = retry.Capacity
	}

	probe := connectivity.DefaultProberConfig()
	if c.Connectivity.Interval <= 0 {
		c.Connectivity.Interval = probe.Interval
	}
	if c.Connectivity.Timeout <= 0 {
		c.Connectivity.Timeout = probe.Timeout
	}
	if c.Connectivity.FailureThreshold <= 0 {
		c.Connectivity.FailureThreshold = probe.FailureThreshold
	}

	notices := redisclient.DefaultNoticeConfig()
	if c.Notify.Redis.Stream == "" {
		c.Notify.Redis.Stream = notices.Stream
	}
	if c.Notify.Redis.MaxLen <= 0 {
		c.Notify.Redis.MaxLen = notices.MaxLen
	}
	if c.Notify.Redis.ReportTTL <= 0 {
		c.Notify.Redis.ReportTTL = notices.ReportTTL
	}
}

// Validate checks values that have no sensible default.
func (c *AppConfig) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0 and 1, got %v", c.Retry.Jitter)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) is below retry.base_delay (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}
