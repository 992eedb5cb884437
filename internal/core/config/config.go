package config

import (
	"time"

	"github.com/vietddude/clinicnet/internal/infra/api"
	redisclient "github.com/vietddude/clinicnet/internal/infra/redis"
	"github.com/vietddude/clinicnet/internal/infra/storage/postgres"
	"github.com/vietddude/clinicnet/internal/recovery/connectivity"
	"github.com/vietddude/clinicnet/internal/recovery/coordinator"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig              `yaml:"server"`
	API          api.Config                `yaml:"api"`
	Retry        coordinator.Config        `yaml:"retry"`
	Connectivity connectivity.ProberConfig `yaml:"connectivity"`
	Notify       NotifyConfig              `yaml:"notify"`
	Redis        redisclient.Config        `yaml:"redis"`
	Database     postgres.Config           `yaml:"database"`
	Archive      ArchiveConfig             `yaml:"archive"`
	Logging      LoggingConfig             `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig selects where notices go besides the log.
type NotifyConfig struct {
	Redis redisclient.NoticeConfig `yaml:"redis"`
}

// ArchiveConfig controls how long terminal failures are kept.
type ArchiveConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = default, negative = keep forever
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RedisEnabled reports whether notices should be published to Redis.
func (c *AppConfig) RedisEnabled() bool { return c.Redis.URL != "" }

// DatabaseEnabled reports whether failed tasks are archived in PostgreSQL.
func (c *AppConfig) DatabaseEnabled() bool { return c.Database.URL != "" }
