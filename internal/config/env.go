package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable for the standalone server.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// ServerConfig configures the standalone HTTP server.
type ServerConfig struct {
	HTTPAddr        string `env:"TCG_HTTP_ADDR" envDefault:":8080"`
	Store           string `env:"TCG_STORE" envDefault:"memory"`
	RedisAddr       string `env:"TCG_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"TCG_REDIS_PASSWORD"`
	SQLitePath      string `env:"TCG_SQLITE_PATH" envDefault:"data/tcg_tables.db"`
	PostgresDSN     string `env:"TCG_POSTGRES_DSN"`
	TableConfigPath string `env:"TCG_TABLE_CONFIG"`
}

// ParseServerConfig loads the standalone server configuration from the environment.
func ParseServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Store {
	case StoreMemory, StoreRedis, StoreSQLite:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return cfg, fmt.Errorf("TCG_POSTGRES_DSN is required for store %q", cfg.Store)
		}
	default:
		return cfg, fmt.Errorf("invalid TCG_STORE %q (supported: %s, %s, %s, %s)", cfg.Store, StoreMemory, StoreRedis, StoreSQLite, StorePostgres)
	}
	return cfg, nil
}

// LoadTable returns the table config named by TableConfigPath, or the defaults.
func (c ServerConfig) LoadTable() (TableConfig, error) {
	if c.TableConfigPath == "" {
		return Default(), nil
	}
	return LoadTableConfig(c.TableConfigPath)
}
