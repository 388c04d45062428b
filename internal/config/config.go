// Package config loads threatgate configuration from defaults, an
// optional YAML file, and TG_-prefixed environment variables, in that
// order of increasing priority.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search paths.
const ConfigPathEnvVar = "TG_CONFIG_PATH"

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/threatgate/config.yaml",
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	BanStore BanStoreConfig `koanf:"ban_store"`
	Policy   PolicyConfig   `koanf:"policy"`
}

// ServerConfig holds the HTTP listeners.
type ServerConfig struct {
	HTTPAddr        string        `koanf:"http_addr"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// Environment is "development" or "production". Production defaults
	// to the lenient startup posture; development defaults to strict.
	Environment string `koanf:"environment"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// BanStoreConfig controls the enforcement cache.
type BanStoreConfig struct {
	// Path is the badger directory for the durable tier.
	Path string `koanf:"path"`
	// SyncInterval is the periodic fast-to-durable backstop sync.
	SyncInterval time.Duration `koanf:"sync_interval"`
	// DurableTimeout bounds individual durable-store operations; keep
	// it in single-digit seconds so a slow store cannot stall admission.
	DurableTimeout time.Duration `koanf:"durable_timeout"`
	// StrictStartup makes a failed restore fatal. Nil means "derive
	// from environment": strict in development, lenient in production.
	StrictStartup *bool `koanf:"strict_startup"`
}

// PolicyConfig tunes the decision thresholds. Zero means default.
type PolicyConfig struct {
	BlockThreshold int `koanf:"block_threshold"`
	WarnThreshold  int `koanf:"warn_threshold"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			MetricsAddr:     ":9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		BanStore: BanStoreConfig{
			Path:           "data/bans",
			SyncInterval:   time.Hour,
			DurableTimeout: 5 * time.Second,
		},
	}
}

// Load builds the configuration. A missing config file is fine;
// a present-but-invalid one is an error.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels, single underscores
	// stay in the key: TG_SERVER__HTTP_ADDR -> server.http_addr,
	// TG_BAN_STORE__PATH -> ban_store.path.
	err := k.Load(env.Provider("TG_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "TG_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Strict reports the effective startup posture for restore failures.
func (c *BanStoreConfig) Strict(environment string) bool {
	if c.StrictStartup != nil {
		return *c.StrictStartup
	}
	return environment != "production"
}
