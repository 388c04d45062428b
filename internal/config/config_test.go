package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Point at a real empty file so a config.yaml in the working
	// directory cannot leak into the test.
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.Server.MetricsAddr)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Environment = %q", cfg.Server.Environment)
	}
	if cfg.BanStore.Path != "data/bans" {
		t.Errorf("BanStore.Path = %q", cfg.BanStore.Path)
	}
	if cfg.BanStore.SyncInterval != time.Hour {
		t.Errorf("SyncInterval = %v", cfg.BanStore.SyncInterval)
	}
	if cfg.BanStore.DurableTimeout != 5*time.Second {
		t.Errorf("DurableTimeout = %v", cfg.BanStore.DurableTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.BanStore.StrictStartup != nil {
		t.Errorf("StrictStartup = %v, want unset", *cfg.BanStore.StrictStartup)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  http_addr: ":9999"
  environment: production
ban_store:
  path: /var/lib/threatgate/bans
  strict_startup: true
policy:
  block_threshold: 90
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.Environment != "production" {
		t.Errorf("Environment = %q", cfg.Server.Environment)
	}
	if cfg.BanStore.Path != "/var/lib/threatgate/bans" {
		t.Errorf("BanStore.Path = %q", cfg.BanStore.Path)
	}
	if cfg.BanStore.StrictStartup == nil || !*cfg.BanStore.StrictStartup {
		t.Error("StrictStartup not loaded")
	}
	if cfg.Policy.BlockThreshold != 90 {
		t.Errorf("BlockThreshold = %d", cfg.Policy.BlockThreshold)
	}
	// Unset keys keep their defaults.
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.Server.MetricsAddr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  http_addr: \":9999\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("TG_SERVER__HTTP_ADDR", ":7777")
	t.Setenv("TG_BAN_STORE__PATH", "/tmp/bans")
	t.Setenv("TG_LOGGING__LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPAddr != ":7777" {
		t.Errorf("HTTPAddr = %q, want the env value", cfg.Server.HTTPAddr)
	}
	if cfg.BanStore.Path != "/tmp/bans" {
		t.Errorf("BanStore.Path = %q, want the env value", cfg.BanStore.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want the env value", cfg.Logging.Level)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if _, err := Load(); err == nil {
		t.Fatal("malformed config file accepted")
	}
}

func TestStrictPosture(t *testing.T) {
	strictTrue, strictFalse := true, false
	tests := []struct {
		name        string
		strict      *bool
		environment string
		want        bool
	}{
		{"development defaults strict", nil, "development", true},
		{"production defaults lenient", nil, "production", false},
		{"explicit strict wins in production", &strictTrue, "production", true},
		{"explicit lenient wins in development", &strictFalse, "development", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BanStoreConfig{StrictStartup: tt.strict}
			if got := c.Strict(tt.environment); got != tt.want {
				t.Errorf("Strict(%q) = %v, want %v", tt.environment, got, tt.want)
			}
		})
	}
}
