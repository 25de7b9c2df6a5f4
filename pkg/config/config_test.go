package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfig tests loading default config
func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config is nil")
	}
}

// TestLoadConfigDefaults tests default values are set
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Address == "" {
		t.Error("Address should not be empty")
	}
	if cfg.Store.Type != "redis" {
		t.Errorf("Expected default store type redis, got %s", cfg.Store.Type)
	}
	if cfg.Stats.URL == "" {
		t.Error("Stats URL should not be empty")
	}
	if cfg.Limits.SendBuffer < 1 {
		t.Error("Send buffer should be positive")
	}
}

// TestLoadConfigFromFile tests YAML file loading
func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("address: \":9090\"\nstore:\n  type: memory\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if cfg.Address != ":9090" {
		t.Errorf("Expected address :9090, got %s", cfg.Address)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type memory, got %s", cfg.Store.Type)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
}

// TestEnvOverrides tests environment variable overrides
func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("STATS_URL", "http://stats.local/top")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Address != ":7070" {
		t.Errorf("Expected address :7070, got %s", cfg.Address)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type memory, got %s", cfg.Store.Type)
	}
	if cfg.Stats.URL != "http://stats.local/top" {
		t.Errorf("Expected overridden stats URL, got %s", cfg.Stats.URL)
	}
}

// TestValidateRejectsBadValues tests validation failures
func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Type = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject unknown store type")
	}

	cfg = DefaultConfig()
	cfg.Address = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject empty address")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject unknown log level")
	}

	cfg = DefaultConfig()
	cfg.Limits.FramesPerSecond = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject zero rate limit")
	}
}

// TestConfigString tests String() method
func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.String() == "" {
		t.Error("String() should not return empty string")
	}
}
