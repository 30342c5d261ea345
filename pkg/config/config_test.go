package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolateEnv points the config and data directories at a temporary
// directory for the duration of the test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	return tmpDir
}

func TestLoad_DefaultConfig(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
logging:
  level: "info"

store:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", cfg.Store.Type)
	}
	if cfg.Backends.CheckTimeout != 5*time.Second {
		t.Errorf("Expected default check_timeout 5s, got %v", cfg.Backends.CheckTimeout)
	}
	if len(cfg.Secrets.Fields) != 1 || cfg.Secrets.Fields[0] != "password" {
		t.Errorf("Expected default secret fields [password], got %v", cfg.Secrets.Fields)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected default metrics port %d, got %d", DefaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults without a config file, got: %v", err)
	}

	if cfg.Store.Type != "filesystem" {
		t.Errorf("Expected default store type 'filesystem', got %q", cfg.Store.Type)
	}
	want := filepath.Join(tmpDir, "data", "extmounts")
	if cfg.Store.Filesystem["datadir"] != want {
		t.Errorf("Expected default datadir %q, got %v", want, cfg.Store.Filesystem["datadir"])
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: [unterminated"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_TOML(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")

	configContent := `
[logging]
level = "DEBUG"
format = "json"

[store]
type = "badger"

[store.badger]
in_memory = true

[backends]
enabled = ["smb", "dav"]
check_timeout = "2s"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Store.Badger["in_memory"] != true {
		t.Errorf("Expected store.badger.in_memory true, got %v", cfg.Store.Badger["in_memory"])
	}
	if len(cfg.Backends.Enabled) != 2 {
		t.Errorf("Expected 2 enabled backends, got %v", cfg.Backends.Enabled)
	}
	if cfg.Backends.CheckTimeout != 2*time.Second {
		t.Errorf("Expected check_timeout 2s, got %v", cfg.Backends.CheckTimeout)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EXTMOUNTS_LOGGING_LEVEL", "ERROR")
	t.Setenv("EXTMOUNTS_METRICS_PORT", "9999")
	t.Setenv("EXTMOUNTS_BACKENDS_SKIP_CHECKS", "true")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
logging:
  level: "INFO"
store:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Port != 9999 {
		t.Errorf("Expected port 9999 from env var, got %d", cfg.Metrics.Port)
	}
	if !cfg.Backends.SkipChecks {
		t.Error("Expected skip_checks from env var")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("store:\n  type: \"postgres\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}

func TestConfigPaths(t *testing.T) {
	tmpDir := isolateEnv(t)

	if got, want := GetConfigDir(), filepath.Join(tmpDir, "config", "extmounts"); got != want {
		t.Errorf("GetConfigDir() = %q, want %q", got, want)
	}
	if got, want := GetDefaultConfigPath(), filepath.Join(tmpDir, "config", "extmounts", "config.yaml"); got != want {
		t.Errorf("GetDefaultConfigPath() = %q, want %q", got, want)
	}
	if ConfigExists() {
		t.Error("ConfigExists() = true before any file was written")
	}
}
