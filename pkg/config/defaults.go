package config

import (
	"path/filepath"
	"strings"

	"github.com/marmos91/extmounts/pkg/backend"
	"github.com/marmos91/extmounts/pkg/notify"
	"github.com/marmos91/extmounts/pkg/secret"
)

// DefaultMetricsPort is the port of the metrics endpoint.
const DefaultMetricsPort = 9091

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applySecretsDefaults(&cfg.Secrets)
	applyBackendsDefaults(&cfg.Backends)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStoreDefaults sets config store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["datadir"]; !ok {
		cfg.Filesystem["datadir"] = getDataDir()
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(getDataDir(), "badger")
	}
}

// applySecretsDefaults sets secret encryption defaults.
func applySecretsDefaults(cfg *SecretsConfig) {
	if len(cfg.Fields) == 0 {
		cfg.Fields = append([]string(nil), secret.DefaultFields...)
	}
}

// applyBackendsDefaults sets reachability check defaults.
func applyBackendsDefaults(cfg *BackendsConfig) {
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = backend.DefaultTimeout
	}
	if cfg.CheckRate == 0 {
		cfg.CheckRate = backend.DefaultRate
	}
	if cfg.CheckBurst == 0 {
		cfg.CheckBurst = backend.DefaultBurst
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is used when generating a sample configuration file.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Notifications: NotificationsConfig{
			Log:       true,
			QueueSize: notify.DefaultQueueSize,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
