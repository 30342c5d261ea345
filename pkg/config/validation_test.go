package config

import (
	"strings"
	"testing"

	"github.com/marmos91/extmounts/pkg/notify"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "invalid log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "unknown store type",
			mutate:  func(cfg *Config) { cfg.Store.Type = "postgres" },
			wantErr: "Type",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(cfg *Config) { cfg.Metrics.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "negative queue size",
			mutate:  func(cfg *Config) { cfg.Notifications.QueueSize = -1 },
			wantErr: "QueueSize",
		},
		{
			name: "key and key file",
			mutate: func(cfg *Config) {
				cfg.Secrets.Key = "k"
				cfg.Secrets.KeyFile = "/etc/extmounts/key"
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown enabled backend",
			mutate:  func(cfg *Config) { cfg.Backends.Enabled = []string{"smb", "floppy"} },
			wantErr: "floppy",
		},
		{
			name:    "duplicate enabled backend",
			mutate:  func(cfg *Config) { cfg.Backends.Enabled = []string{"smb", "smb"} },
			wantErr: "duplicate",
		},
		{
			name: "personal override of disabled backend",
			mutate: func(cfg *Config) {
				cfg.Backends.Enabled = []string{"smb"}
				cfg.Backends.Personal = map[string]bool{"local": true}
			},
			wantErr: "not enabled",
		},
		{
			name:    "s3 store without bucket",
			mutate:  func(cfg *Config) { cfg.Store.Type = "s3" },
			wantErr: "bucket",
		},
		{
			name:    "redis store without addr",
			mutate:  func(cfg *Config) { cfg.Store.Type = "redis" },
			wantErr: "addr",
		},
		{
			name:    "postgres store without dsn",
			mutate:  func(cfg *Config) { cfg.Store.Type = "postgres" },
			wantErr: "dsn",
		},
		{
			name:    "unknown store type",
			mutate:  func(cfg *Config) { cfg.Store.Type = "etcd" },
			wantErr: "oneof",
		},
		{
			name: "amqp without destination",
			mutate: func(cfg *Config) {
				cfg.Notifications.AMQP = &notify.AMQPConfig{URL: "amqp://localhost"}
			},
			wantErr: "exchange or queue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LowercaseLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Lowercase level should be accepted: %v", err)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json", Output: "/var/log/extmounts.log"},
		Store: StoreConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"datadir": "/srv/mounts"},
		},
		Secrets:  SecretsConfig{Fields: []string{"password", "secret"}},
		Backends: BackendsConfig{CheckRate: -1, CheckBurst: 2},
		Metrics:  MetricsConfig{Port: 8080},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" || cfg.Logging.Format != "json" || cfg.Logging.Output != "/var/log/extmounts.log" {
		t.Errorf("Logging values were changed: %+v", cfg.Logging)
	}
	if cfg.Store.Filesystem["datadir"] != "/srv/mounts" {
		t.Errorf("datadir was changed: %v", cfg.Store.Filesystem["datadir"])
	}
	if len(cfg.Secrets.Fields) != 2 {
		t.Errorf("secret fields were changed: %v", cfg.Secrets.Fields)
	}
	if cfg.Backends.CheckRate != -1 || cfg.Backends.CheckBurst != 2 {
		t.Errorf("check throttling was changed: %+v", cfg.Backends)
	}
	if cfg.Metrics.Port != 8080 {
		t.Errorf("metrics port was changed: %d", cfg.Metrics.Port)
	}
}
