package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/extmounts/pkg/notify"
	"github.com/spf13/viper"
)

// Config represents the complete extmounts configuration.
//
// This structure captures:
//   - Logging configuration
//   - Config store selection and configuration (store-specific)
//   - Secret encryption of backend options
//   - Available backends and their reachability checks
//   - Change notification delivery
//   - Prometheus metrics
//
// Configuration sources (in order of precedence):
//  1. Environment variables (EXTMOUNTS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type. The Config
// struct carries type-specific sections (e.g. store.filesystem, store.badger)
// and only the section matching store.type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Store selects where mount tables are persisted
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Secrets controls encryption of secret backend options
	Secrets SecretsConfig `mapstructure:"secrets" yaml:"secrets"`

	// Backends restricts and tunes the available storage backends
	Backends BackendsConfig `mapstructure:"backends" yaml:"backends"`

	// Notifications controls delivery of mount change events
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StoreConfig specifies the config store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific section is used.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, filesystem, badger, s3, redis, postgres
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem badger s3 redis postgres"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Redis contains Redis-specific configuration
	// Only used when Type = "redis"
	Redis map[string]any `mapstructure:"redis" yaml:"redis,omitempty"`

	// Postgres contains PostgreSQL-specific configuration
	// Only used when Type = "postgres"
	Postgres map[string]any `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// SecretsConfig controls encryption of secret backend options.
//
// When neither Key nor KeyFile is set, options are stored in plain text.
type SecretsConfig struct {
	// Key is the secret the encryption key is derived from
	Key string `mapstructure:"key" yaml:"key,omitempty"`

	// KeyFile is read for the secret when Key is empty
	KeyFile string `mapstructure:"key_file" yaml:"key_file,omitempty"`

	// Fields lists the option keys that are encrypted
	Fields []string `mapstructure:"fields" yaml:"fields" validate:"dive,required"`
}

// BackendsConfig restricts and tunes the storage backends.
type BackendsConfig struct {
	// Enabled lists the backend classes that may be configured.
	// Empty enables every built-in backend.
	Enabled []string `mapstructure:"enabled" yaml:"enabled,omitempty" validate:"dive,required"`

	// Personal overrides whether personal mounts may use a backend
	Personal map[string]bool `mapstructure:"personal" yaml:"personal,omitempty"`

	// SkipChecks reports every backend as reachable without contacting it
	SkipChecks bool `mapstructure:"skip_checks" yaml:"skip_checks"`

	// CheckTimeout bounds each reachability check
	CheckTimeout time.Duration `mapstructure:"check_timeout" yaml:"check_timeout" validate:"gte=0"`

	// CheckRate is the number of checks per second allowed per endpoint.
	// Negative disables throttling.
	CheckRate float64 `mapstructure:"check_rate" yaml:"check_rate"`

	// CheckBurst is the number of back-to-back checks allowed per endpoint
	CheckBurst uint `mapstructure:"check_burst" yaml:"check_burst"`
}

// NotificationsConfig controls delivery of mount change events.
type NotificationsConfig struct {
	// Log writes every event to the log
	Log bool `mapstructure:"log" yaml:"log"`

	// QueueSize buffers events for asynchronous delivery.
	// Zero delivers synchronously.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size" validate:"gte=0"`

	// AMQP publishes every event to a RabbitMQ exchange or queue.
	// Nil disables publishing.
	AMQP *notify.AMQPConfig `mapstructure:"amqp" yaml:"amqp,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the metrics endpoint
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (EXTMOUNTS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the EXTMOUNTS_ prefix and underscores
	// Example: EXTMOUNTS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("EXTMOUNTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/extmounts/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are the scalar settings that may be set from the environment
// without appearing in the config file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"store.type",
	"secrets.key",
	"secrets.key_file",
	"backends.skip_checks",
	"backends.check_timeout",
	"notifications.log",
	"notifications.queue_size",
	"notifications.amqp.url",
	"metrics.enabled",
	"metrics.port",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Missing config file is fine; defaults apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "extmounts")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "extmounts")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}

// getDataDir returns the default data directory.
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "extmounts")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "data")
	}

	return filepath.Join(home, ".local", "share", "extmounts")
}
