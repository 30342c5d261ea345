package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/extmounts/pkg/backend"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both upper and lower case levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that struct tags cannot express.
func validateCustomRules(cfg *Config) error {
	if cfg.Secrets.Key != "" && cfg.Secrets.KeyFile != "" {
		return fmt.Errorf("secrets: key and key_file are mutually exclusive")
	}

	builtins := backend.DefaultRegistry()
	seen := make(map[string]bool)
	for i, class := range cfg.Backends.Enabled {
		if _, ok := builtins.Get(class); !ok {
			return fmt.Errorf("backends.enabled[%d]: unknown backend %q (known: %v)", i, class, builtins.Classes())
		}
		if seen[class] {
			return fmt.Errorf("backends.enabled[%d]: duplicate backend %q", i, class)
		}
		seen[class] = true
	}

	for class := range cfg.Backends.Personal {
		if _, ok := builtins.Get(class); !ok {
			return fmt.Errorf("backends.personal: unknown backend %q", class)
		}
		if len(seen) > 0 && !seen[class] {
			return fmt.Errorf("backends.personal: backend %q is not enabled", class)
		}
	}

	if cfg.Store.Type == "s3" {
		if bucket, _ := cfg.Store.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("store.s3: bucket is required")
		}
	}

	if cfg.Store.Type == "redis" {
		if addr, _ := cfg.Store.Redis["addr"].(string); addr == "" {
			return fmt.Errorf("store.redis: addr is required")
		}
	}

	if cfg.Store.Type == "postgres" {
		if dsn, _ := cfg.Store.Postgres["dsn"].(string); dsn == "" {
			return fmt.Errorf("store.postgres: dsn is required")
		}
	}

	if amqp := cfg.Notifications.AMQP; amqp != nil {
		if amqp.URL == "" {
			return fmt.Errorf("notifications.amqp: url is required")
		}
		if amqp.Exchange == "" && amqp.Queue == "" {
			return fmt.Errorf("notifications.amqp: exchange or queue is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
