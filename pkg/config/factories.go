package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/backend"
	"github.com/marmos91/extmounts/pkg/metrics"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/notify"
	"github.com/marmos91/extmounts/pkg/secret"
)

// CreateSecretTransform returns the transform protecting secret options.
//
// Without a key the options are stored as given (mount.PlainSecrets).
func CreateSecretTransform(cfg *SecretsConfig) (mount.SecretTransform, error) {
	key := cfg.Key
	if key == "" && cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read secrets key file: %w", err)
		}
		key = strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("secrets key file %s is empty", cfg.KeyFile)
		}
	}

	if key == "" {
		logger.Warn("No secrets key configured: backend passwords are stored in plain text")
		return mount.PlainSecrets{}, nil
	}

	cipher, err := secret.NewCipher([]byte(key), cfg.Fields...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets cipher: %w", err)
	}
	return cipher, nil
}

// CreateRegistry returns the built-in backends restricted to cfg.Enabled,
// with the personal overrides applied.
func CreateRegistry(cfg *BackendsConfig) (*backend.Registry, error) {
	registry := backend.DefaultRegistry()

	if len(cfg.Enabled) > 0 {
		restricted, err := registry.Restrict(cfg.Enabled)
		if err != nil {
			return nil, fmt.Errorf("backends.enabled: %w", err)
		}
		registry = restricted
	}

	for class, allowed := range cfg.Personal {
		if err := registry.SetPersonalAllowed(class, allowed); err != nil {
			return nil, fmt.Errorf("backends.personal: %w", err)
		}
	}

	logger.Debug("Enabled backends: %v", registry.Classes())
	return registry, nil
}

// CreateProber returns the reachability prober for registry.
func CreateProber(cfg *BackendsConfig, registry *backend.Registry, m metrics.MountMetrics) *backend.Prober {
	return backend.NewProber(backend.ProberConfig{
		Registry:   registry,
		SkipChecks: cfg.SkipChecks,
		Timeout:    cfg.CheckTimeout,
		Rate:       cfg.CheckRate,
		Burst:      cfg.CheckBurst,
		Metrics:    m,
	})
}

// CreateSink returns the notification sink described by cfg together with a
// function that flushes and releases it.
//
// Extra sinks (e.g. a file cache invalidator) receive every event after the
// log and AMQP sinks.
func CreateSink(cfg *NotificationsConfig, extra ...mount.NotificationSink) (mount.NotificationSink, func(), error) {
	var (
		sinks   notify.Multi
		release []func()
	)
	if cfg.Log {
		sinks = append(sinks, notify.LogSink{})
	}
	if cfg.AMQP != nil {
		amqpSink, err := notify.DialAMQP(*cfg.AMQP)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, amqpSink)
		release = append(release, func() {
			if err := amqpSink.Close(); err != nil {
				logger.Warn("%v", err)
			}
		})
	}
	sinks = append(sinks, extra...)

	var sink mount.NotificationSink
	switch len(sinks) {
	case 0:
		return mount.DiscardSink{}, func() {}, nil
	case 1:
		sink = sinks[0]
	default:
		sink = sinks
	}

	if cfg.QueueSize > 0 {
		async := notify.NewAsync(sink, cfg.QueueSize)
		sink = async
		// Flush before the broker connection goes away.
		release = append([]func(){async.Close}, release...)
	}

	return sink, func() {
		for _, fn := range release {
			fn()
		}
	}, nil
}
