package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/backend"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
)

// Runtime holds every component built from a Config and hands out mount
// services sharing them.
//
// Services are cached per scope, so all callers of one scope share the
// service's mutex.
type Runtime struct {
	Store    store.Store
	Registry *backend.Registry
	Prober   *backend.Prober
	Metrics  *MetricsResult

	base      mount.ServiceConfig
	closeSink func()

	mu       sync.Mutex
	services map[string]*mount.Service
	closed   bool
}

// InitializeRuntime builds the components described by cfg.
//
// Extra sinks receive every change event after the configured ones.
func InitializeRuntime(ctx context.Context, cfg *Config, extraSinks ...mount.NotificationSink) (*Runtime, error) {
	metricsResult := InitializeMetrics(cfg)

	secrets, err := CreateSecretTransform(&cfg.Secrets)
	if err != nil {
		return nil, err
	}

	registry, err := CreateRegistry(&cfg.Backends)
	if err != nil {
		return nil, err
	}

	s, err := CreateConfigStore(ctx, &cfg.Store, metricsResult.MountMetrics)
	if err != nil {
		return nil, err
	}

	prober := CreateProber(&cfg.Backends, registry, metricsResult.MountMetrics)
	sink, closeSink, err := CreateSink(&cfg.Notifications, extraSinks...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Debug("Runtime initialized: store=%s backends=%v", cfg.Store.Type, registry.Classes())

	return &Runtime{
		Store:    s,
		Registry: registry,
		Prober:   prober,
		Metrics:  metricsResult,
		base: mount.ServiceConfig{
			Store:     s,
			Secrets:   secrets,
			Probe:     prober,
			Sink:      sink,
			Validator: mount.NewValidator(registry),
			Metrics:   metricsResult.MountMetrics,
		},
		closeSink: closeSink,
		services:  make(map[string]*mount.Service),
	}, nil
}

// Service returns the mount service of scope.
func (r *Runtime) Service(scope mount.Scope) (*mount.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("runtime is closed")
	}

	key := scope.String()
	if svc, ok := r.services[key]; ok {
		return svc, nil
	}

	svc, err := mount.NewService(scope, r.base)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s mount service: %w", key, err)
	}
	r.services[key] = svc
	return svc, nil
}

// GlobalService returns the service of administrator managed mounts.
func (r *Runtime) GlobalService() (*mount.Service, error) {
	return r.Service(mount.GlobalScope())
}

// UserService returns the service of the personal mounts of user.
func (r *Runtime) UserService(user string) (*mount.Service, error) {
	if err := store.ValidateOwner(user); err != nil {
		return nil, err
	}
	return r.Service(mount.UserScope(user))
}

// Close flushes pending notifications and closes the store.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.closeSink()
	return r.Store.Close()
}

