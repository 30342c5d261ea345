// Package metrics provides Prometheus metrics collection for extmounts.
//
// All metrics are optional - if the registry is not initialized, constructors
// return no-op implementations with zero overhead, so the mount services run
// the same way with or without metrics collection.
//
// Usage:
//
//	// Initialize the registry once (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	mountMetrics := metrics.NewMountMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all extmounts metrics.
	// Protected by registryOnce for write-once, read-many access.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Safe to call multiple times - subsequent calls are ignored. If it is never
// called, GetRegistry returns nil and every constructor returns a no-op.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
