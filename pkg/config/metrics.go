package config

import (
	"github.com/marmos91/extmounts/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// MountMetrics records service, probe and store activity (never nil, noop if disabled)
	MountMetrics metrics.MountMetrics
}

// InitializeMetrics creates the metrics components described by cfg.
//
// When metrics are disabled the server is nil and MountMetrics is a no-op.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			MountMetrics: metrics.NewNoopMountMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:       server,
		MountMetrics: metrics.NewMountMetrics(),
	}
}
