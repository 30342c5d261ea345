package backend

import (
	"context"
	"net"
	"time"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/internal/ratelimiter"
	"github.com/marmos91/extmounts/pkg/metrics"
	"github.com/marmos91/extmounts/pkg/mount"
)

const (
	// DefaultTimeout bounds a single reachability check.
	DefaultTimeout = 5 * time.Second

	// DefaultRate is the sustained number of checks per second per endpoint.
	DefaultRate = 1.0

	// DefaultBurst is the number of back-to-back checks allowed per endpoint.
	DefaultBurst = 5
)

// ProberConfig configures a Prober.
type ProberConfig struct {
	// Registry resolves backend classes. Nil uses DefaultRegistry.
	Registry *Registry

	// SkipChecks reports every known backend as reachable without contacting it.
	SkipChecks bool

	// Timeout bounds each check. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Rate and Burst throttle checks per endpoint. A zero Rate uses
	// DefaultRate, a negative one disables throttling.
	Rate  float64
	Burst uint

	// Dialer opens connections for host based checks. Nil uses net.Dialer.
	Dialer Dialer

	// Metrics records check outcomes. Nil records nothing.
	Metrics metrics.MountMetrics
}

// Prober implements mount.StatusProbe on top of a Registry.
//
// Check never fails. Unknown backends, disallowed personal backends and
// failed checks yield mount.StatusError; throttled checks yield
// mount.StatusIndeterminate.
type Prober struct {
	registry   *Registry
	skipChecks bool
	timeout    time.Duration
	dialer     Dialer
	limiter    *ratelimiter.KeyedLimiter
	metrics    metrics.MountMetrics
}

// NewProber creates a Prober from config.
func NewProber(config ProberConfig) *Prober {
	p := &Prober{
		registry:   config.Registry,
		skipChecks: config.SkipChecks,
		timeout:    config.Timeout,
		dialer:     config.Dialer,
		metrics:    config.Metrics,
	}
	if p.registry == nil {
		p.registry = DefaultRegistry()
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.dialer == nil {
		p.dialer = &net.Dialer{}
	}
	if p.metrics == nil {
		p.metrics = metrics.NewNoopMountMetrics()
	}

	rate, burst := config.Rate, config.Burst
	if rate == 0 {
		rate = DefaultRate
	}
	if rate < 0 {
		rate = 0
	}
	if burst == 0 {
		burst = DefaultBurst
	}
	p.limiter = ratelimiter.New(rate, burst)

	return p
}

// Check probes the backend described by class and options.
func (p *Prober) Check(ctx context.Context, class string, options map[string]any, personal bool) mount.StatusCode {
	start := time.Now()
	status := p.check(ctx, class, options, personal)
	p.metrics.RecordProbe(class, status.String(), time.Since(start))
	return status
}

func (p *Prober) check(ctx context.Context, class string, options map[string]any, personal bool) mount.StatusCode {
	def, ok := p.registry.Get(class)
	if !ok {
		logger.Warn("backend: unknown backend class %q", class)
		return mount.StatusError
	}
	if personal && !def.PersonalAllowed {
		logger.Warn("backend: %s is not allowed for personal mounts", class)
		return mount.StatusError
	}
	if p.skipChecks || def.Check == nil {
		return mount.StatusSuccess
	}

	key := class
	if def.Endpoint != nil {
		key += "|" + def.Endpoint(options)
	}
	if !p.limiter.Allow(key) {
		logger.Debug("backend: check of %s throttled", key)
		return mount.StatusIndeterminate
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := def.Check(ctx, p.dialer, options); err != nil {
		logger.Debug("backend: %s unreachable: %v", class, err)
		return mount.StatusError
	}
	return mount.StatusSuccess
}
