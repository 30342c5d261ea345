package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key.
//
// The backend prober uses it to throttle reachability checks per remote
// endpoint, so a page listing many mounts on one host cannot hammer that host
// while checks against other hosts still go through.
//
// Buckets are created lazily on first use and never evicted; the key space
// is bounded by the number of configured endpoints.
//
// Thread safety:
// All methods are safe for concurrent use.
type KeyedLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a KeyedLimiter allowing requestsPerSecond sustained checks and
// bursts of up to burst checks per key.
//
// A zero requestsPerSecond disables limiting. A zero burst is raised to one,
// otherwise no request could ever pass.
//
// Example:
//
//	// One check per second per host, bursts of three
//	limiter := New(1, 3)
func New(requestsPerSecond float64, burst uint) *KeyedLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst == 0 {
		burst = 1
	}

	return &KeyedLimiter{
		limit:   limit,
		burst:   int(burst),
		buckets: make(map[string]*rate.Limiter),
	}
}

func (k *KeyedLimiter) bucket(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		b = rate.NewLimiter(k.limit, k.burst)
		k.buckets[key] = b
	}
	return b
}

// Allow reports whether a request for key may proceed now, consuming a token
// if so. It never blocks.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.bucket(key).Allow()
}

// Wait blocks until a token for key is available or ctx is done.
//
// Returns the context error if ctx ends first, or an error if the wait would
// exceed ctx's deadline.
func (k *KeyedLimiter) Wait(ctx context.Context, key string) error {
	return k.bucket(key).Wait(ctx)
}

// Unlimited reports whether the limiter lets every request through.
func (k *KeyedLimiter) Unlimited() bool {
	return k.limit == rate.Inf
}

// Tokens returns the tokens currently available for key. Mainly useful in
// tests; the value may change immediately after the call.
func (k *KeyedLimiter) Tokens(key string) float64 {
	return k.bucket(key).Tokens()
}

// Len returns the number of keys seen so far.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
