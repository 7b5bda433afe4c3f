// Package ratelimit provides a keyed token-bucket registry used to throttle
// calls to upstream imaging providers before they leave the process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config tunes one bucket per key.
type Config struct {
	RPS   float64 `json:"rps" yaml:"rps"`
	Burst int     `json:"burst" yaml:"burst"`
}

// DefaultConfig allows 2 requests per second with a burst of 4, which keeps
// a single API key under the free-tier quotas of the common image backends.
func DefaultConfig() *Config {
	return &Config{RPS: 2, Burst: 4}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Registry hands out one token bucket per key (provider name, client IP).
// Idle buckets are dropped by the cleanup loop.
type Registry struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *Config
}

// NewRegistry creates a Registry and starts its cleanup loop, which stops
// when ctx is cancelled.
func NewRegistry(ctx context.Context, config *Config) *Registry {
	if config == nil {
		config = DefaultConfig()
	}
	r := &Registry{
		buckets: make(map[string]*bucket),
		config:  config,
	}
	go r.cleanup(ctx)
	return r
}

// Allow reports whether one event for key may proceed now. There is no
// blocking variant: callers reject over-limit work instead of queueing it.
func (r *Registry) Allow(key string) bool {
	return r.get(key).Allow()
}

func (r *Registry) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(r.config.RPS), r.config.Burst)}
		r.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Len returns the number of live buckets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *Registry) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			for key, b := range r.buckets {
				if time.Since(b.lastSeen) > 3*time.Minute {
					delete(r.buckets, key)
				}
			}
			r.mu.Unlock()
		}
	}
}
