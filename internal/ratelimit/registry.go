package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/metrics"
)

// DefaultMaxLimiters bounds the registry when no size is configured.
const DefaultMaxLimiters = 100_000

// Registry maps limiter names to shared Limiter instances.
//
// The first caller to register a name fixes its configuration; later calls
// with a different rate or burst get the existing limiter. The least recently
// used limiters are evicted once the registry is full, which resets their
// buckets if the name comes back.
type Registry struct {
	mu       sync.Mutex
	limiters *simplelru.LRU[string, *Limiter]
	now      Clock
	logger   *zap.Logger
	removing bool // set while Remove/Clear run; their callbacks are not evictions
}

// NewRegistry creates a registry holding at most maxLimiters limiters.
func NewRegistry(maxLimiters int, logger *zap.Logger) (*Registry, error) {
	if maxLimiters <= 0 {
		maxLimiters = DefaultMaxLimiters
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{now: time.Now, logger: logger}
	cache, err := simplelru.NewLRU[string, *Limiter](maxLimiters, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create limiter lru: %w", err)
	}
	r.limiters = cache
	return r, nil
}

// GetOrCreate returns the limiter registered under name, creating it with the
// given configuration if absent. Insert-if-absent is atomic.
func (r *Registry) GetOrCreate(name string, permitsPerSecond float64, burst int) (*Limiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters.Get(name); ok {
		if l.permitsPerSecond != permitsPerSecond || l.burst != burst {
			r.logger.Debug("limiter config differs from registered one, keeping registered",
				zap.String("limiter", name),
				zap.Float64("registered_pps", l.permitsPerSecond),
				zap.Int("registered_burst", l.burst),
				zap.Float64("requested_pps", permitsPerSecond),
				zap.Int("requested_burst", burst),
			)
		}
		return l, nil
	}

	l, err := newLimiter(name, permitsPerSecond, burst, r.now)
	if err != nil {
		return nil, err
	}
	r.limiters.Add(name, l)
	metrics.RateLimitersActive.Set(float64(r.limiters.Len()))
	return l, nil
}

// Get returns the limiter registered under name.
func (r *Registry) Get(name string) (*Limiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limiters.Get(name)
}

// Remove drops the limiter registered under name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removing = true
	r.limiters.Remove(name)
	r.removing = false
	metrics.RateLimitersActive.Set(float64(r.limiters.Len()))
}

// Clear drops every limiter.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removing = true
	r.limiters.Purge()
	r.removing = false
	metrics.RateLimitersActive.Set(0)
}

// Len returns the number of registered limiters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limiters.Len()
}

// onEvict runs under r.mu from inside the LRU.
func (r *Registry) onEvict(name string, _ *Limiter) {
	if r.removing {
		return
	}
	metrics.RateLimitersEvictedTotal.Inc()
	r.logger.Debug("limiter evicted", zap.String("limiter", name))
}
