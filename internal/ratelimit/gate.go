package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/domain"
	"github.com/kailas-cloud/docgate/internal/metrics"
	"github.com/kailas-cloud/docgate/internal/tenant"
)

// Policy names a gated operation and its bucket configuration.
type Policy struct {
	Name             string
	PermitsPerSecond float64
	Burst            int
}

// Built-in policies.
var (
	Ingestion = Policy{Name: "ingestion", PermitsPerSecond: 2, Burst: 20}
	Deletion  = Policy{Name: "deletion", PermitsPerSecond: 1, Burst: 5}
	Search    = Policy{Name: "search", PermitsPerSecond: 3, Burst: 25}
	Fetch     = Policy{Name: "fetch", PermitsPerSecond: 2, Burst: 10}
)

// ExceededError is returned when a gated call finds its bucket empty.
type ExceededError struct {
	Key              string
	PermitsPerSecond float64
	Burst            int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (pps=%g, burst=%d)", e.Key, e.PermitsPerSecond, e.Burst)
}

func (e *ExceededError) Unwrap() error { return domain.ErrRateLimited }

// Gate admits or rejects operations per (policy, tenant).
type Gate struct {
	registry *Registry
	logger   *zap.Logger
}

// NewGate creates a gate backed by registry.
func NewGate(registry *Registry, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{registry: registry, logger: logger}
}

// Key returns the limiter key for policy under the tenant bound to ctx.
func Key(ctx context.Context, policy Policy) string {
	return policy.Name + ":" + tenant.FromContext(ctx)
}

// Allow consumes one permit for the tenant in ctx. It never blocks.
func (g *Gate) Allow(ctx context.Context, policy Policy) error {
	key := Key(ctx, policy)
	l, err := g.registry.GetOrCreate(key, policy.PermitsPerSecond, policy.Burst)
	if err != nil {
		return fmt.Errorf("get limiter: %w", err)
	}

	if l.TryAcquire(1) {
		metrics.RateLimitDecisionsTotal.WithLabelValues(policy.Name, "allowed").Inc()
		return nil
	}

	metrics.RateLimitDecisionsTotal.WithLabelValues(policy.Name, "rejected").Inc()
	exceeded := &ExceededError{Key: key, PermitsPerSecond: l.PermitsPerSecond(), Burst: l.Burst()}
	g.logger.Warn("rate limit exceeded",
		zap.String("limiter", key),
		zap.Float64("pps", exceeded.PermitsPerSecond),
		zap.Int("burst", exceeded.Burst),
	)
	return exceeded
}

// Middleware gates every request through policy and answers 429 on rejection.
// The tenant must already be bound to the request context.
func (g *Gate) Middleware(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := g.Allow(r.Context(), policy)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}
			var exceeded *ExceededError
			if errors.As(err, &exceeded) {
				WriteRejection(w, exceeded)
				return
			}
			g.logger.Error("rate limit gate failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "internal_error",
				"message": "internal error",
			})
		})
	}
}

// Rejection is the body of a 429 response.
type Rejection struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WriteRejection writes the 429 response for err.
func WriteRejection(w http.ResponseWriter, err *ExceededError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(Rejection{
		Status:    http.StatusTooManyRequests,
		Error:     http.StatusText(http.StatusTooManyRequests),
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
