// Package tenant carries the request's tenant identifier through context.Context.
package tenant

import (
	"context"
	"net/http"
	"strings"
)

// Default is used when a request names no tenant.
const Default = "default"

// Header is the HTTP header the tenant is read from.
const Header = "X-Tenant-ID"

type ctxKey struct{}

// WithTenant returns a copy of ctx carrying tenantID.
// An empty tenantID is stored as Default.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = Default
	}
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext returns the tenant stored in ctx, or Default.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return Default
}

// Middleware binds the X-Tenant-ID header to the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithTenant(r.Context(), r.Header.Get(Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
