package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromContext_Default(t *testing.T) {
	if got := FromContext(context.Background()); got != Default {
		t.Errorf("FromContext = %q, want %q", got, Default)
	}
}

func TestWithTenant(t *testing.T) {
	ctx := WithTenant(context.Background(), "acme")
	if got := FromContext(ctx); got != "acme" {
		t.Errorf("FromContext = %q, want acme", got)
	}

	ctx = WithTenant(context.Background(), "   ")
	if got := FromContext(ctx); got != Default {
		t.Errorf("blank tenant: FromContext = %q, want %q", got, Default)
	}
}

func TestWithTenant_Isolated(t *testing.T) {
	a := WithTenant(context.Background(), "a")
	b := WithTenant(a, "b")
	if FromContext(a) != "a" || FromContext(b) != "b" {
		t.Errorf("contexts leaked: a=%q b=%q", FromContext(a), FromContext(b))
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"header set", "acme", "acme"},
		{"header missing", "", Default},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = FromContext(r.Context())
			}))

			req := httptest.NewRequest("GET", "/", http.NoBody)
			if tc.header != "" {
				req.Header.Set(Header, tc.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tc.want {
				t.Errorf("tenant = %q, want %q", got, tc.want)
			}
		})
	}
}
