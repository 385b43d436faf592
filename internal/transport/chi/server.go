package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/domain"
	"github.com/kailas-cloud/docgate/internal/domain/search/request"
	"github.com/kailas-cloud/docgate/internal/domain/search/result"
	"github.com/kailas-cloud/docgate/internal/ratelimit"
	"github.com/kailas-cloud/docgate/internal/tenant"
	commanduc "github.com/kailas-cloud/docgate/internal/usecase/command"
	healthuc "github.com/kailas-cloud/docgate/internal/usecase/health"
)

// Error codes of the {code, message} error body.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeDocumentNotFound  = "document_not_found"
	codeRateLimited       = "rate_limited"
	codeQueueUnavailable  = "queue_unavailable"
	codeSearchEngineError = "search_engine_error"
	codeInternalError     = "internal_error"
)

// ErrorResponse is the body of every non-429 error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Commands queues document mutations.
type Commands interface {
	Create(ctx context.Context, documentType, id string, doc map[string]any) (commanduc.Ack, error)
	Update(ctx context.Context, id string, in commanduc.UpdateInput) (commanduc.Ack, error)
	Delete(ctx context.Context, documentType, id string) (commanduc.Ack, error)
}

// Searcher answers queries and document fetches.
type Searcher interface {
	Search(ctx context.Context, tenant string, req *request.Request) (result.Page, error)
	GetActiveDocument(ctx context.Context, tenant, documentType, id string) (map[string]any, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Policies are the gates wrapped around read routes.
type Policies struct {
	Search ratelimit.Policy
	Fetch  ratelimit.Policy
}

// Server serves the document gateway API.
type Server struct {
	commands      Commands
	search        Searcher
	health        HealthChecker
	gate          *ratelimit.Gate
	policies      Policies
	defaultSize   int
	maxSize       int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. gate can be nil to leave reads ungated.
func NewServer(
	commands Commands,
	search Searcher,
	health HealthChecker,
	gate *ratelimit.Gate,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		commands:    commands,
		search:      search,
		health:      health,
		gate:        gate,
		policies:    Policies{Search: ratelimit.Search, Fetch: ratelimit.Fetch},
		defaultSize: request.DefaultSize,
		maxSize:     request.MaxSize,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		rateLimitHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrPublishFailed, http.StatusServiceUnavailable, codeQueueUnavailable),
		sentinelHandler(domain.ErrSearchEngine, http.StatusBadGateway, codeSearchEngineError),
	}
	return s
}

// WithPolicies replaces the search and fetch policies.
func (s *Server) WithPolicies(p Policies) *Server {
	s.policies = p
	return s
}

// WithPageSize sets the size used when a search names none, and its upper bound.
func (s *Server) WithPageSize(defaultSize, maxSize int) *Server {
	if defaultSize > 0 {
		s.defaultSize = defaultSize
	}
	if maxSize > 0 {
		s.maxSize = maxSize
	}
	return s
}

// Register mounts the API on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/public/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Use(tenant.Middleware)

		r.Post("/{documentType}/{documentId}", s.CreateDocument)
		r.Put("/{documentId}", s.UpdateDocument)
		r.Delete("/{documentType}/{documentId}", s.DeleteDocument)

		r.With(s.gated(s.policies.Search)).Get("/", s.SearchDocuments)
		r.With(s.gated(s.policies.Search)).Post("/", s.SearchDocuments)
		r.With(s.gated(s.policies.Fetch)).Get("/{documentType}/{documentId}", s.GetDocument)
	})
}

func (s *Server) gated(policy ratelimit.Policy) func(http.Handler) http.Handler {
	if s.gate == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.gate.Middleware(policy)
}

// HealthCheck handles GET /health and GET /public/health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation errors carry the offending field, so their full text is kept.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrRateLimited,
		domain.ErrPublishFailed,
		domain.ErrSearchEngine,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func rateLimitHandler(w http.ResponseWriter, err error, msg string) bool {
	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		ratelimit.WriteRejection(w, exceeded)
		return true
	}
	if errors.Is(err, domain.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, codeRateLimited, msg)
		return true
	}
	return false
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
