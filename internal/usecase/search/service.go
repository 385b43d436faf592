package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docgate/internal/db"
	"github.com/kailas-cloud/docgate/internal/domain"
	"github.com/kailas-cloud/docgate/internal/domain/alias"
	"github.com/kailas-cloud/docgate/internal/domain/search/request"
	"github.com/kailas-cloud/docgate/internal/domain/search/result"
	"github.com/kailas-cloud/docgate/internal/metrics"
)

// DefaultCacheThreshold caches responses with fewer total hits than this.
const DefaultCacheThreshold = 50

// Service runs tenant-scoped searches and document fetches.
type Service struct {
	engine    Engine
	cache     Cache
	builder   QueryBuilder
	threshold int64
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a search service. cache can be nil.
func New(engine Engine, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:    engine,
		cache:     cache,
		threshold: DefaultCacheThreshold,
		now:       time.Now,
		logger:    logger,
	}
}

// WithCacheThreshold sets the total-hit bound under which responses are cached.
func (s *Service) WithCacheThreshold(n int) *Service {
	if n > 0 {
		s.threshold = int64(n)
	}
	return s
}

// WithClock replaces the clock used for TookMs.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Search returns one page of tenant's active documents matching req.
// Small responses are served from and stored in the cache.
func (s *Service) Search(ctx context.Context, tenant string, req *request.Request) (result.Page, error) {
	if err := domain.ValidateName("tenantId", tenant); err != nil {
		return result.Page{}, err
	}
	key := req.CacheKey(tenant)
	if s.cache != nil {
		if page, ok := s.cache.Get(key); ok {
			return page, nil
		}
	}

	start := s.now()
	q := s.builder.Build(req, tenant)
	spec := s.builder.Spec(q, req)

	res, err := s.engine.Search(ctx, alias.Read(tenant, req.DocumentType()), spec)
	took := s.now().Sub(start)
	if errors.Is(err, db.ErrAliasNotFound) {
		// nothing was ever written for this (tenant, documentType)
		metrics.SearchDuration.WithLabelValues("empty").Observe(took.Seconds())
		return result.NewPage(nil, 0, req.Page(), req.Size(), took.Milliseconds()), nil
	}
	if err != nil {
		metrics.SearchDuration.WithLabelValues("error").Observe(took.Seconds())
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrSearchEngine, err)
	}
	metrics.SearchDuration.WithLabelValues("ok").Observe(took.Seconds())

	results := make([]result.Result, 0, len(res.Entries))
	for _, e := range res.Entries {
		results = append(results, result.New(e.ID, e.Score, e.Source, e.Index))
	}
	page := result.NewPage(results, res.Total, req.Page(), req.Size(), took.Milliseconds())

	if s.cache != nil && res.Total < s.threshold {
		s.cache.Put(key, page)
	}
	return page, nil
}

// GetActiveDocument returns the source of a document that exists and is not
// soft-deleted.
func (s *Service) GetActiveDocument(ctx context.Context, tenant, documentType, id string) (map[string]any, error) {
	if err := domain.ValidateName("tenantId", tenant); err != nil {
		return nil, err
	}
	if err := domain.ValidateName("documentType", documentType); err != nil {
		return nil, err
	}
	if err := domain.ValidateName("documentId", id); err != nil {
		return nil, err
	}

	doc, err := s.engine.Get(ctx, alias.Read(tenant, documentType), id)
	if errors.Is(err, db.ErrKeyNotFound) || errors.Is(err, db.ErrAliasNotFound) {
		return nil, fmt.Errorf("get %s: %w", id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrSearchEngine, id, err)
	}

	if deleted, _ := doc.Source[FieldIsDeleted].(bool); deleted {
		s.logger.Debug("document is soft-deleted",
			zap.String("tenant_id", tenant),
			zap.String("document_id", id),
		)
		return nil, fmt.Errorf("get %s: %w", id, domain.ErrDocumentNotFound)
	}
	return doc.Source, nil
}
