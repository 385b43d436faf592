package search

import (
	"context"

	"github.com/kailas-cloud/docgate/internal/db"
	"github.com/kailas-cloud/docgate/internal/domain/search/query"
	"github.com/kailas-cloud/docgate/internal/domain/search/result"
)

// Engine is the read side of the search engine.
type Engine interface {
	Search(ctx context.Context, alias string, spec query.Spec) (*db.SearchResult, error)
	Get(ctx context.Context, alias, id string) (*db.Document, error)
}

// Cache stores search pages by request key.
type Cache interface {
	Get(key string) (result.Page, bool)
	Put(key string, page result.Page)
}
