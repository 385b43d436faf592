package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/docgate/internal/domain/search/query"
)

// Engine is the search engine facade combining all sub-interfaces.
// Documents are always addressed through an alias, never a physical index.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Engine interface {
	Pinger
	DocumentStore
	Searcher
	AliasManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentStore reads and writes single documents behind an alias.
type DocumentStore interface {
	// Index stores doc under id, replacing any previous version.
	Index(ctx context.Context, alias, id string, doc map[string]any) error
	// SetFields overwrites the given top-level fields of an existing document.
	// Returns ErrKeyNotFound if the document does not exist.
	SetFields(ctx context.Context, alias, id string, fields map[string]any) error
	// Get returns the document stored under id.
	Get(ctx context.Context, alias, id string) (*Document, error)
}

// Searcher runs queries against an alias.
type Searcher interface {
	Search(ctx context.Context, alias string, spec query.Spec) (*SearchResult, error)
}

// AliasManager provisions physical indexes and points aliases at them.
type AliasManager interface {
	// EnsureAliases creates physical if missing and points every alias at it.
	EnsureAliases(ctx context.Context, physical string, aliases ...string) error
}

// Document is a stored document and the physical index holding it.
type Document struct {
	ID     string
	Index  string
	Source map[string]any
}
