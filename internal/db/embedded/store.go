// Package embedded is an in-process db.Engine backed by bleve.
//
// Physical indexes live in memory, or under DataDir when one is configured.
// Aliases are bleve IndexAliases, so reads always go through the same
// indirection a cluster engine would use.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/docgate/internal/db"
)

// Compile-time check: Store implements db.Engine.
var _ db.Engine = (*Store)(nil)

// sourceField holds the original document as stored, unindexed JSON.
const sourceField = "source_json"

// Config configures the embedded engine.
type Config struct {
	// DataDir keeps indexes on disk, one directory per physical index.
	// Empty means memory only.
	DataDir string
}

// Store is an in-process search engine.
type Store struct {
	mu      sync.RWMutex
	dataDir string
	indexes map[string]bleve.Index
	aliases map[string]bleve.IndexAlias
	targets map[string]string // alias -> physical
	closed  bool

	// writeMu serialises read-modify-write updates.
	writeMu sync.Mutex
}

// NewStore creates an embedded engine.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
		}
	}
	return &Store{
		dataDir: cfg.DataDir,
		indexes: make(map[string]bleve.Index),
		aliases: make(map[string]bleve.IndexAlias),
		targets: make(map[string]string),
	}, nil
}

// Ping reports whether the engine is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.ErrClosed
	}
	return nil
}

// WaitForReady returns immediately; the engine is ready once constructed.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes every physical index.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, idx := range s.indexes {
		_ = idx.Close()
	}
}

// EnsureAliases opens or creates physical and points every alias at it.
func (s *Store) EnsureAliases(_ context.Context, physical string, aliases ...string) error {
	if !db.IsValidIdentifier(physical) {
		return fmt.Errorf("invalid index name %q", physical)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return db.ErrClosed
	}

	idx, ok := s.indexes[physical]
	if !ok {
		var err error
		idx, err = s.open(physical)
		if err != nil {
			return &db.Error{Op: db.OpOpen, Err: err}
		}
		s.indexes[physical] = idx
	}

	for _, name := range aliases {
		ia, ok := s.aliases[name]
		switch {
		case !ok:
			s.aliases[name] = bleve.NewIndexAlias(idx)
		case s.targets[name] != physical:
			ia.Swap([]bleve.Index{idx}, []bleve.Index{s.indexes[s.targets[name]]})
		}
		s.targets[name] = physical
	}
	return nil
}

func (s *Store) open(physical string) (bleve.Index, error) {
	var (
		idx bleve.Index
		err error
	)
	if s.dataDir == "" {
		idx, err = bleve.NewMemOnly(newMapping())
	} else {
		path := filepath.Join(s.dataDir, physical)
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, newMapping())
		}
	}
	if err != nil {
		return nil, err
	}
	idx.SetName(physical)
	return idx, nil
}

// newMapping indexes strings as exact keywords, except the analysed
// title and content fields.
func newMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = keyword.Name
	m.StoreDynamic = false

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	m.DefaultMapping.AddFieldMappingsAt("title", text)
	m.DefaultMapping.AddFieldMappingsAt("content", text)

	src := bleve.NewTextFieldMapping()
	src.Index = false
	src.Store = true
	src.IncludeInAll = false
	src.IncludeTermVectors = false
	src.DocValues = false
	m.DefaultMapping.AddFieldMappingsAt(sourceField, src)

	return m
}

// physical returns the physical index behind alias.
func (s *Store) physical(alias string) (bleve.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ErrClosed
	}
	name, ok := s.targets[alias]
	if !ok {
		return nil, db.ErrAliasNotFound
	}
	return s.indexes[name], nil
}

// alias returns the bleve alias used for reads.
func (s *Store) alias(name string) (bleve.IndexAlias, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, "", db.ErrClosed
	}
	ia, ok := s.aliases[name]
	if !ok {
		return nil, "", db.ErrAliasNotFound
	}
	return ia, s.targets[name], nil
}
