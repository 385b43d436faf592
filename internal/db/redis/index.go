package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docgate/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(append([]string{def.Name}, def.Args()...)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists checks index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// PointAlias makes alias resolve to index, adding or moving it as needed.
func (s *Store) PointAlias(ctx context.Context, alias, index string) error {
	add := s.b().Arbitrary("FT.ALIASADD").Args(alias, index).Build()
	err := s.do(ctx, add).Error()
	if err == nil {
		return nil
	}
	if !isRedisErr(err, "alias already exists") {
		return &db.Error{Op: db.OpAliasAdd, Err: err}
	}

	upd := s.b().Arbitrary("FT.ALIASUPDATE").Args(alias, index).Build()
	if err := s.do(ctx, upd).Error(); err != nil {
		return &db.Error{Op: db.OpAliasUpdate, Err: err}
	}
	return nil
}

// EnsureAliases creates the physical index if needed and points every alias at it.
func (s *Store) EnsureAliases(ctx context.Context, physical string, aliases ...string) error {
	def, err := s.schema(physical)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	if err := s.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return err
	}

	table := make(map[string]string, len(aliases))
	for _, a := range aliases {
		if err := s.PointAlias(ctx, a, physical); err != nil {
			return err
		}
		table[a] = physical
	}
	if len(table) == 0 {
		return nil
	}
	return s.HSet(ctx, s.aliasTable(), table)
}

// schema is the minimal default index every physical index is booted with.
func (s *Store) schema(physical string) (*db.IndexDefinition, error) {
	// tags match exactly, as keyword fields do in the embedded engine
	b := db.NewIndex(physical).
		Prefix(s.keyPrefix(physical)).
		JSONTag("documentId").CaseSensitive().
		JSONTag("tenantId").CaseSensitive().
		JSONTag("is_deleted").
		JSONTag("category").CaseSensitive().
		JSONText("title").Sortable().
		JSONText("content")
	for _, name := range s.tags {
		b.JSONTag(name).CaseSensitive()
	}
	for _, name := range s.numerics {
		b.JSONNumeric(name).Sortable()
	}
	return b.Build()
}

// resolve returns the physical index an alias points at.
func (s *Store) resolve(ctx context.Context, alias string) (string, error) {
	physical, err := s.HGet(ctx, s.aliasTable(), alias)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", db.ErrAliasNotFound
		}
		return "", err
	}
	return physical, nil
}
