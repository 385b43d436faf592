package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/docgate/internal/db"
)

// Index stores doc as JSON in the physical index behind alias.
func (s *Store) Index(ctx context.Context, alias, id string, doc map[string]any) error {
	physical, err := s.resolve(ctx, alias)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return s.JSONSet(ctx, s.docKey(physical, id), "$", data)
}

// SetFields overwrites top-level fields of an existing document, one JSON.SET per field.
func (s *Store) SetFields(ctx context.Context, alias, id string, fields map[string]any) error {
	physical, err := s.resolve(ctx, alias)
	if err != nil {
		return err
	}
	key := s.docKey(physical, id)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		data, err := json.Marshal(fields[name])
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", name, err)
		}
		cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$."+name, string(data)).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "new objects must be created at the root") {
				return db.ErrKeyNotFound
			}
			return &db.Error{Op: db.OpJSONSet, Err: err}
		}
	}
	return nil
}

// Get returns the document stored under id in the physical index behind alias.
func (s *Store) Get(ctx context.Context, alias, id string) (*db.Document, error) {
	physical, err := s.resolve(ctx, alias)
	if err != nil {
		return nil, err
	}
	raw, err := s.JSONGet(ctx, s.docKey(physical, id))
	if err != nil {
		return nil, err
	}
	src, err := decodeSource(raw)
	if err != nil {
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	return &db.Document{ID: id, Index: physical, Source: src}, nil
}

// splitKey turns {prefix}{physical}:{id} back into its parts.
func (s *Store) splitKey(key string) (physical, id string) {
	rest := strings.TrimPrefix(key, s.prefix)
	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return "", rest
	}
	return rest[:i], rest[i+1:]
}

// decodeSource accepts both a bare object and the single-element array JSONPath returns.
func decodeSource(raw []byte) (map[string]any, error) {
	var src map[string]any
	if err := json.Unmarshal(raw, &src); err == nil {
		return src, nil
	}
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if len(arr) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return arr[0], nil
}
