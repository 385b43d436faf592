package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/docgate/internal/db"
)

// Index stores doc in the physical index behind alias.
func (s *Store) Index(_ context.Context, alias, id string, doc map[string]any) error {
	idx, err := s.physical(alias)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return index(idx, id, doc)
}

// SetFields merges fields into an existing document and reindexes it.
func (s *Store) SetFields(ctx context.Context, alias, id string, fields map[string]any) error {
	idx, err := s.physical(alias)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	src, err := load(ctx, idx, id)
	if err != nil {
		return err
	}
	maps.Copy(src, fields)
	return index(idx, id, src)
}

// Get returns the document stored under id, read through alias.
func (s *Store) Get(ctx context.Context, alias, id string) (*db.Document, error) {
	ia, physical, err := s.alias(alias)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Size = 1
	req.Fields = []string{sourceField}
	res, err := ia.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if len(res.Hits) == 0 {
		return nil, db.ErrKeyNotFound
	}

	hit := res.Hits[0]
	src, err := decodeSource(hit.Fields)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if hit.Index != "" {
		physical = hit.Index
	}
	return &db.Document{ID: hit.ID, Index: physical, Source: src}, nil
}

func index(idx bleve.Index, id string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	body := make(map[string]any, len(doc)+1)
	maps.Copy(body, doc)
	body[sourceField] = string(data)

	if err := idx.Index(id, body); err != nil {
		return &db.Error{Op: db.OpIndex, Err: err}
	}
	return nil
}

func load(ctx context.Context, idx bleve.Index, id string) (map[string]any, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Size = 1
	req.Fields = []string{sourceField}
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpUpdate, Err: err}
	}
	if len(res.Hits) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return decodeSource(res.Hits[0].Fields)
}

func decodeSource(fields map[string]any) (map[string]any, error) {
	raw, ok := fields[sourceField].(string)
	if !ok {
		return nil, fmt.Errorf("document has no stored source")
	}
	var src map[string]any
	if err := json.Unmarshal([]byte(raw), &src); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	return src, nil
}
