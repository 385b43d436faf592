package embedded

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/docgate/internal/db"
	"github.com/kailas-cloud/docgate/internal/domain/search/query"
)

// Search runs spec against the alias.
func (s *Store) Search(ctx context.Context, alias string, spec query.Spec) (*db.SearchResult, error) {
	if spec.Size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}
	ia, physical, err := s.alias(alias)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(translate(spec.Query), spec.Size, spec.From, false)
	req.Fields = []string{sourceField}
	if order := sortOrder(spec.Sort); len(order) > 0 {
		req.SortBy(order)
	}

	res, err := ia.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{
		Total:   int64(res.Total), //nolint:gosec // hit counts fit in int64
		Entries: make([]db.SearchEntry, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		src, err := decodeSource(hit.Fields)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("hit %s: %w", hit.ID, err)}
		}
		index := hit.Index
		if index == "" {
			index = physical
		}
		out.Entries = append(out.Entries, db.SearchEntry{
			ID:     hit.ID,
			Index:  index,
			Score:  hit.Score,
			Source: src,
		})
	}
	return out, nil
}

func sortOrder(sorts []query.Sort) []string {
	order := make([]string, 0, len(sorts))
	for _, s := range sorts {
		if s.Desc {
			order = append(order, "-"+s.Field)
		} else {
			order = append(order, s.Field)
		}
	}
	return order
}

// translate maps the query tree onto bleve queries.
func translate(q query.Query) bquery.Query {
	switch q := q.(type) {
	case query.Match:
		m := bleve.NewMatchQuery(q.Text)
		m.SetField(q.Field)
		return m
	case query.Term:
		return translateTerm(q)
	case query.Bool:
		if len(q.Must) == 0 && len(q.Should) == 0 {
			return bleve.NewMatchAllQuery()
		}
		b := bleve.NewBooleanQuery()
		for _, c := range q.Must {
			b.AddMust(translate(c))
		}
		for _, c := range q.Should {
			b.AddShould(translate(c))
		}
		if len(q.Should) > 0 {
			b.SetMinShould(float64(max(q.MinShould, 1)))
		}
		return b
	default:
		return bleve.NewMatchAllQuery()
	}
}

func translateTerm(q query.Term) bquery.Query {
	switch v := q.Value.(type) {
	case string:
		t := bleve.NewTermQuery(v)
		t.SetField(q.Field)
		return t
	case bool:
		b := bleve.NewBoolFieldQuery(v)
		b.SetField(q.Field)
		return b
	default:
		if f, ok := toFloat(v); ok {
			inclusive := true
			r := bleve.NewNumericRangeInclusiveQuery(&f, &f, &inclusive, &inclusive)
			r.SetField(q.Field)
			return r
		}
		t := bleve.NewTermQuery(fmt.Sprint(v))
		t.SetField(q.Field)
		return t
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
