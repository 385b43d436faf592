package search

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/docgate/internal/domain/search/query"
	"github.com/kailas-cloud/docgate/internal/domain/search/request"
)

// Fields every tenant query is constrained on.
const (
	FieldTenantID  = "tenantId"
	FieldIsDeleted = "is_deleted"
)

// QueryBuilder turns a search request into an engine query.
type QueryBuilder struct{}

// Build returns base AND tenantId=tenant AND filters AND is_deleted=false.
// The base is match-all for an empty query, otherwise a match of the query
// text on any of the requested fields.
func (QueryBuilder) Build(req *request.Request, tenant string) query.Query {
	filters := req.Filters()
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	clauses := make([]query.Query, 0, len(keys)+3)
	clauses = append(clauses, base(req), query.Term{Field: FieldTenantID, Value: tenant})
	for _, k := range keys {
		clauses = append(clauses, query.Term{Field: k, Value: filters[k]})
	}
	clauses = append(clauses, query.Term{Field: FieldIsDeleted, Value: false})

	return query.And(clauses...)
}

func base(req *request.Request) query.Query {
	text := req.Query()
	if text == "" {
		return query.MatchAll{}
	}
	fields := req.Fields()
	should := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		should = append(should, query.Match{Field: f, Text: text})
	}
	return query.Or(should...)
}

// Spec adds paging and ordering to q. Sort entries are field[:asc|desc];
// anything but desc sorts ascending. Without sort entries hits are ordered
// by relevance.
func (QueryBuilder) Spec(q query.Query, req *request.Request) query.Spec {
	spec := query.Spec{
		Query: q,
		From:  req.From(),
		Size:  req.Size(),
	}
	for _, s := range req.Sort() {
		field, order, _ := strings.Cut(s, ":")
		spec.Sort = append(spec.Sort, query.Sort{
			Field: strings.TrimSpace(field),
			Desc:  strings.EqualFold(strings.TrimSpace(order), "desc"),
		})
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []query.Sort{{Field: query.ScoreField, Desc: true}}
	}
	return spec
}
