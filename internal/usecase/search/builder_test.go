package search

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/docgate/internal/domain/search/query"
	"github.com/kailas-cloud/docgate/internal/domain/search/request"
)

func mustRequest(t *testing.T, q string, fields []string, sort []string, filters map[string]any) *request.Request {
	t.Helper()
	req, err := request.New(q, fields, "article", 2, 20, sort, filters)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func TestBuild_MatchAll(t *testing.T) {
	req := mustRequest(t, "", nil, nil, nil)
	got := QueryBuilder{}.Build(req, "acme")

	want := query.Bool{Must: []query.Query{
		query.MatchAll{},
		query.Term{Field: "tenantId", Value: "acme"},
		query.Term{Field: "is_deleted", Value: false},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestBuild_TextOnDefaultFields(t *testing.T) {
	req := mustRequest(t, "golang", nil, nil, map[string]any{"lang": "en", "category": "news"})
	got := QueryBuilder{}.Build(req, "acme")

	want := query.Bool{Must: []query.Query{
		query.Bool{
			Should: []query.Query{
				query.Match{Field: "title", Text: "golang"},
				query.Match{Field: "content", Text: "golang"},
			},
			MinShould: 1,
		},
		query.Term{Field: "tenantId", Value: "acme"},
		query.Term{Field: "category", Value: "news"},
		query.Term{Field: "lang", Value: "en"},
		query.Term{Field: "is_deleted", Value: false},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestBuild_SingleFieldCollapses(t *testing.T) {
	req := mustRequest(t, "go", []string{"summary"}, nil, nil)
	got := QueryBuilder{}.Build(req, "acme").(query.Bool)
	if m, ok := got.Must[0].(query.Match); !ok || m.Field != "summary" {
		t.Errorf("base = %#v, want a single Match on summary", got.Must[0])
	}
}

func TestBuild_TenantAlwaysConstrained(t *testing.T) {
	req := mustRequest(t, "x", nil, nil, map[string]any{"tenantId": "globex"})
	got := QueryBuilder{}.Build(req, "acme").(query.Bool)

	var tenants []any
	for _, c := range got.Must {
		if term, ok := c.(query.Term); ok && term.Field == "tenantId" {
			tenants = append(tenants, term.Value)
		}
	}
	// both clauses must hold, so a spoofed filter can only narrow to nothing
	if len(tenants) != 2 || tenants[0] != "acme" {
		t.Errorf("tenant clauses = %v", tenants)
	}
}

func TestSpec(t *testing.T) {
	req := mustRequest(t, "", nil, []string{"date:desc", "title", "views:ASC", "rank:sideways"}, nil)
	spec := QueryBuilder{}.Spec(query.MatchAll{}, req)

	if spec.From != 40 || spec.Size != 20 {
		t.Errorf("from/size = %d/%d, want 40/20", spec.From, spec.Size)
	}
	want := []query.Sort{
		{Field: "date", Desc: true},
		{Field: "title"},
		{Field: "views"},
		{Field: "rank"},
	}
	if !reflect.DeepEqual(spec.Sort, want) {
		t.Errorf("sort = %v, want %v", spec.Sort, want)
	}
}

func TestSpec_DefaultsToRelevance(t *testing.T) {
	req := mustRequest(t, "", nil, nil, nil)
	spec := QueryBuilder{}.Spec(query.MatchAll{}, req)
	want := []query.Sort{{Field: query.ScoreField, Desc: true}}
	if !reflect.DeepEqual(spec.Sort, want) {
		t.Errorf("sort = %v, want %v", spec.Sort, want)
	}
}
