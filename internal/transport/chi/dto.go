package chi

import (
	"github.com/kailas-cloud/docgate/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/docgate/internal/usecase/health"
)

// SearchBody is the JSON body of POST /api/v1/documents.
type SearchBody struct {
	Query        string         `json:"query"`
	Fields       []string       `json:"fields"`
	DocumentType string         `json:"documentType"`
	Page         *int           `json:"page"`
	Size         *int           `json:"size"`
	Sort         []string       `json:"sort"`
	Filters      map[string]any `json:"filters"`
}

// SearchHit is one entry of a search response.
type SearchHit struct {
	DocumentID string         `json:"documentId"`
	Score      float64        `json:"score"`
	Index      string         `json:"index"`
	Source     map[string]any `json:"source"`
}

// SearchResponse is one page of hits.
type SearchResponse struct {
	Results    []SearchHit `json:"results"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	TotalPages int         `json:"totalPages"`
	TookMs     int64       `json:"tookMs"`
}

// DocumentResponse is a fetched document.
type DocumentResponse struct {
	DocumentID   string         `json:"documentId"`
	DocumentType string         `json:"documentType"`
	Source       map[string]any `json:"source"`
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

func searchResponse(p *result.Page) SearchResponse {
	hits := make([]SearchHit, 0, len(p.Results()))
	for _, r := range p.Results() {
		hits = append(hits, SearchHit{
			DocumentID: r.DocumentID(),
			Score:      r.Score(),
			Index:      r.Index(),
			Source:     r.Source(),
		})
	}
	return SearchResponse{
		Results:    hits,
		Total:      p.Total(),
		Page:       p.Page(),
		Size:       p.Size(),
		TotalPages: p.TotalPages(),
		TookMs:     p.TookMs(),
	}
}
