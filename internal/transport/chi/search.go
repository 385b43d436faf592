package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/docgate/internal/domain/search/request"
	"github.com/kailas-cloud/docgate/internal/tenant"
)

// SearchDocuments handles GET and POST /api/v1/documents.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var (
		body SearchBody
		err  error
	)
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	} else if body, err = searchBodyFromQuery(r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	page, size := 0, s.defaultSize
	if body.Page != nil {
		page = *body.Page
	}
	if body.Size != nil {
		size = *body.Size
	}
	if size > s.maxSize {
		size = s.maxSize
	}

	req, err := request.New(body.Query, body.Fields, body.DocumentType, page, size, body.Sort, body.Filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.search.Search(r.Context(), tenant.FromContext(r.Context()), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(&res))
}

// GetDocument handles GET /api/v1/documents/{documentType}/{documentId}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	documentType := chi.URLParam(r, "documentType")
	id := chi.URLParam(r, "documentId")

	src, err := s.search.GetActiveDocument(r.Context(), tenant.FromContext(r.Context()), documentType, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		DocumentID:   id,
		DocumentType: documentType,
		Source:       src,
	})
}

func searchBodyFromQuery(q url.Values) (SearchBody, error) {
	body := SearchBody{
		Query:        q.Get("query"),
		DocumentType: q.Get("documentType"),
		Sort:         q["sort"],
	}
	if f := q.Get("fields"); f != "" {
		body.Fields = strings.Split(f, ",")
	}

	for _, name := range []string{"page", "size"} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return SearchBody{}, fmt.Errorf("%s must be an integer, got %q", name, raw)
		}
		if name == "page" {
			body.Page = &n
		} else {
			body.Size = &n
		}
	}
	return body, nil
}
