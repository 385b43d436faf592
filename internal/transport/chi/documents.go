package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	commanduc "github.com/kailas-cloud/docgate/internal/usecase/command"
)

// CreateDocument handles POST /api/v1/documents/{documentType}/{documentId}.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ack, err := s.commands.Create(r.Context(), chi.URLParam(r, "documentType"), chi.URLParam(r, "documentId"), doc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// UpdateDocument handles PUT /api/v1/documents/{documentId}.
// A tenantId query parameter is accepted for compatibility; the X-Tenant-ID header decides.
func (s *Server) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var in commanduc.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ack, err := s.commands.Update(r.Context(), chi.URLParam(r, "documentId"), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// DeleteDocument handles DELETE /api/v1/documents/{documentType}/{documentId}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ack, err := s.commands.Delete(r.Context(), chi.URLParam(r, "documentType"), chi.URLParam(r, "documentId"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
