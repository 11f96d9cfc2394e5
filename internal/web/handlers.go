package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/caseflow/caseflow/internal/caserec"
	"github.com/caseflow/caseflow/internal/core"
	mw "github.com/caseflow/caseflow/internal/web/middleware"
	"github.com/go-chi/chi/v5"
)

type startImportRequest struct {
	FileName  string `json:"fileName"`
	TotalRows int    `json:"totalRows"`
}

type startImportResponse struct {
	ImportID string `json:"importId"`
}

// handleStartImport creates the import batch record for a submission
// session.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	var req startImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user := mw.IdentityFromContext(r.Context())
	importID, err := s.service.StartImport(r.Context(), user, req.FileName, req.TotalRows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, startImportResponse{ImportID: importID})
}

type submitBatchRequest struct {
	ImportID string               `json:"importId"`
	Cases    []caserec.CaseRecord `json:"cases"`
}

// handleSubmitBatch ingests one chunk of rows for an existing import.
func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user := mw.IdentityFromContext(r.Context())
	res, err := s.service.SubmitBatch(r.Context(), user, req.ImportID, req.Cases)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleListCases returns one page of cases with filters and cursor paging.
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := s.service.ListCases(r.Context(), core.CaseFilter{
		Limit:    limit,
		Cursor:   q.Get("cursor"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// handleGetCase returns a case with its history, newest entry first.
func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	details, err := s.service.GetCaseDetails(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// handleDeleteCase removes a case and its history.
func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCase(r.Context(), chi.URLParam(r, "caseID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
