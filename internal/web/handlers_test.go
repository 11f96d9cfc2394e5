package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caseflow/caseflow/internal/config"
	"github.com/caseflow/caseflow/internal/core"
	"github.com/caseflow/caseflow/internal/repository"
)

const testKey = "test-token"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           0,
			RequestTimeout: 10 * time.Second,
		},
		Security: config.SecurityConfig{
			IdentityTokens: []string{testKey + ":user-1:CASE_WORKER"},
		},
	}
	return NewServer(core.NewService(repository.NewMemory()), cfg)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("X-API-Key", testKey)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func startTestImport(t *testing.T, srv *Server, totalRows int) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/imports/start",
		map[string]any{"fileName": "cases.csv", "totalRows": totalRows}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start import status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ImportID string `json:"importId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.ImportID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStartImport_Unauthenticated(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/imports/start",
		map[string]any{"fileName": "cases.csv", "totalRows": 1}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body not JSON: %s", rec.Body.String())
	}
	if resp.Code == "" {
		t.Error("error response should carry a code")
	}
}

func TestSubmitBatch_FullFlow(t *testing.T) {
	srv := newTestServer(t)
	importID := startTestImport(t, srv, 1)

	rec := doJSON(t, srv, http.MethodPost, "/api/cases/batch", map[string]any{
		"importId": importID,
		"cases": []map[string]string{{
			"case_id":        "C-1",
			"applicant_name": "Alice Smith",
			"dob":            "1990-05-10",
			"category":       "TAX",
			"priority":       "LOW",
		}},
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var res core.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("created = %d, want 1 (failed: %v)", len(res.Created), res.Failed)
	}

	// The case is now visible through the listing.
	list := doJSON(t, srv, http.MethodGet, "/api/cases?search=c-1", nil, true)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var page core.CaseList
	if err := json.Unmarshal(list.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].CaseID != "C-1" {
		t.Fatalf("page = %+v, want C-1", page.Items)
	}

	// Detail view includes history; delete then returns 404.
	id := page.Items[0].ID
	detail := doJSON(t, srv, http.MethodGet, "/api/cases/"+id, nil, true)
	if detail.Code != http.StatusOK {
		t.Fatalf("detail status = %d", detail.Code)
	}
	var details core.CaseDetails
	if err := json.Unmarshal(detail.Body.Bytes(), &details); err != nil {
		t.Fatal(err)
	}
	if len(details.History) != 1 {
		t.Errorf("history = %d entries, want 1", len(details.History))
	}

	if del := doJSON(t, srv, http.MethodDelete, "/api/cases/"+id, nil, true); del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", del.Code)
	}
	if gone := doJSON(t, srv, http.MethodGet, "/api/cases/"+id, nil, true); gone.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", gone.Code)
	}
}

func TestSubmitBatch_MissingImportID(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/cases/batch",
		map[string]any{"importId": "", "cases": []map[string]string{}}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitBatch_UnknownImportID(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/cases/batch",
		map[string]any{"importId": "nope", "cases": []map[string]string{}}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestInvalidAPIKeyIsAnonymous(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/imports/start",
		bytes.NewBufferString(`{"fileName":"x.csv","totalRows":1}`))
	req.Header.Set("X-API-Key", "wrong-token")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
