package core

// cases.go implements the case query surface: cursor-paginated listing with
// filters, detail view with history, and cascading delete.

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultListLimit is used when a listing request does not set a limit.
const DefaultListLimit = 20

// Pagination carries cursor state for a listing page.
type Pagination struct {
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// CaseList is one page of cases plus the unpaged total.
type CaseList struct {
	Items      []Case     `json:"items"`
	Total      int64      `json:"total"`
	Pagination Pagination `json:"pagination"`
}

// CaseDetails is a case with its full audit trail, newest entry first.
type CaseDetails struct {
	Case
	History []HistoryEntry `json:"history"`
}

// ListCases returns one page of cases ordered by creation time descending.
// An "ALL" status or category filter means no filter; search matches
// case-insensitively against identifier, applicant name, or email. The
// store fetches limit+1 rows; the popped extra row's ID becomes the cursor
// for the next page.
func (s *Service) ListCases(ctx context.Context, f CaseFilter) (*CaseList, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Status == "ALL" {
		f.Status = ""
	}
	if f.Category == "ALL" {
		f.Category = ""
	}

	total, err := s.store.CountCases(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}

	items, err := s.store.ListCases(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	page := Pagination{}
	if len(items) > f.Limit {
		next := items[len(items)-1]
		items = items[:f.Limit]
		page.NextCursor = next.ID
		page.HasMore = true
	}

	return &CaseList{Items: items, Total: total, Pagination: page}, nil
}

// GetCaseDetails returns a case with its history ordered newest-first, or
// ErrNotFound.
func (s *Service) GetCaseDetails(ctx context.Context, id string) (*CaseDetails, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.CaseHistory(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &CaseDetails{Case: *c, History: history}, nil
}

// DeleteCase removes a case and cascades its history in one transaction.
func (s *Service) DeleteCase(ctx context.Context, id string) error {
	if err := s.store.DeleteCase(ctx, id); err != nil {
		return err
	}
	slog.Info("case deleted", "case_id", id)
	return nil
}
