// Package core implements the server half of the intake pipeline: import
// batch bookkeeping, the per-row batch reconciler, and case queries. It has
// no HTTP or driver dependencies; persistence is reached through the Store
// interface so the reconciler is testable against an in-memory store.
package core

import (
	"time"

	"github.com/caseflow/caseflow/internal/caserec"
)

// CaseStatus is the lifecycle status of a persisted case.
type CaseStatus string

const (
	StatusSubmitted CaseStatus = "SUBMITTED"
	StatusInReview  CaseStatus = "IN_REVIEW"
	StatusApproved  CaseStatus = "APPROVED"
	StatusRejected  CaseStatus = "REJECTED"
)

// HistoryAction tags an audit-trail entry.
type HistoryAction string

const (
	ActionCreated HistoryAction = "CREATED"
	ActionUpdated HistoryAction = "UPDATED"
)

// ImportStatus is the processing status of an import batch.
type ImportStatus string

const ImportProcessing ImportStatus = "PROCESSING"

// Identity is the authenticated caller, supplied by the identity middleware.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Case is the persisted case record. CaseID is the user-supplied external
// identifier; ID is the storage key.
type Case struct {
	ID            string     `json:"id"`
	CaseID        string     `json:"caseId"`
	ApplicantName string     `json:"applicantName"`
	DOB           time.Time  `json:"dob"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Status        CaseStatus `json:"status"`
	ImportID      string     `json:"importId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HistoryEntry is one append-only audit record for a case. Entries are
// never mutated or deleted except by a cascading case delete; the canonical
// read order is creation time descending.
type HistoryEntry struct {
	ID        string        `json:"id"`
	CaseRef   string        `json:"caseId"`
	Action    HistoryAction `json:"action"`
	UserID    string        `json:"userId"`
	NewValue  string        `json:"newValue"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ImportBatch tracks one submission session. Counters are incremented as
// chunks complete, never overwritten, so resumed submissions stay additive.
type ImportBatch struct {
	ID           string       `json:"id"`
	FileName     string       `json:"fileName"`
	TotalRows    int          `json:"totalRows"`
	Status       ImportStatus `json:"status"`
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	ImportedBy   string       `json:"importedBy"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// RowRef identifies a processed row in an outcome list.
type RowRef struct {
	CaseID string `json:"case_id"`
}

// FailedRow is a row that could not be ingested, with its error messages.
type FailedRow struct {
	Row    caserec.CaseRecord `json:"row"`
	Errors []string           `json:"errors"`
}

// BatchResult holds the four per-chunk outcome lists.
type BatchResult struct {
	Created []RowRef    `json:"created"`
	Updated []RowRef    `json:"updated"`
	Skipped []RowRef    `json:"skipped"`
	Failed  []FailedRow `json:"failed"`
}

// NewBatchResult returns a result with empty (non-nil) outcome lists so the
// JSON shape is stable.
func NewBatchResult() *BatchResult {
	return &BatchResult{
		Created: []RowRef{},
		Updated: []RowRef{},
		Skipped: []RowRef{},
		Failed:  []FailedRow{},
	}
}

// Merge folds another chunk's outcome lists into r. Used by the client to
// accumulate totals across sequential chunk submissions.
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	r.Created = append(r.Created, other.Created...)
	r.Updated = append(r.Updated, other.Updated...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Failed = append(r.Failed, other.Failed...)
}
