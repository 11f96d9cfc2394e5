package core

// store.go declares the persistence contract consumed by the service. The
// pgx implementation lives in internal/repository; tests use the in-memory
// implementation from the same package.

import "context"

// CaseFilter narrows case listings. Zero values mean "no filter". Cursor is
// the storage ID of the last item from the previous page.
type CaseFilter struct {
	Limit    int
	Cursor   string
	Status   string
	Category string
	Search   string
}

// Tx is the per-row transaction scope used by the batch reconciler. Every
// method call inside one InTx callback commits or rolls back together, so a
// row's case write and its history entry are atomic while sibling rows stay
// isolated.
type Tx interface {
	// FindCaseByCaseID looks up a case by external identifier, returning
	// ErrNotFound when absent.
	FindCaseByCaseID(ctx context.Context, caseID string) (*Case, error)

	// CreateCase inserts a new case. A unique-constraint violation on the
	// external identifier is reported as ErrCaseIDExists.
	CreateCase(ctx context.Context, c *Case) error

	// UpdateCase rewrites the mutable fields of an existing case.
	UpdateCase(ctx context.Context, c *Case) error

	// AppendHistory writes one append-only audit entry.
	AppendHistory(ctx context.Context, h *HistoryEntry) error
}

// Store is the persistent store for cases and import batches.
type Store interface {
	// InTx runs fn inside a transaction scope, committing on nil and
	// rolling back on error.
	InTx(ctx context.Context, fn func(Tx) error) error

	CreateImport(ctx context.Context, b *ImportBatch) error
	GetImport(ctx context.Context, id string) (*ImportBatch, error)

	// AddImportCounts increments (never overwrites) the batch counters.
	AddImportCounts(ctx context.Context, id string, success, failure int) error

	GetCase(ctx context.Context, id string) (*Case, error)

	// CaseHistory returns a case's audit entries newest-first.
	CaseHistory(ctx context.Context, caseRef string) ([]HistoryEntry, error)

	// ListCases returns up to f.Limit+1 cases ordered by creation time
	// descending. A non-empty f.Cursor positions the page at that case
	// inclusively (the cursor is the popped extra item from the previous
	// page, which has not been delivered yet). The caller pops the extra
	// item to detect a further page.
	ListCases(ctx context.Context, f CaseFilter) ([]Case, error)

	CountCases(ctx context.Context, f CaseFilter) (int64, error)

	// DeleteCase removes a case and its history in one transaction,
	// returning ErrNotFound when the case does not exist.
	DeleteCase(ctx context.Context, id string) error
}
