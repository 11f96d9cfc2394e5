package core

// ingest.go is the batch reconciler. Each submitted row is normalized,
// diffed against any existing case with the same external identifier, and
// resolved to one of four outcomes: created, updated (some field changed),
// skipped (nothing changed), or failed. Every row runs in its own
// transaction scope so one row's failure never rolls back its siblings;
// batch counters are incremented once after the chunk completes.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caseflow/caseflow/internal/caserec"
	"github.com/google/uuid"
)

// StartImport creates the import batch record for a submission session.
// Must be called once before any row chunk is sent.
func (s *Service) StartImport(ctx context.Context, user Identity, fileName string, totalRows int) (string, error) {
	if user.ID == "" {
		return "", ErrUnauthenticated
	}

	batch := &ImportBatch{
		ID:         uuid.NewString(),
		FileName:   fileName,
		TotalRows:  totalRows,
		Status:     ImportProcessing,
		ImportedBy: user.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateImport(ctx, batch); err != nil {
		return "", fmt.Errorf("create import: %w", err)
	}

	slog.Info("import started",
		"import_id", batch.ID,
		"file", fileName,
		"total_rows", totalRows,
		"user", user.ID,
	)
	return batch.ID, nil
}

// SubmitBatch ingests one chunk of client-validated rows for an existing
// import. Preconditions (identity, import existence) fail the whole request
// before any row is touched; after that, per-row failures are isolated into
// the failed outcome list and processing continues.
func (s *Service) SubmitBatch(ctx context.Context, user Identity, importID string, records []caserec.CaseRecord) (*BatchResult, error) {
	if user.ID == "" {
		return nil, ErrUnauthenticated
	}
	if importID == "" {
		return nil, ErrMissingImport
	}
	if _, err := s.store.GetImport(ctx, importID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("import record %s: %w", importID, ErrNotFound)
		}
		return nil, fmt.Errorf("load import %s: %w", importID, err)
	}

	res := NewBatchResult()
	for _, rec := range records {
		rec := rec
		var outcome rowOutcome
		err := s.store.InTx(ctx, func(tx Tx) error {
			var txErr error
			outcome, txErr = s.reconcileRow(ctx, tx, user, importID, rec)
			return txErr
		})
		if err != nil {
			res.Failed = append(res.Failed, FailedRow{Row: rec, Errors: []string{failureMessage(err)}})
			continue
		}
		// Outcome lists are appended only after the row's transaction
		// committed, so a commit failure cannot double-count a row.
		ref := RowRef{CaseID: rec.CaseID}
		switch outcome {
		case rowCreated:
			res.Created = append(res.Created, ref)
		case rowUpdated:
			res.Updated = append(res.Updated, ref)
		case rowSkipped:
			res.Skipped = append(res.Skipped, ref)
		}
	}

	success := len(res.Created) + len(res.Updated)
	if err := s.store.AddImportCounts(ctx, importID, success, len(res.Failed)); err != nil {
		return nil, fmt.Errorf("update import counters: %w", err)
	}

	slog.Info("batch processed",
		"import_id", importID,
		"created", len(res.Created),
		"updated", len(res.Updated),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
	)
	return res, nil
}

// rowOutcome is the reconciliation decision for one row.
type rowOutcome int

const (
	rowCreated rowOutcome = iota
	rowUpdated
	rowSkipped
)

// reconcileRow handles one row inside its transaction scope. Returning an
// error rolls back this row only; the caller records it as failed.
func (s *Service) reconcileRow(ctx context.Context, tx Tx, user Identity, importID string, rec caserec.CaseRecord) (rowOutcome, error) {
	dob, ok := caserec.ParseDOB(rec.DOB)
	if !ok {
		return 0, errors.New(caserec.MsgInvalidDate)
	}

	// The case schema requires category and a valid priority even though
	// the grid lets category stay blank during editing.
	if !caserec.ValidCategory(rec.Category) {
		return 0, errors.New(caserec.MsgBadCategory)
	}
	priority := rec.Priority
	if priority == "" {
		priority = caserec.PriorityLow
	}
	if !caserec.ValidPriority(priority) {
		return 0, errors.New(caserec.MsgBadPriority)
	}

	incoming := Case{
		CaseID:        rec.CaseID,
		ApplicantName: rec.ApplicantName,
		DOB:           dob,
		Email:         rec.Email,
		Phone:         caserec.NormalizePhone(rec.Phone),
		Category:      rec.Category,
		Priority:      priority,
		Status:        StatusSubmitted,
		ImportID:      importID,
	}

	existing, err := tx.FindCaseByCaseID(ctx, rec.CaseID)
	switch {
	case errors.Is(err, ErrNotFound):
		incoming.ID = uuid.NewString()
		if err := tx.CreateCase(ctx, &incoming); err != nil {
			return 0, err
		}
		if err := s.appendHistory(ctx, tx, incoming.ID, ActionCreated, user.ID, rec); err != nil {
			return 0, err
		}
		return rowCreated, nil

	case err != nil:
		return 0, err
	}

	if caseUnchanged(existing, &incoming) {
		return rowSkipped, nil
	}

	incoming.ID = existing.ID
	if err := tx.UpdateCase(ctx, &incoming); err != nil {
		return 0, err
	}
	if err := s.appendHistory(ctx, tx, existing.ID, ActionUpdated, user.ID, rec); err != nil {
		return 0, err
	}
	return rowUpdated, nil
}

func (s *Service) appendHistory(ctx context.Context, tx Tx, caseRef string, action HistoryAction, userID string, rec caserec.CaseRecord) error {
	snapshot, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history snapshot: %w", err)
	}
	return tx.AppendHistory(ctx, &HistoryEntry{
		ID:        uuid.NewString(),
		CaseRef:   caseRef,
		Action:    action,
		UserID:    userID,
		NewValue:  string(snapshot),
		CreatedAt: time.Now().UTC(),
	})
}

// caseUnchanged compares the fields a row submission can change. Timestamps
// and import linkage are excluded: resubmitting an identical row must skip.
func caseUnchanged(a, b *Case) bool {
	return a.ApplicantName == b.ApplicantName &&
		a.DOB.Equal(b.DOB) &&
		a.Email == b.Email &&
		a.Phone == b.Phone &&
		a.Category == b.Category &&
		a.Priority == b.Priority
}

// failureMessage renders a per-row failure for the outcome list. The
// uniqueness backstop gets its specific message; everything else surfaces
// its own text.
func failureMessage(err error) string {
	if errors.Is(err, ErrCaseIDExists) {
		return caserec.MsgCaseIDExists
	}
	return err.Error()
}
