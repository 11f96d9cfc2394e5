package grid

import (
	"context"
	"fmt"

	"github.com/caseflow/caseflow/internal/caserec"
	"github.com/caseflow/caseflow/internal/core"
)

// SubmitChunkSize is how many rows go into each batch request.
const SubmitChunkSize = 100

// Ingestor is the server side of a submission session: one StartImport call
// establishes the batch, then chunks are submitted sequentially against it.
type Ingestor interface {
	StartImport(ctx context.Context, fileName string, totalRows int) (string, error)
	SubmitBatch(ctx context.Context, importID string, records []caserec.CaseRecord) (*core.BatchResult, error)
}

// SubmitProgress reports submission progress after each chunk.
type SubmitProgress func(sent, total int)

// Submit sends the store's valid rows to the ingestor in fixed-size chunks,
// one request at a time. A failed chunk marks all of its rows as failed and
// submission continues with the next chunk; only StartImport failure aborts
// the whole run. The merged result covers every submitted row exactly once.
func (s *Store) Submit(ctx context.Context, ing Ingestor, progress SubmitProgress) (*core.BatchResult, error) {
	rows := s.ValidRows()
	records := make([]caserec.CaseRecord, len(rows))
	for i, r := range rows {
		records[i] = r.Data
	}

	s.mu.Lock()
	fileName := s.fileName
	s.mu.Unlock()

	importID, err := ing.StartImport(ctx, fileName, len(records))
	if err != nil {
		return nil, fmt.Errorf("start import: %w", err)
	}

	total := len(records)
	merged := core.NewBatchResult()
	for start := 0; start < total; start += SubmitChunkSize {
		end := start + SubmitChunkSize
		if end > total {
			end = total
		}
		chunk := records[start:end]

		res, err := ing.SubmitBatch(ctx, importID, chunk)
		if err != nil {
			for _, rec := range chunk {
				merged.Failed = append(merged.Failed, core.FailedRow{
					Row:    rec,
					Errors: []string{fmt.Sprintf("chunk submission failed: %v", err)},
				})
			}
		} else {
			merged.Merge(res)
		}

		if progress != nil {
			progress(end, total)
		}
	}
	return merged, nil
}
