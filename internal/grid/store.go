package grid

// store.go owns the row collection for one import session.
//
// All operations take the store mutex, so a full-pass validation chunk can
// never interleave with a cell edit mid-row; yields happen only at chunk
// boundaries. A generation counter guards the chunked pass: Load and Clear
// bump it, and a running pass that observes a stale generation discards its
// continuation instead of writing into a replaced collection.

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/caseflow/caseflow/internal/caserec"
)

// Chunking policy for the full validation pass.
const (
	largeSetChunk   = 1000
	smallSetCutoff  = 1000
	smallChunkPause = 50 * time.Millisecond
	settleDelay     = 300 * time.Millisecond
)

// Store holds the editable rows for the current import session.
type Store struct {
	mu         sync.Mutex
	rows       []*Row
	fileName   string
	validating bool
	progress   int
	generation uint64
	nextID     int64
	port       SnapshotPort
}

// NewStore creates a store backed by the given snapshot port. A previously
// saved session is restored if the port has one; pass nil to keep the store
// purely in-memory.
func NewStore(port SnapshotPort) *Store {
	s := &Store{port: port}
	if port != nil {
		if snap, err := port.Load(); err == nil && snap != nil {
			s.restore(snap)
		}
	}
	return s
}

// Load replaces the collection with freshly parsed records. Field names are
// cleaned of export artifacts, duplicate identifiers are counted once over
// the whole set, and every row is validated synchronously.
func (s *Store) Load(records []map[string]string, fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*Row, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		data := caserec.FromMap(rec)
		ids = append(ids, data.CaseID)
		rows = append(rows, &Row{Data: data})
	}

	counts := caserec.CountIDs(ids)
	for i, row := range rows {
		row.ID = int64(i + 1)
		row.RowNumber = i + 1
		row.revalidate()
		row.applyDuplicate(counts[row.Data.CaseID] > 1)
	}

	s.rows = rows
	s.fileName = fileName
	s.nextID = int64(len(rows))
	s.progress = 100
	s.validating = false
	s.generation++
	s.saveLocked()
}

// UpdateCell replaces one field of the row at the given 0-based index and
// revalidates that row. Editing the external identifier additionally
// recomputes duplicate status for the rows whose identifier equals the old
// or the new value; no other rows are touched.
func (s *Store) UpdateCell(index int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.rows) {
		return fmt.Errorf("row index %d out of range", index)
	}

	row := s.rows[index]
	oldID := row.Data.CaseID
	row.Data.SetField(field, value)
	row.revalidate()

	if field == caserec.FieldCaseID {
		s.recheckDuplicatesLocked(oldID, value)
	} else {
		// Re-derive this row's duplicate status so an unrelated edit
		// cannot silently drop a still-colliding identifier error.
		row.applyDuplicate(s.countIDLocked(row.Data.CaseID) > 1)
	}

	s.saveLocked()
	return nil
}

// AddRow appends a blank row with a generated unique identifier, today's
// date, and the default LOW priority, validated immediately.
func (s *Store) AddRow() Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	row := &Row{
		ID:        s.nextID,
		RowNumber: len(s.rows) + 1,
		Data: caserec.CaseRecord{
			CaseID:   fmt.Sprintf("NEW-%d", time.Now().UnixMilli()+s.nextID),
			DOB:      time.Now().Format("2006-01-02"),
			Priority: caserec.PriorityLow,
		},
	}
	row.revalidate()
	s.rows = append(s.rows, row)
	s.recheckDuplicatesLocked("", row.Data.CaseID)
	s.saveLocked()
	return *row
}

// DeleteRow removes the row at the given index.
func (s *Store) DeleteRow(index int) error {
	return s.DeleteRows([]int{index})
}

// DeleteRows removes the rows at the given indices, renumbers display
// positions 1..N, and re-derives duplicate status for the identifiers the
// removed rows carried. Client-local identities are not renumbered.
func (s *Store) DeleteRows(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.rows) {
			return fmt.Errorf("row index %d out of range", idx)
		}
		drop[idx] = true
	}
	if len(drop) == 0 {
		return nil
	}

	removedIDs := make(map[string]bool)
	kept := make([]*Row, 0, len(s.rows)-len(drop))
	for i, row := range s.rows {
		if drop[i] {
			if row.Data.CaseID != "" {
				removedIDs[row.Data.CaseID] = true
			}
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	for i, row := range s.rows {
		row.RowNumber = i + 1
	}

	// A removed row may have been the other half of a duplicate pair.
	for id := range removedIDs {
		count := s.countIDLocked(id)
		for _, row := range s.rows {
			if row.Data.CaseID == id {
				row.applyDuplicate(count > 1)
			}
		}
	}

	s.saveLocked()
	return nil
}

// Rows returns a copy of all rows in display order.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyRowsLocked(func(*Row) bool { return true })
}

// ValidRows returns the rows that currently pass all validation rules.
func (s *Store) ValidRows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyRowsLocked(func(r *Row) bool { return r.IsValid })
}

// InvalidRows returns the rows that currently carry at least one error.
func (s *Store) InvalidRows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyRowsLocked(func(r *Row) bool { return !r.IsValid })
}

// Clear empties the collection and resets file name and progress. Any
// running validation pass is superseded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.fileName = ""
	s.progress = 0
	s.validating = false
	s.generation++
	s.saveLocked()
}

// FileName returns the name of the loaded file, if any.
func (s *Store) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// Progress returns the 0-100 progress of the last validation pass.
func (s *Store) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Validating reports whether a full validation pass is in flight.
func (s *Store) Validating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validating
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// FixAll applies the bulk cleanup pass: trims every string field, normalizes
// parseable phone numbers to canonical form, title-cases applicant names,
// defaults a missing priority to LOW, then revalidates each row.
func (s *Store) FixAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		d := &row.Data
		for _, f := range []string{
			caserec.FieldCaseID, caserec.FieldApplicantName, caserec.FieldDOB,
			caserec.FieldEmail, caserec.FieldPhone, caserec.FieldCategory,
			caserec.FieldPriority,
		} {
			d.SetField(f, trim(d.Field(f)))
		}
		if d.Phone != "" {
			d.Phone = caserec.NormalizePhone(d.Phone)
		}
		if d.ApplicantName != "" {
			d.ApplicantName = titleCase(d.ApplicantName)
		}
		if d.Priority == "" {
			d.Priority = caserec.PriorityLow
		}
	}

	counts := s.countAllLocked()
	for _, row := range s.rows {
		row.revalidate()
		row.applyDuplicate(counts[row.Data.CaseID] > 1)
	}
	s.saveLocked()
}

// ValidateAll runs a chunked full revalidation pass.
//
// Small sets (< 1000 rows) use ten chunks with a perceptible pause between
// them so the progress bar reads as motion; large sets use fixed 1000-row
// chunks and only yield the scheduler. Duplicate counts are computed once up
// front, then applied per row during the pass. The pass is superseded
// harmlessly by a Load or Clear that happens between chunks.
func (s *Store) ValidateAll(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	total := len(s.rows)
	counts := s.countAllLocked()
	s.validating = true
	s.progress = 0
	if total == 0 {
		s.progress = 100
	}
	s.mu.Unlock()

	chunk := largeSetChunk
	pause := time.Duration(0)
	if total < smallSetCutoff {
		chunk = (total + 9) / 10
		if chunk < 1 {
			chunk = 1
		}
		pause = smallChunkPause
	}

	for start := 0; start < total; start += chunk {
		if err := yield(ctx, pause); err != nil {
			s.finishValidation(gen)
			return err
		}

		s.mu.Lock()
		if s.generation != gen {
			// Collection was replaced mid-pass; drop the continuation.
			s.mu.Unlock()
			return nil
		}
		end := start + chunk
		if end > len(s.rows) {
			end = len(s.rows)
		}
		for i := start; i < end; i++ {
			row := s.rows[i]
			row.revalidate()
			row.applyDuplicate(counts[row.Data.CaseID] > 1)
		}
		s.progress = (end*100 + total/2) / total
		s.mu.Unlock()
	}

	if err := yield(ctx, settleDelay); err != nil {
		s.finishValidation(gen)
		return err
	}
	s.finishValidation(gen)
	return nil
}

func (s *Store) finishValidation(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.validating = false
	}
}

// yield pauses between chunks, honoring cancellation. A zero pause still
// yields the scheduler so a long pass cannot starve other goroutines.
func yield(ctx context.Context, pause time.Duration) error {
	if pause <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pause):
		return nil
	}
}

// recheckDuplicatesLocked re-derives duplicate status for exactly the rows
// whose identifier equals the old or the new value of an edited identifier:
// the affected set is the union of the two equivalence classes.
func (s *Store) recheckDuplicatesLocked(oldID, newID string) {
	oldCount := s.countIDLocked(oldID)
	newCount := s.countIDLocked(newID)
	for _, row := range s.rows {
		switch row.Data.CaseID {
		case "":
		case oldID:
			row.applyDuplicate(oldCount > 1)
		case newID:
			row.applyDuplicate(newCount > 1)
		}
	}
}

func (s *Store) countIDLocked(id string) int {
	if id == "" {
		return 0
	}
	n := 0
	for _, row := range s.rows {
		if row.Data.CaseID == id {
			n++
		}
	}
	return n
}

func (s *Store) countAllLocked() map[string]int {
	ids := make([]string, len(s.rows))
	for i, row := range s.rows {
		ids[i] = row.Data.CaseID
	}
	return caserec.CountIDs(ids)
}

func trim(s string) string { return strings.TrimSpace(s) }

// titleCase uppercases the first letter of each space-separated word,
// lowercasing the rest ("jOHN doe" -> "John Doe").
func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func (s *Store) copyRowsLocked(keep func(*Row) bool) []Row {
	out := make([]Row, 0, len(s.rows))
	for _, row := range s.rows {
		if !keep(row) {
			continue
		}
		cp := *row
		cp.Errors = make(map[string]string, len(row.Errors))
		for k, v := range row.Errors {
			cp.Errors[k] = v
		}
		out = append(out, cp)
	}
	return out
}
