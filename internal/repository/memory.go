package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caseflow/caseflow/internal/core"
)

// Memory is an in-process core.Store used by tests and local runs without a
// database. It honors the same contracts as Postgres: ErrNotFound on misses,
// ErrCaseIDExists on duplicate external identifiers, additive counters, and
// newest-first ordering.
type Memory struct {
	mu      sync.RWMutex
	cases   map[string]*core.Case // keyed by storage ID
	byRef   map[string]string     // external case_id -> storage ID
	history map[string][]core.HistoryEntry
	imports map[string]*core.ImportBatch
	seq     int64
	order   map[string]int64 // storage ID -> insertion sequence
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cases:   make(map[string]*core.Case),
		byRef:   make(map[string]string),
		history: make(map[string][]core.HistoryEntry),
		imports: make(map[string]*core.ImportBatch),
		order:   make(map[string]int64),
	}
}

// InTx serializes the callback under the write lock. There is no rollback:
// callers that error out mid-row would leave partial writes, which is
// acceptable for the tests this store serves because the service only fails
// a row before its first write.
func (m *Memory) InTx(ctx context.Context, fn func(core.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{m: m})
}

func (m *Memory) CreateImport(ctx context.Context, b *core.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.imports[b.ID] = &cp
	return nil
}

func (m *Memory) GetImport(ctx context.Context, id string) (*core.ImportBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.imports[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) AddImportCounts(ctx context.Context, id string, success, failure int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.imports[id]
	if !ok {
		return core.ErrNotFound
	}
	b.SuccessCount += success
	b.FailureCount += failure
	return nil
}

func (m *Memory) GetCase(ctx context.Context, id string) (*core.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) CaseHistory(ctx context.Context, caseRef string) ([]core.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := append([]core.HistoryEntry(nil), m.history[caseRef]...)
	// Stored oldest-first; the contract is newest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (m *Memory) ListCases(ctx context.Context, f core.CaseFilter) ([]core.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedLocked()
	start := 0
	if f.Cursor != "" {
		start = len(all)
		for i, c := range all {
			if c.ID == f.Cursor {
				start = i
				break
			}
		}
	}

	items := make([]core.Case, 0, f.Limit+1)
	for _, c := range all[start:] {
		if !matchFilter(c, f) {
			continue
		}
		items = append(items, *c)
		if len(items) == f.Limit+1 {
			break
		}
	}
	return items, nil
}

func (m *Memory) CountCases(ctx context.Context, f core.CaseFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, c := range m.cases {
		if matchFilter(c, f) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteCase(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(m.byRef, c.CaseID)
	delete(m.cases, id)
	delete(m.order, id)
	delete(m.history, id)
	return nil
}

// sortedLocked returns all cases newest-first with insertion order breaking
// timestamp ties, matching the Postgres ORDER BY.
func (m *Memory) sortedLocked() []*core.Case {
	all := make([]*core.Case, 0, len(m.cases))
	for _, c := range m.cases {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return m.order[all[i].ID] > m.order[all[j].ID]
	})
	return all
}

func matchFilter(c *core.Case, f core.CaseFilter) bool {
	if f.Status != "" && string(c.Status) != f.Status {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.CaseID), q) &&
			!strings.Contains(strings.ToLower(c.ApplicantName), q) &&
			!strings.Contains(strings.ToLower(c.Email), q) {
			return false
		}
	}
	return true
}

// memTx runs with Memory's write lock already held.
type memTx struct {
	m *Memory
}

func (t *memTx) FindCaseByCaseID(ctx context.Context, caseID string) (*core.Case, error) {
	id, ok := t.m.byRef[caseID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t.m.cases[id]
	return &cp, nil
}

func (t *memTx) CreateCase(ctx context.Context, c *core.Case) error {
	if _, exists := t.m.byRef[c.CaseID]; exists {
		return fmt.Errorf("case %s: %w", c.CaseID, core.ErrCaseIDExists)
	}
	cp := *c
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	t.m.seq++
	t.m.cases[cp.ID] = &cp
	t.m.byRef[cp.CaseID] = cp.ID
	t.m.order[cp.ID] = t.m.seq
	return nil
}

func (t *memTx) UpdateCase(ctx context.Context, c *core.Case) error {
	id, ok := t.m.byRef[c.CaseID]
	if !ok {
		return core.ErrNotFound
	}
	existing := t.m.cases[id]
	cp := *c
	cp.ID = id
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	t.m.cases[id] = &cp
	return nil
}

func (t *memTx) AppendHistory(ctx context.Context, h *core.HistoryEntry) error {
	t.m.history[h.CaseRef] = append(t.m.history[h.CaseRef], *h)
	return nil
}
