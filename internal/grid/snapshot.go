package grid

// snapshot.go persists the grid session through an injected port so a
// half-edited import survives a restart. The store reads the port once at
// construction and writes after every mutation; swapping in a no-op or
// in-memory port keeps the core testable without touching disk.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caseflow/caseflow/internal/caserec"
)

// Snapshot is the serialized grid session.
type Snapshot struct {
	FileName string `json:"fileName"`
	NextID   int64  `json:"nextId"`
	Rows     []Row  `json:"rows"`
}

// SnapshotPort loads and saves grid sessions. Load returns (nil, nil) when
// no snapshot exists.
type SnapshotPort interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// FilePort stores the snapshot as a single JSON file.
type FilePort struct {
	Path string
}

// NewFilePort creates a file-backed snapshot port at path.
func NewFilePort(path string) *FilePort {
	return &FilePort{Path: path}
}

// Load reads the snapshot file, returning (nil, nil) if it does not exist.
func (p *FilePort) Load() (*Snapshot, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (p *FilePort) Save(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := p.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.Path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// saveLocked pushes the current state through the port. Snapshot failures
// are swallowed: losing a scratch copy must never break an edit.
func (s *Store) saveLocked() {
	if s.port == nil {
		return
	}
	snap := &Snapshot{
		FileName: s.fileName,
		NextID:   s.nextID,
		Rows:     make([]Row, 0, len(s.rows)),
	}
	for _, row := range s.rows {
		snap.Rows = append(snap.Rows, *row)
	}
	_ = s.port.Save(snap)
}

// restore rebuilds store state from a snapshot, revalidating every row so
// stale errors from an older rule set cannot survive a restart.
func (s *Store) restore(snap *Snapshot) {
	s.fileName = snap.FileName
	s.nextID = snap.NextID
	s.rows = make([]*Row, 0, len(snap.Rows))
	ids := make([]string, 0, len(snap.Rows))
	for i := range snap.Rows {
		row := snap.Rows[i]
		ids = append(ids, row.Data.CaseID)
		s.rows = append(s.rows, &row)
	}
	counts := caserec.CountIDs(ids)
	for _, row := range s.rows {
		row.revalidate()
		row.applyDuplicate(counts[row.Data.CaseID] > 1)
	}
	if len(s.rows) > 0 {
		s.progress = 100
	}
}
