// Package lead persists completed interviews as an append-only JSON
// collection on disk.
package lead

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one captured lead: the collected field snapshot plus the
// capture timestamp. Immutable once created.
type Record struct {
	ID         string            `json:"id"`
	Fields     map[string]string `json:"fields"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewRecord snapshots the given fields into a fresh record.
func NewRecord(fields map[string]string) Record {
	snap := make(map[string]string, len(fields))
	for k, v := range fields {
		snap[k] = v
	}
	return Record{
		ID:         uuid.NewString(),
		Fields:     snap,
		CapturedAt: time.Now().UTC(),
	}
}

// PersistenceError wraps a store read or write failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("lead store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is an append-only record collection backed by a flat JSON array
// file. Appends are serialized by a mutex: sessions persist records
// independently, and an unguarded read-modify-write would silently drop
// concurrent writes. A missing or corrupt file reads as an empty
// collection, never as a fatal error.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (or lazily creates, on first append) the collection at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads every record in the collection.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Corrupt collections start over rather than wedge the agent.
		return []Record{}, nil
	}
	return records, nil
}

// Append adds one record to the collection. The whole read-append-rewrite
// runs under the store lock, and the rewrite goes through a temp file
// plus rename so a crash mid-write cannot corrupt the collection.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".leads-*.json")
	if err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}
