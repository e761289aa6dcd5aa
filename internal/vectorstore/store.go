// Package vectorstore provides an in-memory, load-once collection of
// pre-computed chunk embeddings with metadata.
//
// The store is read-only during query serving and safe for any number
// of concurrent readers. Reload swaps a whole new snapshot atomically,
// so in-flight readers keep seeing a consistent view.
package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync/atomic"
)

// LoadError indicates the store source was unreadable, malformed, or
// contained embeddings of inconsistent dimension. A load either fully
// succeeds or the store is considered absent; partial state is never
// exposed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("vectorstore: load failed: %v", e.Err)
	}
	return fmt.Sprintf("vectorstore: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source identifies where a chunk came from.
type Source struct {
	DocumentID string `json:"document_id"`
	Section    string `json:"section,omitempty"`
}

// Record is a single chunk with its pre-computed embedding. Records
// are immutable after load.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Source    Source    `json:"source"`
}

// storeFile is the on-disk representation written by the ingestion job.
type storeFile struct {
	Name      string   `json:"name,omitempty"`
	Dimension int      `json:"dimension,omitempty"`
	Chunks    []Record `json:"chunks"`
}

// snapshot is one immutable view of the store contents.
type snapshot struct {
	records   []Record
	byID      map[string]int
	dimension int
}

// Store holds the records loaded from one source. Reload is the only
// writer and replaces the snapshot pointer atomically.
type Store struct {
	snap atomic.Pointer[snapshot]
}

// New builds a store from in-memory records, applying the same
// validation as Load. Intended for fixture stores in tests and tools.
func New(records []Record) (*Store, error) {
	snap, err := buildSnapshot(records, 0)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	s := &Store{}
	s.snap.Store(snap)
	return s, nil
}

// Load reads a store file and returns a fully validated store.
func Load(path string) (*Store, error) {
	snap, err := loadSnapshot(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	s := &Store{}
	s.snap.Store(snap)
	return s, nil
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding store file: %w", err)
	}
	return buildSnapshot(file.Chunks, file.Dimension)
}

func buildSnapshot(records []Record, declaredDim int) (*snapshot, error) {
	if len(records) == 0 && declaredDim <= 0 {
		return nil, errors.New("empty store without a declared dimension")
	}
	dim := declaredDim
	byID := make(map[string]int, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("record %d has an empty id", i)
		}
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate record id %q", rec.ID)
		}
		if len(rec.Embedding) == 0 {
			return nil, fmt.Errorf("record %q has an empty embedding", rec.ID)
		}
		if dim == 0 {
			dim = len(rec.Embedding)
		}
		if len(rec.Embedding) != dim {
			return nil, fmt.Errorf("record %q has dimension %d, want %d", rec.ID, len(rec.Embedding), dim)
		}
		byID[rec.ID] = i
	}

	// Own a copy of the slice so callers cannot reorder the snapshot
	// through the slice they passed in.
	owned := make([]Record, len(records))
	copy(owned, records)

	return &snapshot{records: owned, byID: byID, dimension: dim}, nil
}

// Len returns the number of records in the current snapshot.
func (s *Store) Len() int { return len(s.snap.Load().records) }

// Dimension returns the embedding dimension shared by every record.
func (s *Store) Dimension() int { return s.snap.Load().dimension }

// Lookup returns the record with the given ID.
func (s *Store) Lookup(id string) (Record, bool) {
	snap := s.snap.Load()
	i, ok := snap.byID[id]
	if !ok {
		return Record{}, false
	}
	return snap.records[i], true
}

// All iterates the records in insertion order. Each call starts an
// independent iteration over the snapshot current at call time; the
// sequence is finite and restartable.
func (s *Store) All() iter.Seq[Record] {
	snap := s.snap.Load()
	return func(yield func(Record) bool) {
		for _, rec := range snap.records {
			if !yield(rec) {
				return
			}
		}
	}
}

// Save writes the current snapshot in the store file format. The data
// goes to a temp file first and is renamed into place, so a crash
// never leaves a half-written store behind.
func (s *Store) Save(path string) error {
	snap := s.snap.Load()
	data, err := json.MarshalIndent(storeFile{
		Dimension: snap.dimension,
		Chunks:    snap.records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".store-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Reload loads a new snapshot from path and swaps it in atomically. A
// snapshot with a different embedding dimension is rejected, since the
// embedding client validates vectors against the dimension observed at
// startup. On any failure the previous snapshot remains live.
func (s *Store) Reload(path string) error {
	snap, err := loadSnapshot(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	if cur := s.snap.Load(); cur != nil && snap.dimension != cur.dimension {
		return &LoadError{
			Path: path,
			Err:  fmt.Errorf("dimension changed from %d to %d", cur.dimension, snap.dimension),
		}
	}
	s.snap.Store(snap)
	return nil
}
