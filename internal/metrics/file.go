package metrics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kuzminvik/ragbench/internal/compare"
)

// FileSink appends comparison records to a JSON Lines file, one record
// per line, newest last. The mutex guards against interleaved writes
// should more than one recorder ever share a sink.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a sink appending to path. The file is created on
// first append.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Append writes one record as a JSON line at the end of the file.
func (s *FileSink) Append(ctx context.Context, rec compare.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return nil
}

// List reads the history back in append order, oldest first. When
// limit > 0 only the newest limit records are returned (still oldest
// first). A missing file is an empty history, not an error.
func (s *FileSink) List(ctx context.Context, limit int) ([]compare.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []compare.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec compare.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt history line: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Ensure FileSink implements Sink.
var _ Sink = (*FileSink)(nil)
