// Package metrics persists comparison outcomes to a durable,
// append-only history for offline analysis.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kuzminvik/ragbench/internal/compare"
)

// Sink is the append target for comparison records.
type Sink interface {
	Append(ctx context.Context, rec compare.Record) error
}

// DefaultQueueSize bounds the number of records waiting to be written.
const DefaultQueueSize = 64

// appendTimeout bounds a single sink append so a stuck sink cannot
// wedge the writer goroutine forever.
const appendTimeout = 10 * time.Second

// Recorder serializes appends through a single writer goroutine, so
// concurrent comparisons never interleave records in the history.
// Recording is best-effort: a full queue drops the record and a failed
// append is logged, never surfaced to the caller.
type Recorder struct {
	sink      Sink
	queue     chan compare.Record
	logger    *slog.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(sink Sink, queueSize int, logger *slog.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		sink:   sink,
		queue:  make(chan compare.Record, queueSize),
		logger: logger,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := r.sink.Append(ctx, rec); err != nil {
			r.logger.Error("failed to append comparison record",
				"record_id", rec.ID,
				"error", err,
			)
		}
		cancel()
	}
}

// Record enqueues a comparison record without blocking the caller.
func (r *Recorder) Record(rec compare.Record) {
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("metrics queue full, dropping comparison record", "record_id", rec.ID)
	}
}

// Close drains outstanding records and stops the writer. Record must
// not be called after Close.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

// Ensure Recorder satisfies the harness's recorder contract.
var _ compare.Recorder = (*Recorder)(nil)
