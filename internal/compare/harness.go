// Package compare runs a retrieval-augmented answer path and a plain
// generation path concurrently and produces a structured comparison.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kuzminvik/ragbench/internal/assembler"
	"github.com/kuzminvik/ragbench/internal/embedder"
	"github.com/kuzminvik/ragbench/internal/llm"
	"github.com/kuzminvik/ragbench/internal/reranker"
	"github.com/kuzminvik/ragbench/internal/retriever"
)

var (
	// ErrEmptyQuery is returned when Compare is called with a blank query.
	ErrEmptyQuery = errors.New("compare: empty query")

	// ErrBothPathsFailed is returned when neither path produced an answer.
	ErrBothPathsFailed = errors.New("compare: both paths failed")
)

// Recorder persists comparison records. Implementations must not block
// or fail the caller; recording is a best-effort side channel.
type Recorder interface {
	Record(rec Record)
}

const (
	// DefaultTopK is how many candidates the RAG path retrieves before
	// reranking.
	DefaultTopK = 10

	// DefaultMaxContextChars bounds the assembled context block.
	DefaultMaxContextChars = 4000

	// DefaultPathTimeout bounds each of the two paths independently.
	DefaultPathTimeout = 60 * time.Second

	// DefaultTemperature keeps answers factual on both paths.
	DefaultTemperature = 0.3

	// DefaultMaxTokens caps answer length on both paths.
	DefaultMaxTokens = 1024

	defaultSystemPrompt = "You are a helpful assistant. When context documents are " +
		"provided, answer from them and cite them as [Doc N]. Say so when they do " +
		"not cover the question."
)

// Options configure a Harness.
type Options struct {
	// TopK is the retrieval fan-out before reranking (default: 10).
	TopK int

	// MaxContextChars bounds the assembled context (default: 4000).
	MaxContextChars int

	// PathTimeout bounds each path independently (default: 60s).
	PathTimeout time.Duration

	// RAGModel and DirectModel override each path's client default.
	RAGModel    string
	DirectModel string

	// SystemPrompt overrides the RAG path's system instructions.
	SystemPrompt string

	// Temperature and MaxTokens apply to both generation calls.
	Temperature float64
	MaxTokens   int
}

// HarnessOption is a functional option for configuring a Harness.
type HarnessOption func(*Harness)

// WithRecorder sets the comparison recorder.
func WithRecorder(rec Recorder) HarnessOption {
	return func(h *Harness) {
		h.recorder = rec
	}
}

// WithLogger sets the harness logger.
func WithLogger(logger *slog.Logger) HarnessOption {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Harness orchestrates the two answer paths. The paths share no
// mutable state: each goroutine writes only its own result slot.
type Harness struct {
	embedder  embedder.Embedder
	retriever *retriever.Retriever
	reranker  *reranker.Reranker
	ragLLM    llm.LLM
	directLLM llm.LLM
	recorder  Recorder
	opts      Options
	logger    *slog.Logger
}

// NewHarness creates a comparison harness. The vector store is already
// bound inside the retriever, so fixture stores can be injected in
// tests without process-wide state.
func NewHarness(
	emb embedder.Embedder,
	ret *retriever.Retriever,
	rr *reranker.Reranker,
	ragLLM llm.LLM,
	directLLM llm.LLM,
	opts Options,
	hopts ...HarnessOption,
) *Harness {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = DefaultMaxContextChars
	}
	if opts.PathTimeout <= 0 {
		opts.PathTimeout = DefaultPathTimeout
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}

	h := &Harness{
		embedder:  emb,
		retriever: ret,
		reranker:  rr,
		ragLLM:    ragLLM,
		directLLM: directLLM,
		opts:      opts,
		logger:    slog.Default(),
	}
	for _, opt := range hopts {
		opt(h)
	}
	return h
}

// ragOutcome bundles the RAG path's result with its retrieval metadata.
type ragOutcome struct {
	outcome   PathOutcome
	sources   []Source
	relevance float64
	degraded  bool
	dropped   int
}

// Compare runs both answer paths concurrently and returns a record
// capturing each path's outcome independently. A failure or timeout in
// one path never cancels or invalidates the other; Compare itself
// errors only on an empty query, on overall cancellation, or when both
// paths failed.
func (h *Harness) Compare(ctx context.Context, query string, mode reranker.Mode) (*Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var (
		wg     sync.WaitGroup
		rag    ragOutcome
		direct PathOutcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rag = h.runRAGPath(ctx, query, mode)
	}()
	go func() {
		defer wg.Done()
		direct = h.runDirectPath(ctx, query)
	}()
	wg.Wait()

	// A cancelled comparison records nothing rather than a half-formed
	// record.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rag.outcome.Failed() && direct.Failed() {
		return nil, fmt.Errorf("%w: rag: %s; direct: %s", ErrBothPathsFailed, rag.outcome.Error, direct.Error)
	}

	rec := &Record{
		ID:             uuid.NewString(),
		Query:          query,
		RAG:            rag.outcome,
		Direct:         direct,
		Sources:        rag.sources,
		Relevance:      rag.relevance,
		RerankDegraded: rag.degraded,
		RerankDropped:  rag.dropped,
		LatencyDeltaMs: rag.outcome.LatencyMs - direct.LatencyMs,
		Timestamp:      time.Now().UTC(),
	}

	if h.recorder != nil {
		h.recorder.Record(*rec)
	}

	h.logger.Info("comparison completed",
		"record_id", rec.ID,
		"mode", mode.String(),
		"rag_latency_ms", rec.RAG.LatencyMs,
		"direct_latency_ms", rec.Direct.LatencyMs,
		"sources", len(rec.Sources),
		"relevance", rec.Relevance,
	)

	return rec, nil
}

// runRAGPath executes embed -> retrieve -> rerank -> assemble ->
// generate under its own timeout. Any failure aborts only this path.
func (h *Harness) runRAGPath(ctx context.Context, query string, mode reranker.Mode) ragOutcome {
	ctx, cancel := context.WithTimeout(ctx, h.opts.PathTimeout)
	defer cancel()
	start := time.Now()

	queryVec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return ragOutcome{outcome: failedOutcome(
			fmt.Errorf("embedding query: %w", err),
			time.Since(start),
			h.ragModel(),
		)}
	}

	candidates := h.retriever.Retrieve(queryVec, h.opts.TopK)
	reranked := h.reranker.Rerank(ctx, query, candidates, mode)
	if reranked.Degraded {
		h.logger.Warn("strict rerank unreachable, degraded to light mode", "query", query)
	}

	out := ragOutcome{
		degraded: reranked.Degraded,
		dropped:  reranked.Dropped,
	}
	out.sources, out.relevance = summarizeSources(reranked.Candidates)

	assembled := assembler.Assemble(reranked.Candidates, h.opts.MaxContextChars)

	result, err := h.ragLLM.Generate(ctx, assembled.Prompt(query), llm.GenerateOptions{
		Model:        h.opts.RAGModel,
		SystemPrompt: h.opts.SystemPrompt,
		Temperature:  h.opts.Temperature,
		MaxTokens:    h.opts.MaxTokens,
	})
	latency := time.Since(start)
	if err != nil {
		out.outcome = failedOutcome(err, latency, h.ragModel())
		return out
	}

	out.outcome = PathOutcome{
		Answer:       result.Text,
		LatencyMs:    latency.Milliseconds(),
		Model:        modelOr(result.Model, h.ragModel()),
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	}
	return out
}

// runDirectPath generates an answer for the bare query under its own
// timeout.
func (h *Harness) runDirectPath(ctx context.Context, query string) PathOutcome {
	ctx, cancel := context.WithTimeout(ctx, h.opts.PathTimeout)
	defer cancel()
	start := time.Now()

	result, err := h.directLLM.Generate(ctx, query, llm.GenerateOptions{
		Model:       h.opts.DirectModel,
		Temperature: h.opts.Temperature,
		MaxTokens:   h.opts.MaxTokens,
	})
	latency := time.Since(start)
	if err != nil {
		return failedOutcome(err, latency, h.directModel())
	}

	return PathOutcome{
		Answer:       result.Text,
		LatencyMs:    latency.Milliseconds(),
		Model:        modelOr(result.Model, h.directModel()),
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	}
}

// summarizeSources converts the surviving reranked candidates into
// cited sources and their mean relevance (0 when none survived).
func summarizeSources(candidates []reranker.Scored) ([]Source, float64) {
	if len(candidates) == 0 {
		return nil, 0
	}
	sources := make([]Source, len(candidates))
	var sum float64
	for i, cand := range candidates {
		sources[i] = Source{
			Citation:  assembler.Citation(cand.Record),
			Relevance: cand.Score,
		}
		sum += cand.Score
	}
	return sources, sum / float64(len(candidates))
}

// failedOutcome turns a path error into its explicit marker, keeping
// timeouts distinguishable from other failures.
func failedOutcome(err error, latency time.Duration, model string) PathOutcome {
	out := PathOutcome{
		Error:     err.Error(),
		LatencyMs: latency.Milliseconds(),
		Model:     model,
	}
	if errors.Is(err, context.DeadlineExceeded) {
		out.TimedOut = true
		out.Error = "generation timed out"
	}
	return out
}

func (h *Harness) ragModel() string {
	if h.opts.RAGModel != "" {
		return h.opts.RAGModel
	}
	return h.ragLLM.ModelName()
}

func (h *Harness) directModel() string {
	if h.opts.DirectModel != "" {
		return h.opts.DirectModel
	}
	return h.directLLM.ModelName()
}

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
