// Package reranker re-scores retrieval candidates before context assembly.
//
// Two modes are supported:
//
//   - Light: a cheap, local re-score blending the vector similarity
//     with lexical overlap between query and chunk. It never calls an
//     external service and always succeeds.
//   - Strict: a cross-encoder-like pass that asks the generation
//     service to judge each candidate's relevance. It is slower and
//     more expensive, but far better when the top vector scores are
//     close together.
//
// Strict mode degrades gracefully: a candidate whose scoring call
// fails is dropped and counted, and if the scoring service is
// unreachable altogether the reranker falls back to Light and marks
// the result degraded.
package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kuzminvik/ragbench/internal/llm"
	"github.com/kuzminvik/ragbench/internal/retriever"
)

// Mode selects the reranking strategy. The set is closed: exactly
// these two strategies implement the rerank contract.
type Mode int

const (
	// ModeLight blends vector similarity with lexical overlap, locally.
	ModeLight Mode = iota

	// ModeStrict scores each candidate with a generation-service call.
	ModeStrict
)

// String returns the mode's wire name.
func (m Mode) String() string {
	switch m {
	case ModeLight:
		return "light"
	case ModeStrict:
		return "strict"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode's wire name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "light":
		return ModeLight, nil
	case "strict":
		return ModeStrict, nil
	default:
		return 0, fmt.Errorf("unknown rerank mode %q", s)
	}
}

// Scored is a retrieval candidate with its final relevance score. The
// order Scored values appear in a Result is the presentation order.
type Scored struct {
	retriever.Candidate
	Score float64
}

// Result is the outcome of one rerank pass. Candidates is always a
// subset of the input; Dropped counts candidates lost to failed
// scoring calls; Degraded marks a strict pass that fell back to light.
type Result struct {
	Candidates []Scored
	Degraded   bool
	Dropped    int
}

const (
	// DefaultMinScore is the relevance cutoff below which candidates
	// are excluded. It is a tuning knob, not an invariant.
	DefaultMinScore = 0.6

	// DefaultLightKeep is how many candidates light mode keeps.
	DefaultLightKeep = 5

	// DefaultStrictKeep is how many candidates strict mode keeps.
	DefaultStrictKeep = 2

	// DefaultScoreTimeout bounds a single strict-mode scoring call.
	DefaultScoreTimeout = 20 * time.Second

	// DefaultScoreConcurrency is the number of concurrent scoring calls.
	DefaultScoreConcurrency = 4

	// Weights for the light-mode blend of vector similarity and
	// lexical overlap.
	lightSimilarityWeight = 0.7
	lightOverlapWeight    = 0.3
)

// Config holds tuning knobs for a Reranker.
type Config struct {
	// MinScore excludes candidates scoring below it (default: 0.6).
	MinScore float64

	// LightKeep caps light-mode output (default: 5).
	LightKeep int

	// StrictKeep caps strict-mode output (default: 2).
	StrictKeep int

	// ScoreTimeout bounds each strict scoring call (default: 20s).
	ScoreTimeout time.Duration

	// Concurrency is the number of in-flight scoring calls (default: 4).
	Concurrency int

	// Model overrides the scoring model for strict mode.
	Model string
}

// Reranker re-scores and filters retrieval candidates.
type Reranker struct {
	llmClient llm.LLM
	cfg       Config
	logger    *slog.Logger
}

// New creates a reranker. The llm client is only used by strict mode.
func New(llmClient llm.LLM, cfg Config, logger *slog.Logger) *Reranker {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.LightKeep <= 0 {
		cfg.LightKeep = DefaultLightKeep
	}
	if cfg.StrictKeep <= 0 {
		cfg.StrictKeep = DefaultStrictKeep
	}
	if cfg.ScoreTimeout <= 0 {
		cfg.ScoreTimeout = DefaultScoreTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultScoreConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{llmClient: llmClient, cfg: cfg, logger: logger}
}

// Rerank re-scores the candidates with the given mode. It never fails:
// light mode is local, and a systemically unreachable strict scorer
// falls back to light with the result marked degraded.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []retriever.Candidate, mode Mode) Result {
	if len(candidates) == 0 {
		return Result{}
	}
	switch mode {
	case ModeStrict:
		return r.rerankStrict(ctx, query, candidates)
	default:
		return r.rerankLight(query, candidates)
	}
}

// rerankLight blends the vector similarity with the Jaccard overlap
// between the query's and the chunk's token sets.
func (r *Reranker) rerankLight(query string, candidates []retriever.Candidate) Result {
	queryTokens := tokenize(query)

	scored := make([]Scored, len(candidates))
	for i, cand := range candidates {
		overlap := jaccardSimilarity(queryTokens, tokenize(cand.Record.Text))
		scored[i] = Scored{
			Candidate: cand,
			Score:     lightSimilarityWeight*cand.Similarity + lightOverlapWeight*overlap,
		}
	}

	return Result{Candidates: r.finalize(scored, r.cfg.LightKeep)}
}

// rerankStrict asks the generation service for a relevance judgment
// per candidate. Per-candidate failures drop that candidate only; if
// every call fails the scorer is treated as unreachable and the pass
// degrades to light mode.
func (r *Reranker) rerankStrict(ctx context.Context, query string, candidates []retriever.Candidate) Result {
	scored := make([]Scored, len(candidates))
	failed := make([]bool, len(candidates))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.cfg.Concurrency)

	for i, cand := range candidates {
		wg.Add(1)
		go func(idx int, cand retriever.Candidate) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				failed[idx] = true
				return
			}

			score, err := r.scoreCandidate(ctx, query, cand.Record.Text)
			if err != nil {
				failed[idx] = true
				r.logger.Warn("strict rerank scoring failed, dropping candidate",
					"record_id", cand.Record.ID,
					"error", err,
				)
				return
			}
			scored[idx] = Scored{Candidate: cand, Score: score}
		}(i, cand)
	}
	wg.Wait()

	kept := make([]Scored, 0, len(candidates))
	dropped := 0
	for i := range scored {
		if failed[i] {
			dropped++
			continue
		}
		kept = append(kept, scored[i])
	}

	if dropped == len(candidates) {
		// Every call failed: the scorer is unreachable, not flaky on
		// one candidate. Fall back to the local mode.
		result := r.rerankLight(query, candidates)
		result.Degraded = true
		return result
	}

	return Result{Candidates: r.finalize(kept, r.cfg.StrictKeep), Dropped: dropped}
}

// scoreCandidate runs one bounded scoring call and parses the scalar
// relevance judgment out of the response.
func (r *Reranker) scoreCandidate(ctx context.Context, query, text string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ScoreTimeout)
	defer cancel()

	result, err := r.llmClient.Generate(ctx, buildScoringPrompt(query, text), llm.GenerateOptions{
		Model:       r.cfg.Model,
		Temperature: 0, // Deterministic scoring
		MaxTokens:   8,
	})
	if err != nil {
		return 0, err
	}

	score, err := parseScore(result.Text)
	if err != nil {
		return 0, fmt.Errorf("parsing relevance score: %w", err)
	}
	return score, nil
}

// finalize sorts by final score (descending, input order on ties),
// applies the relevance cutoff, and caps the output. The active mode's
// score always wins: the original vector similarity plays no part in
// the final order.
func (r *Reranker) finalize(scored []Scored, keep int) []Scored {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	out := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Score < r.cfg.MinScore {
			continue
		}
		out = append(out, s)
	}
	if len(out) > keep {
		out = out[:keep]
	}
	return out
}
