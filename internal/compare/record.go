package compare

import "time"

// PathOutcome captures one generation path's result: either an answer
// or an explicit error/timeout marker, plus the observed latency. A
// failed path never surfaces as a bare error to the end user.
type PathOutcome struct {
	Answer       string `json:"answer,omitempty"`
	Error        string `json:"error,omitempty"`
	TimedOut     bool   `json:"timed_out,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Failed reports whether the path produced no answer.
func (p PathOutcome) Failed() bool { return p.Error != "" }

// Source is one cited chunk with its final relevance score.
type Source struct {
	Citation  string  `json:"citation"`
	Relevance float64 `json:"relevance"`
}

// Record is the structured outcome of one comparison. It is created
// once per Compare call, appended to the metrics history, and never
// mutated afterwards.
type Record struct {
	ID             string      `json:"id"`
	Query          string      `json:"query"`
	RAG            PathOutcome `json:"rag"`
	Direct         PathOutcome `json:"direct"`
	Sources        []Source    `json:"sources,omitempty"`
	Relevance      float64     `json:"relevance"`
	RerankDegraded bool        `json:"rerank_degraded,omitempty"`
	RerankDropped  int         `json:"rerank_dropped,omitempty"`
	LatencyDeltaMs int64       `json:"latency_delta_ms"`
	Timestamp      time.Time   `json:"timestamp"`
}
