// Package retriever ranks stored chunk embeddings against a query
// vector by cosine similarity.
package retriever

import (
	"math"
	"sort"

	"github.com/kuzminvik/ragbench/internal/vectorstore"
)

// Candidate is one retrieval hit: a stored record and its cosine
// similarity to the query vector.
type Candidate struct {
	Record     vectorstore.Record
	Similarity float64
}

// Retriever performs a full-scan similarity search over a store. The
// scan is O(store size) per query, which is the right trade for the
// store sizes this service holds in memory.
type Retriever struct {
	store *vectorstore.Store
}

// New creates a retriever over the given store.
func New(store *vectorstore.Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns the topK most similar records, ordered by
// descending similarity. Equal scores keep the store's insertion
// order, so results are deterministic for a given snapshot. topK
// larger than the store is clamped; topK <= 0 yields no candidates.
func (r *Retriever) Retrieve(queryVec []float32, topK int) []Candidate {
	if topK <= 0 {
		return nil
	}

	candidates := make([]Candidate, 0, r.store.Len())
	for rec := range r.store.All() {
		candidates = append(candidates, Candidate{
			Record:     rec,
			Similarity: CosineSimilarity(queryVec, rec.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. A zero-magnitude vector (or a length mismatch) yields 0 by
// definition rather than an error, so degenerate inputs never abort a
// search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
