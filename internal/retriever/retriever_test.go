package retriever

import (
	"math"
	"testing"

	"github.com/kuzminvik/ragbench/internal/vectorstore"
)

func testStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	store, err := vectorstore.New([]vectorstore.Record{
		{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0}, Source: vectorstore.Source{DocumentID: "doc1"}},
		{ID: "b", Text: "bravo", Embedding: []float32{0.9, 0.1, 0}, Source: vectorstore.Source{DocumentID: "doc1"}},
		{ID: "c", Text: "charlie", Embedding: []float32{0, 1, 0}, Source: vectorstore.Source{DocumentID: "doc2"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRetrieve_OrdersBySimilarity(t *testing.T) {
	r := New(testStore(t))

	got := r.Retrieve([]float32{1, 0, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Record.ID != "a" {
		t.Errorf("expected best match a, got %s", got[0].Record.ID)
	}
	if math.Abs(got[0].Similarity-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0 for identical vector, got %f", got[0].Similarity)
	}
	if got[1].Record.ID != "b" {
		t.Errorf("expected second match b, got %s", got[1].Record.ID)
	}
	if got[1].Similarity <= 0.99 || got[1].Similarity >= 1.0 {
		t.Errorf("unexpected similarity for b: %f", got[1].Similarity)
	}
}

func TestRetrieve_ClampsTopK(t *testing.T) {
	r := New(testStore(t))

	got := r.Retrieve([]float32{1, 0, 0}, 100)
	if len(got) != 3 {
		t.Errorf("expected all 3 candidates, got %d", len(got))
	}
}

func TestRetrieve_NonPositiveTopK(t *testing.T) {
	r := New(testStore(t))

	if got := r.Retrieve([]float32{1, 0, 0}, 0); got != nil {
		t.Errorf("expected nil for topK=0, got %v", got)
	}
	if got := r.Retrieve([]float32{1, 0, 0}, -1); got != nil {
		t.Errorf("expected nil for negative topK, got %v", got)
	}
}

func TestRetrieve_TiesKeepInsertionOrder(t *testing.T) {
	store, err := vectorstore.New([]vectorstore.Record{
		{ID: "first", Text: "x", Embedding: []float32{0, 1}},
		{ID: "second", Text: "y", Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := New(store)

	got := r.Retrieve([]float32{0, 1}, 2)
	if got[0].Record.ID != "first" || got[1].Record.ID != "second" {
		t.Errorf("expected insertion order on ties, got %s, %s", got[0].Record.ID, got[1].Record.ID)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
