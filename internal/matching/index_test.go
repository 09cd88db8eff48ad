package matching

import (
	"context"
	"testing"
)

func TestMemoryIndexSearchOrdersByDescendingSimilarity(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	vectors := map[string][]float64{
		"r-exact":      {1, 0, 0},
		"r-close":      {0.9, 0.1, 0},
		"r-far":        {0, 1, 0},
		"r-orthogonal": {0, 0, 1},
	}
	for id, v := range vectors {
		if err := idx.Add(ctx, id, v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	hits, err := idx.Search(ctx, []float64{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ResumeID != "r-exact" {
		t.Fatalf("expected r-exact first, got %q", hits[0].ResumeID)
	}
	if hits[1].ResumeID != "r-close" {
		t.Fatalf("expected r-close second, got %q", hits[1].ResumeID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity {
			t.Fatalf("hits not in descending order: %+v", hits)
		}
	}
}

func TestMemoryIndexSearchDeterministicTieBreak(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	// Identical vectors tie on similarity; order must fall back to resume id.
	for _, id := range []string{"r-b", "r-a", "r-c"} {
		if err := idx.Add(ctx, id, []float64{1, 1, 0}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for run := 0; run < 5; run++ {
		hits, err := idx.Search(ctx, []float64{1, 1, 0}, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"r-a", "r-b", "r-c"}
		for i, id := range want {
			if hits[i].ResumeID != id {
				t.Fatalf("run %d: expected %v, got %+v", run, want, hits)
			}
		}
	}
}

func TestMemoryIndexSearchRespectsTopK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := idx.Add(ctx, id, []float64{1, float64(len(id))}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	hits, err := idx.Search(ctx, []float64{1, 1}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
}

func TestMemoryIndexAddUpserts(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Add(ctx, "r1", []float64{1, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := idx.Add(ctx, "r1", []float64{0, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected a single entry after upsert, got %d", idx.Len())
	}

	hits, err := idx.Search(ctx, []float64{0, 1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits[0].Similarity < 0.99 {
		t.Fatalf("expected updated embedding to match query, got %+v", hits[0])
	}
}

func TestMemoryIndexSearchEmptyCorpus(t *testing.T) {
	idx := NewMemoryIndex()

	hits, err := idx.Search(context.Background(), []float64{1, 0}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestMemoryIndexRejectsDimensionMismatchSilently(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.Add(ctx, "r1", []float64{1, 0, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := idx.Add(ctx, "r2", []float64{1, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, err := idx.Search(ctx, []float64{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ResumeID != "r1" {
		t.Fatalf("expected only the matching-dimension resume, got %+v", hits)
	}
}
