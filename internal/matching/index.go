package matching

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// Hit is one coarse-stage shortlist entry.
type Hit struct {
	ResumeID   string
	Similarity float64
}

// Index is a vector-similarity store of résumé embeddings. It is append-only
// from the matching pipeline's perspective; Add exists for the ingestion
// collaborator.
type Index interface {
	Add(ctx context.Context, resumeID string, embedding []float64) error
	Search(ctx context.Context, embedding []float64, topK int) ([]Hit, error)
}

// MemoryIndex is an exact in-memory Index using cosine similarity. At the
// corpus scale expected (thousands of résumés) a linear scan is plenty.
type MemoryIndex struct {
	mu         sync.RWMutex
	embeddings map[string][]float64
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{embeddings: make(map[string][]float64)}
}

// Add upserts the embedding for resumeID.
func (idx *MemoryIndex) Add(_ context.Context, resumeID string, embedding []float64) error {
	if resumeID == "" {
		return errors.New("resume id is required")
	}
	if len(embedding) == 0 {
		return errors.New("embedding is required")
	}

	stored := make([]float64, len(embedding))
	copy(stored, embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.embeddings[resumeID] = stored
	return nil
}

// Len returns the number of indexed résumés.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.embeddings)
}

// Search returns up to topK résumés ordered by descending cosine similarity
// to the query embedding. Equal similarities are ordered by resume id so the
// ranking is deterministic for an identical corpus snapshot.
func (idx *MemoryIndex) Search(_ context.Context, embedding []float64, topK int) ([]Hit, error) {
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	idx.mu.RLock()
	hits := make([]Hit, 0, len(idx.embeddings))
	for id, stored := range idx.embeddings {
		sim, err := cosineSimilarity(embedding, stored)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{ResumeID: id, Similarity: sim})
	}
	idx.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ResumeID < hits[j].ResumeID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.New("embedding dimension mismatch")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, errors.New("zero-magnitude embedding")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
