package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
)

// fileResume is one entry of the résumé corpus file.
type fileResume struct {
	matching.Resume
	Embedding []float64 `json:"embedding"`
}

// FileStore serves a résumé corpus loaded from a JSON file, for local runs
// without a database. It backs both the embedding index and résumé lookups.
type FileStore struct {
	index   *matching.MemoryIndex
	resumes map[string]*matching.Resume
}

var (
	_ matching.Index       = (*FileStore)(nil)
	_ matching.ResumeStore = (*FileStore)(nil)
)

// NewFileStore loads the corpus file and indexes every embedded résumé.
func NewFileStore(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resumes file: %w", err)
	}

	var entries []*fileResume
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode resumes file: %w", err)
		}
	}

	s := &FileStore{
		index:   matching.NewMemoryIndex(),
		resumes: make(map[string]*matching.Resume, len(entries)),
	}

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if err := s.index.Add(context.Background(), entry.ResumeID, entry.Embedding); err != nil {
			return nil, fmt.Errorf("index resume %q: %w", entry.ResumeID, err)
		}
		resume := entry.Resume
		s.resumes[entry.ResumeID] = &resume
	}

	return s, nil
}

// Add indexes an embedding. Added entries live only for the process lifetime.
func (s *FileStore) Add(ctx context.Context, resumeID string, embedding []float64) error {
	return s.index.Add(ctx, resumeID, embedding)
}

// Search delegates to the in-memory index.
func (s *FileStore) Search(ctx context.Context, embedding []float64, topK int) ([]matching.Hit, error) {
	return s.index.Search(ctx, embedding, topK)
}

// GetResume returns the résumé record for the given id.
func (s *FileStore) GetResume(_ context.Context, resumeID string) (*matching.Resume, error) {
	resume, ok := s.resumes[resumeID]
	if !ok {
		return nil, fmt.Errorf("resume not found: %s", resumeID)
	}
	return resume, nil
}

// Len reports the corpus size.
func (s *FileStore) Len() int {
	return len(s.resumes)
}
