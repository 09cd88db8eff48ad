package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resumes.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestFileStoreLoadsAndSearches(t *testing.T) {
	path := writeCorpus(t, `[
		{"resume_id": "r1", "candidate_name": "Ada", "embedding": [1, 0]},
		{"resume_id": "r2", "candidate_name": "Grace", "embedding": [0, 1]}
	]`)

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 resumes, got %d", s.Len())
	}

	hits, err := s.Search(context.Background(), []float64{1, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 || hits[0].ResumeID != "r1" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	resume, err := s.GetResume(context.Background(), "r2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resume.CandidateName != "Grace" {
		t.Fatalf("unexpected resume: %+v", resume)
	}

	if _, err := s.GetResume(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown resume")
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := writeCorpus(t, "")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty corpus, got %d", s.Len())
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	if _, err := NewFileStore(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFormatVector(t *testing.T) {
	got := formatVector([]float64{0.25, -1, 3})
	want := "[0.25,-1,3]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
