package outreach

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
)

func TestFileSourcePostings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postings.json")
	content := `[
		{"company_id": "acme", "company_name": "Acme Pty Ltd", "title": "Financial Planner", "link": "https://jobs/1"},
		{"company_id": "beta", "company_name": "Beta Group", "title": "Paraplanner", "link": "https://jobs/2"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs, err := NewFileSource(path).Postings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].CompanyName != "Acme Pty Ltd" || jobs[1].Link != "https://jobs/2" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestFileSourceEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postings.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs, err := NewFileSource(path).Postings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := NewFileSource("does-not-exist.json").Postings(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFilePublisherWritesDatedFile(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(dir)
	p.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }

	reports := []*Report{
		{Job: &matching.Job{CompanyName: "Acme Pty Ltd", Link: "https://jobs/1"}},
	}

	if err := p.Publish(context.Background(), reports); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "outreach-daily-2025-06-02.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []*Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Job.CompanyName != "Acme Pty Ltd" {
		t.Fatalf("unexpected reports: %+v", decoded)
	}
}

func TestFilePublisherOverwritesSameDay(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(dir)
	p.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }

	first := []*Report{
		{Job: &matching.Job{CompanyName: "Acme Pty Ltd"}},
		{Job: &matching.Job{CompanyName: "Beta Group"}},
	}
	second := []*Report{
		{Job: &matching.Job{CompanyName: "Gamma Co"}},
	}

	if err := p.Publish(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Publish(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "outreach-daily-2025-06-02.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []*Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Job.CompanyName != "Gamma Co" {
		t.Fatalf("expected the later run to win: %+v", decoded)
	}
}
