package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
)

// FileSource reads normalized job postings from a JSON file, for runs fed by
// an external scraper's export.
type FileSource struct {
	path string
}

// NewFileSource creates a Source reading from the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Postings decodes the postings file. An empty file yields no postings.
func (s *FileSource) Postings(_ context.Context) ([]*matching.Job, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open postings file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, nil
	}

	var jobs []*matching.Job
	if err := json.NewDecoder(file).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("decode postings file: %w", err)
	}
	return jobs, nil
}

// FilePublisher writes reports to a dated JSON file for the downstream
// sheet-writing step to pick up.
type FilePublisher struct {
	dir string

	now func() time.Time
}

// NewFilePublisher creates a Publisher writing into dir.
func NewFilePublisher(dir string) *FilePublisher {
	return &FilePublisher{dir: dir, now: time.Now}
}

// Publish writes the reports to outreach-daily-YYYY-MM-DD.json inside the
// configured directory, overwriting any file from an earlier run that day.
func (p *FilePublisher) Publish(_ context.Context, reports []*Report) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("%s/outreach-daily-%s.json", p.dir, p.now().Format("2006-01-02"))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	return nil
}
