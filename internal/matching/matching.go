// Package matching ranks candidate résumés against a job posting using a
// two-stage search: coarse vector retrieval followed by a precise re-rank.
package matching

import (
	"context"
	"time"
)

const (
	// DefaultMatchThreshold is the minimum re-rank score a candidate needs
	// to be surfaced to callers.
	DefaultMatchThreshold = 85
	// DefaultTopK is the size of the coarse vector shortlist.
	DefaultTopK = 20
	// DefaultMaxCandidates bounds the final result per job posting.
	DefaultMaxCandidates = 3
)

// Job is a normalized job posting. It is an immutable input owned by the
// scraping collaborator.
type Job struct {
	CompanyID    string    `json:"company_id"`
	CompanyName  string    `json:"company_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Requirements []string  `json:"requirements"`
	Link         string    `json:"link"`
	PostedAt     time.Time `json:"posted_at"`
}

// Resume is a normalized candidate résumé owned by the ingestion collaborator.
type Resume struct {
	ResumeID        string   `json:"resume_id"`
	CandidateName   string   `json:"candidate_name"`
	Text            string   `json:"text"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
}

// Candidate is a shortlisted résumé carrying its coarse-stage similarity and
// original vector rank, used for deterministic tie-breaking in the re-rank.
type Candidate struct {
	Resume
	Similarity float64
	Rank       int
}

// MatchResult is one accepted candidate for a job posting.
type MatchResult struct {
	ResumeID      string   `json:"resume_id"`
	CandidateName string   `json:"candidate_name"`
	MatchScore    int      `json:"match_score"`
	Reasons       []string `json:"reasons"`
	Summary       string   `json:"summary"`
}

// Embedder turns text into a fixed-length vector. Assumed deterministic for
// identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ResumeStore resolves a shortlisted resume id to the full résumé.
type ResumeStore interface {
	GetResume(ctx context.Context, resumeID string) (*Resume, error)
}

// Reranker produces calibrated 0-100 scores for the shortlist. It is the
// source of truth for acceptance: vector similarity captures topical overlap
// only, so the reranker must independently validate hard requirements and
// down-score candidates that fail them. Implementations return results sorted
// descending by score, ties broken by original vector rank, and retain only
// entries at or above the threshold.
type Reranker interface {
	Rerank(ctx context.Context, job *Job, candidates []*Candidate, threshold int) ([]*MatchResult, error)
}
