package matching

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// MatchThreshold is the minimum accepted re-rank score. Defaults to 85.
	MatchThreshold int
	// TopK is the coarse shortlist size. Defaults to 20.
	TopK int
}

// PipelineDeps aggregates the pipeline's collaborators.
type PipelineDeps struct {
	Embedder Embedder
	Index    Index
	Resumes  ResumeStore
	Reranker Reranker
	Logger   *zap.Logger
}

// Pipeline orchestrates the two-stage match: embed the job description,
// shortlist by vector proximity, resolve full résumés, then re-rank.
type Pipeline struct {
	embedder  Embedder
	index     Index
	resumes   ResumeStore
	reranker  Reranker
	logger    *zap.Logger
	threshold int
	topK      int
}

// NewPipeline creates a Pipeline from its config and dependencies.
func NewPipeline(cfg *PipelineConfig, deps *PipelineDeps) (*Pipeline, error) {
	if deps == nil || deps.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if deps.Index == nil {
		return nil, errors.New("embedding index is required")
	}
	if deps.Resumes == nil {
		return nil, errors.New("resume store is required")
	}
	if deps.Reranker == nil {
		return nil, errors.New("reranker is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg == nil {
		cfg = &PipelineConfig{}
	}
	threshold := cfg.MatchThreshold
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Pipeline{
		embedder:  deps.Embedder,
		index:     deps.Index,
		resumes:   deps.Resumes,
		reranker:  deps.Reranker,
		logger:    logger,
		threshold: threshold,
		topK:      topK,
	}, nil
}

// FindBestMatches returns up to maxCandidates accepted matches for the job,
// ordered by descending match score. An empty slice is a valid "no match
// found" outcome, not an error.
func (p *Pipeline) FindBestMatches(ctx context.Context, job *Job, maxCandidates int) ([]*MatchResult, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	embedding, err := p.embedder.Embed(ctx, job.Description)
	if err != nil {
		return nil, fmt.Errorf("embed job description: %w", err)
	}
	if len(embedding) == 0 {
		p.logger.Debug("empty job embedding, no matches", zap.String("job_link", job.Link))
		return []*MatchResult{}, nil
	}

	hits, err := p.index.Search(ctx, embedding, p.topK)
	if err != nil {
		// Index failures degrade to an empty shortlist: a miss costs a
		// re-run, it cannot surface a wrong result.
		p.logger.Warn("vector search failed, returning no matches",
			zap.String("job_link", job.Link),
			zap.Error(err),
		)
		return []*MatchResult{}, nil
	}
	if len(hits) == 0 {
		p.logger.Debug("empty shortlist, skipping rerank", zap.String("job_link", job.Link))
		return []*MatchResult{}, nil
	}

	candidates := make([]*Candidate, 0, len(hits))
	for rank, hit := range hits {
		resume, err := p.resumes.GetResume(ctx, hit.ResumeID)
		if err != nil {
			p.logger.Warn("skipping shortlisted resume",
				zap.String("resume_id", hit.ResumeID),
				zap.Error(err),
			)
			continue
		}

		candidates = append(candidates, &Candidate{
			Resume:     *resume,
			Similarity: hit.Similarity,
			Rank:       rank,
		})
	}

	if len(candidates) == 0 {
		return []*MatchResult{}, nil
	}

	results, err := p.reranker.Rerank(ctx, job, candidates, p.threshold)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}

	if len(results) > maxCandidates {
		results = results[:maxCandidates]
	}

	p.logger.Info("matching completed",
		zap.String("company", job.CompanyName),
		zap.String("job_title", job.Title),
		zap.Int("shortlisted", len(candidates)),
		zap.Int("accepted", len(results)),
	)

	return results, nil
}
