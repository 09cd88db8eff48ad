package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	_ "embed"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
	"github.com/overdrive-recruitment/recruit-pilot/internal/util"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultRankWorkers  = 4
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Reranker scores shortlisted candidates against a job posting with Gemini.
// It implements matching.Reranker.
type Reranker struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	workers   int
}

// NewReranker creates a Reranker on top of the given generator.
func NewReranker(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Reranker{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
		workers:   defaultRankWorkers,
	}
}

// Rerank scores each candidate 0-100, retains those at or above threshold and
// returns them sorted descending by score, ties broken by original vector
// rank. A failing candidate is skipped, never fails the batch.
func (r *Reranker) Rerank(ctx context.Context, job *matching.Job, candidates []*matching.Candidate, threshold int) ([]*matching.MatchResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if len(candidates) == 0 {
		return []*matching.MatchResult{}, nil
	}

	jobJSON, err := json.MarshalIndent(map[string]any{
		"company":      job.CompanyName,
		"title":        job.Title,
		"description":  job.Description,
		"requirements": job.Requirements,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	type scored struct {
		result *matching.MatchResult
		rank   int
	}
	outcomes := make([]*scored, len(candidates))

	pool, poolErr := ants.NewPool(r.workers)
	if poolErr == nil {
		defer pool.Release()
	}

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		i, candidate := i, candidate

		score := func() {
			defer wg.Done()

			result, err := r.scoreCandidate(ctx, string(jobJSON), candidate)
			if err != nil {
				r.logger.Warn("candidate scoring failed",
					zap.String("resume_id", candidate.ResumeID),
					zap.Error(err),
				)
				return
			}
			outcomes[i] = &scored{result: result, rank: candidate.Rank}
		}

		wg.Add(1)
		if poolErr != nil || pool.Submit(score) != nil {
			score()
		}
	}
	wg.Wait()

	results := make([]*matching.MatchResult, 0, len(candidates))
	ranks := make(map[*matching.MatchResult]int, len(candidates))
	for _, outcome := range outcomes {
		if outcome == nil || outcome.result.MatchScore < threshold {
			continue
		}
		results = append(results, outcome.result)
		ranks[outcome.result] = outcome.rank
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		return ranks[results[i]] < ranks[results[j]]
	})

	return results, nil
}

func (r *Reranker) scoreCandidate(ctx context.Context, jobJSON string, candidate *matching.Candidate) (*matching.MatchResult, error) {
	candidateJSON, err := json.MarshalIndent(map[string]any{
		"resume_id":        candidate.ResumeID,
		"candidate_name":   candidate.CandidateName,
		"resume_text":      candidate.Text,
		"skills":           candidate.Skills,
		"experience_years": candidate.ExperienceYears,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	prompt := buildPrompt(jobJSON, string(candidateJSON))

	r.logger.Debug("gemini rerank request",
		zap.String("resume_id", candidate.ResumeID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini rerank response",
		zap.String("resume_id", candidate.ResumeID),
		zap.String("response_preview", util.TruncateForLog(raw, r.maxLogLen)),
	)

	score, reasons, summary, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	return &matching.MatchResult{
		ResumeID:      candidate.ResumeID,
		CandidateName: candidate.CandidateName,
		MatchScore:    score,
		Reasons:       reasons,
		Summary:       summary,
	}, nil
}

func buildPrompt(jobJSON, candidateJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job:\n{{JOB_JSON}}\n\nCandidate:\n{{CANDIDATE_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{JOB_JSON}}", jobJSON)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_JSON}}", candidateJSON)
	return prompt
}

func parseResponse(raw string) (int, []string, string, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return 0, nil, "", fmt.Errorf("parse gemini response: %w", err)
	}

	score := clampScore(coerceInt(data["match_score"]))
	reasons := coerceStringSlice(data["reasons"])
	summary := coerceString(data["summary"])

	return score, reasons, summary, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func coerceInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := coerceString(v); s != "" {
			return []string{s}
		}
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}
