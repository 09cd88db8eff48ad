// Package outreach orchestrates the per-posting funnel: resolve a
// decision-maker contact, match candidates, and hand the result to the
// downstream publisher.
package outreach

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/contacts"
	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
)

// Report is the funnel's output for one job posting, ready for message
// drafting and spreadsheet publication downstream.
type Report struct {
	Job     *matching.Job           `json:"job"`
	Contact *contacts.Contact       `json:"contact,omitempty"`
	Matches []*matching.MatchResult `json:"matches"`
}

// Source supplies normalized job postings. Scraping mechanics live behind it.
type Source interface {
	Postings(ctx context.Context) ([]*matching.Job, error)
}

// Publisher receives the finished reports. Sheet formatting and message
// drafting live behind it.
type Publisher interface {
	Publish(ctx context.Context, reports []*Report) error
}

// Summary aggregates one funnel run.
type Summary struct {
	Postings         int
	ContactsResolved int
	MatchesFound     int
	Skipped          int
}

// FunnelConfig tunes a Funnel.
type FunnelConfig struct {
	// MaxCandidates bounds the match list per posting. Defaults to 3.
	MaxCandidates int
}

// FunnelDeps aggregates the funnel's collaborators.
type FunnelDeps struct {
	Source    Source
	Resolver  *contacts.Resolver
	Pipeline  *matching.Pipeline
	Publisher Publisher
	Logger    *zap.Logger
}

// Funnel runs the outreach funnel over job postings. Contact resolution and
// candidate matching share no state and are invoked independently per posting.
type Funnel struct {
	source        Source
	resolver      *contacts.Resolver
	pipeline      *matching.Pipeline
	publisher     Publisher
	logger        *zap.Logger
	maxCandidates int
}

// NewFunnel creates a Funnel from its config and dependencies.
func NewFunnel(cfg *FunnelConfig, deps *FunnelDeps) (*Funnel, error) {
	if deps == nil || deps.Source == nil {
		return nil, errors.New("posting source is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("contact resolver is required")
	}
	if deps.Pipeline == nil {
		return nil, errors.New("matching pipeline is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxCandidates := 0
	if cfg != nil {
		maxCandidates = cfg.MaxCandidates
	}
	if maxCandidates <= 0 {
		maxCandidates = matching.DefaultMaxCandidates
	}

	return &Funnel{
		source:        deps.Source,
		resolver:      deps.Resolver,
		pipeline:      deps.Pipeline,
		publisher:     deps.Publisher,
		logger:        logger,
		maxCandidates: maxCandidates,
	}, nil
}

// Process runs the funnel for a single posting. A missing decision maker is a
// valid outcome and leaves Report.Contact nil.
func (f *Funnel) Process(ctx context.Context, job *matching.Job) (*Report, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}

	contact, err := f.resolver.Resolve(ctx, job.CompanyID, job.CompanyName)
	if err != nil {
		if !errors.Is(err, contacts.ErrNoDecisionMaker) && !errors.Is(err, contacts.ErrTransient) {
			return nil, err
		}
		f.logger.Info("no decision maker for posting",
			zap.String("company", job.CompanyName),
			zap.String("job_link", job.Link),
		)
		contact = nil
	}

	matches, err := f.pipeline.FindBestMatches(ctx, job, f.maxCandidates)
	if err != nil {
		return nil, err
	}

	return &Report{Job: job, Contact: contact, Matches: matches}, nil
}

// Run pulls all postings from the source, processes each one and publishes
// the reports. A failing posting is logged and skipped; it never aborts the
// run.
func (f *Funnel) Run(ctx context.Context) (*Summary, error) {
	jobs, err := f.source.Postings(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Postings: len(jobs)}
	reports := make([]*Report, 0, len(jobs))

	for _, job := range jobs {
		report, err := f.Process(ctx, job)
		if err != nil {
			f.logger.Warn("skipping posting",
				zap.String("company", job.CompanyName),
				zap.String("job_link", job.Link),
				zap.Error(err),
			)
			summary.Skipped++
			continue
		}

		if report.Contact != nil {
			summary.ContactsResolved++
		}
		summary.MatchesFound += len(report.Matches)
		reports = append(reports, report)
	}

	if f.publisher != nil && len(reports) > 0 {
		if err := f.publisher.Publish(ctx, reports); err != nil {
			return summary, err
		}
	}

	f.logger.Info("funnel run completed",
		zap.Int("postings", summary.Postings),
		zap.Int("contacts_resolved", summary.ContactsResolved),
		zap.Int("matches_found", summary.MatchesFound),
		zap.Int("skipped", summary.Skipped),
	)

	return summary, nil
}
