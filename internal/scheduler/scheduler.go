// Package scheduler wires up the cron job that periodically runs the
// outreach funnel.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultSpec = "0 7 * * *"

// Runner is the unit of work a tick executes.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Config tunes a Scheduler.
type Config struct {
	// Spec is a cron expression. Defaults to a daily 07:00 run.
	Spec string
	// RunOnStart fires one run immediately after Start instead of waiting
	// for the first tick.
	RunOnStart bool
}

// Scheduler wraps robfig/cron and serializes funnel runs. A tick that
// arrives while a run is still in flight is dropped, not queued.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *zap.Logger
	spec    string
	onStart bool

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler for the given runner.
func New(cfg *Config, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	spec := defaultSpec
	onStart := false
	if cfg != nil {
		if cfg.Spec != "" {
			spec = cfg.Spec
		}
		onStart = cfg.RunOnStart
	}

	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		logger:  logger,
		spec:    spec,
		onStart: onStart,
	}, nil
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))

	if s.onStart {
		go s.tick(ctx)
	}

	return nil
}

// Stop shuts the cron loop down. Already-started runs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// Trigger runs the funnel outside the cron cadence, for manual kicks.
// Returns false if a run is already in flight.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	return s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous funnel run still in flight, skipping tick")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("funnel run starting")
	if err := s.runner.Run(ctx); err != nil {
		s.logger.Error("funnel run failed", zap.Error(err))
		return true
	}
	s.logger.Info("funnel run finished")
	return true
}
