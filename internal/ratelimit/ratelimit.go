// Package ratelimit provides sliding-window admission control for outbound
// calls to rate-limited third-party APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/util"
)

// safetyMargin is added to every computed wait so that the provider's own
// clock never observes us a hair inside the window.
const safetyMargin = time.Second

// Limiter admits at most maxRequests events inside any trailing window.
// It must be constructed with New and shared explicitly between callers;
// there is no package-level default.
type Limiter struct {
	maxRequests int
	window      time.Duration
	logger      *zap.Logger

	mu         sync.Mutex
	admissions []time.Time

	// Overridable in tests.
	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter allowing maxRequests admissions per window.
func New(maxRequests int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		logger:      logger,
		now:         time.Now,
		wait:        util.WaitFor,
	}
}

// Acquire blocks until one more unit of work may be issued without exceeding
// the configured rate, then records the admission. It returns early with the
// context error when the context is canceled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.admissions) < l.maxRequests {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return nil
		}

		oldest := l.admissions[0]
		wait := l.window - now.Sub(oldest) + safetyMargin
		l.mu.Unlock()

		l.logger.Debug("rate limit reached, waiting",
			zap.Duration("wait", wait),
			zap.Int("max_requests", l.maxRequests),
			zap.Duration("window", l.window),
		)

		if err := l.wait(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops admissions that have slid out of the trailing window.
// Callers must hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.admissions[:0]
	for _, t := range l.admissions {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.admissions = kept
}
