package contacts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/lookup"
	"github.com/overdrive-recruitment/recruit-pilot/internal/ratelimit"
)

const (
	defaultCallTimeout  = 30 * time.Second
	defaultBatchWorkers = 5
)

// ErrNoDecisionMaker signals that the provider returned no candidate with an
// accepted title. It is a valid empty outcome, not a failure, and it is never
// cached: a later run may find a new hire.
var ErrNoDecisionMaker = errors.New("no qualifying decision maker found")

// ErrTransient wraps provider or transport failures that are worth retrying
// on a later run.
var ErrTransient = errors.New("transient provider failure")

// ResolverConfig tunes a Resolver.
type ResolverConfig struct {
	// CallTimeout bounds a single provider call. Defaults to 30s.
	CallTimeout time.Duration
	// RetryNotFoundAfter suppresses repeat lookups for companies that
	// recently yielded no decision maker. Zero means retry on every run.
	RetryNotFoundAfter time.Duration
	// BatchWorkers bounds concurrent resolutions inside ResolveBatch.
	BatchWorkers int
}

// ResolverDeps aggregates the collaborators a Resolver composes.
type ResolverDeps struct {
	Cache    Cache
	Limiter  *ratelimit.Limiter
	Provider lookup.Provider
	Logger   *zap.Logger
}

// Resolver turns a company into a decision-maker contact. A cache hit
// short-circuits the whole operation: the limiter is not touched and the
// provider is not called.
type Resolver struct {
	cache    Cache
	limiter  *ratelimit.Limiter
	provider lookup.Provider
	logger   *zap.Logger

	callTimeout        time.Duration
	retryNotFoundAfter time.Duration
	batchWorkers       int

	mu           sync.Mutex
	lastNotFound map[string]time.Time

	now func() time.Time
}

// NewResolver creates a Resolver from its config and dependencies.
func NewResolver(cfg *ResolverConfig, deps *ResolverDeps) (*Resolver, error) {
	if deps == nil || deps.Cache == nil {
		return nil, errors.New("contact cache is required")
	}
	if deps.Limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("lookup provider is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg == nil {
		cfg = &ResolverConfig{}
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	workers := cfg.BatchWorkers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}

	return &Resolver{
		cache:              deps.Cache,
		limiter:            deps.Limiter,
		provider:           deps.Provider,
		logger:             logger,
		callTimeout:        callTimeout,
		retryNotFoundAfter: cfg.RetryNotFoundAfter,
		batchWorkers:       workers,
		lastNotFound:       make(map[string]time.Time),
		now:                time.Now,
	}, nil
}

// Resolve returns the current decision-maker contact for the company. On a
// cache hit the external lookup is not invoked. ErrNoDecisionMaker is
// returned when nobody with an accepted title is found; ErrTransient wraps
// provider failures. Cache failures degrade to a miss.
func (r *Resolver) Resolve(ctx context.Context, companyID, companyName string) (*Contact, error) {
	if companyID == "" {
		return nil, errors.New("company id is required")
	}

	contact, ok, err := r.cache.Get(ctx, companyID)
	if err != nil {
		r.logger.Warn("contact cache read failed, treating as miss",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
	} else if ok {
		r.logger.Debug("contact cache hit, skipping lookup",
			zap.String("company_id", companyID),
			zap.String("title", contact.Title),
		)
		return contact, nil
	}

	if r.suppressed(companyID) {
		r.logger.Debug("recent not-found result, skipping lookup",
			zap.String("company_id", companyID),
		)
		return nil, ErrNoDecisionMaker
	}

	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	candidates, err := r.provider.SearchDecisionMakers(callCtx, companyName)
	if err != nil {
		r.logger.Warn("decision-maker lookup failed",
			zap.String("company_id", companyID),
			zap.String("company_name", companyName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	// Provider relevance order is authoritative: take the first accepted
	// title, no secondary tie-break.
	for _, candidate := range candidates {
		if !TitleAccepted(candidate.Title) {
			continue
		}

		resolved := &Contact{
			CompanyID:  companyID,
			Name:       candidate.Name,
			ProfileURL: candidate.ProfileURL,
			Title:      candidate.Title,
		}

		if err := r.cache.Put(ctx, companyID, resolved); err != nil {
			r.logger.Warn("contact cache write failed",
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		}

		if stored, ok, err := r.cache.Get(ctx, companyID); err == nil && ok {
			return stored, nil
		}

		now := r.now()
		resolved.ResolvedAt = now
		resolved.ExpiresAt = now.Add(ContactTTL)
		resolved.Valid = true
		return resolved, nil
	}

	r.recordNotFound(companyID)
	return nil, ErrNoDecisionMaker
}

// ResolveBatch resolves many companies concurrently through the one shared
// limiter. Companies without a contact are simply absent from the result;
// a failing company never aborts the batch.
func (r *Resolver) ResolveBatch(ctx context.Context, companies map[string]string) map[string]*Contact {
	results := make(map[string]*Contact, len(companies))
	if len(companies) == 0 {
		return results
	}

	pool, err := ants.NewPool(r.batchWorkers)
	if err != nil {
		r.logger.Warn("worker pool creation failed, resolving sequentially", zap.Error(err))
		for id, name := range companies {
			if contact, err := r.Resolve(ctx, id, name); err == nil {
				results[id] = contact
			}
		}
		return results
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for id, name := range companies {
		id, name := id, name
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()

			contact, err := r.Resolve(ctx, id, name)
			if err != nil {
				if !errors.Is(err, ErrNoDecisionMaker) {
					r.logger.Warn("skipping company in batch",
						zap.String("company_id", id),
						zap.Error(err),
					)
				}
				return
			}

			mu.Lock()
			results[id] = contact
			mu.Unlock()
		}); err != nil {
			wg.Done()
			r.logger.Warn("submitting batch resolution failed",
				zap.String("company_id", id),
				zap.Error(err),
			)
		}
	}

	wg.Wait()
	return results
}

func (r *Resolver) suppressed(companyID string) bool {
	if r.retryNotFoundAfter <= 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.lastNotFound[companyID]
	return ok && r.now().Sub(last) < r.retryNotFoundAfter
}

// recordNotFound remembers the attempt in process memory only. The contact
// cache never holds negative entries.
func (r *Resolver) recordNotFound(companyID string) {
	if r.retryNotFoundAfter <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastNotFound[companyID] = r.now()
}
