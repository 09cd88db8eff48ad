package contacts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/lookup"
	"github.com/overdrive-recruitment/recruit-pilot/internal/ratelimit"
)

type stubProvider struct {
	mu         sync.Mutex
	calls      int
	candidates []lookup.Candidate
	err        error
}

func (s *stubProvider) SearchDecisionMakers(_ context.Context, _ string) ([]lookup.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestResolver(t *testing.T, cfg *ResolverConfig, provider lookup.Provider) (*Resolver, *MemoryCache) {
	t.Helper()

	cache := NewMemoryCache()
	resolver, err := NewResolver(cfg, &ResolverDeps{
		Cache:    cache,
		Limiter:  ratelimit.New(100, time.Minute, zap.NewNop()),
		Provider: provider,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resolver, cache
}

func TestResolveMissThenHit(t *testing.T) {
	provider := &stubProvider{candidates: []lookup.Candidate{
		{Name: "Jo Lin", Title: "CEO", ProfileURL: "https://linkedin.com/in/jolin"},
	}}
	resolver, _ := newTestResolver(t, nil, provider)
	ctx := context.Background()

	contact, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contact.Name != "Jo Lin" || contact.Title != "CEO" {
		t.Fatalf("unexpected contact: %+v", contact)
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.callCount())
	}

	again, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Name != contact.Name {
		t.Fatalf("expected the cached contact, got %+v", again)
	}
	if provider.callCount() != 1 {
		t.Fatalf("cache hit must not invoke the provider, got %d calls", provider.callCount())
	}
}

func TestResolveCacheHitShortCircuitsProvider(t *testing.T) {
	provider := &stubProvider{}
	resolver, cache := newTestResolver(t, nil, provider)
	ctx := context.Background()

	if err := cache.Put(ctx, "acme", &Contact{Name: "Jo Lin", Title: "CEO"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contact, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contact.Name != "Jo Lin" {
		t.Fatalf("unexpected contact: %+v", contact)
	}
	if provider.callCount() != 0 {
		t.Fatalf("expected zero provider calls on cache hit, got %d", provider.callCount())
	}
}

func TestResolveSkipsNonQualifyingTitles(t *testing.T) {
	provider := &stubProvider{candidates: []lookup.Candidate{
		{Name: "Pat Day", Title: "Receptionist"},
		{Name: "Ash Gray", Title: "Senior Engineer"},
		{Name: "Jo Lin", Title: "Managing Director"},
	}}
	resolver, _ := newTestResolver(t, nil, provider)

	contact, err := resolver.Resolve(context.Background(), "acme", "Acme Pty Ltd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contact.Name != "Jo Lin" || contact.Title != "Managing Director" {
		t.Fatalf("expected first qualifying candidate, got %+v", contact)
	}
}

func TestResolveNoQualifyingTitleReturnsNotFoundWithoutCaching(t *testing.T) {
	provider := &stubProvider{candidates: []lookup.Candidate{
		{Name: "Pat Day", Title: "Receptionist"},
	}}
	resolver, cache := newTestResolver(t, nil, provider)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd")
	if !errors.Is(err, ErrNoDecisionMaker) {
		t.Fatalf("expected ErrNoDecisionMaker, got %v", err)
	}

	if _, ok, _ := cache.Get(ctx, "acme"); ok {
		t.Fatalf("negative results must not be cached")
	}

	// Without a retry-after policy, the next run looks up again.
	if _, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd"); !errors.Is(err, ErrNoDecisionMaker) {
		t.Fatalf("expected ErrNoDecisionMaker, got %v", err)
	}
	if provider.callCount() != 2 {
		t.Fatalf("expected a second provider call, got %d", provider.callCount())
	}
}

func TestResolveSuppressesRecentNotFound(t *testing.T) {
	provider := &stubProvider{}
	resolver, _ := newTestResolver(t, &ResolverConfig{RetryNotFoundAfter: 48 * time.Hour}, provider)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	resolver.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd"); !errors.Is(err, ErrNoDecisionMaker) {
		t.Fatalf("expected ErrNoDecisionMaker, got %v", err)
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected one provider call, got %d", provider.callCount())
	}

	// Inside the retry window: no provider call.
	now = now.Add(24 * time.Hour)
	if _, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd"); !errors.Is(err, ErrNoDecisionMaker) {
		t.Fatalf("expected ErrNoDecisionMaker, got %v", err)
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected lookup to be suppressed, got %d calls", provider.callCount())
	}

	// Past the retry window: lookup again.
	now = now.Add(25 * time.Hour)
	if _, err := resolver.Resolve(ctx, "acme", "Acme Pty Ltd"); !errors.Is(err, ErrNoDecisionMaker) {
		t.Fatalf("expected ErrNoDecisionMaker, got %v", err)
	}
	if provider.callCount() != 2 {
		t.Fatalf("expected a fresh provider call, got %d", provider.callCount())
	}
}

func TestResolveWrapsProviderFailureAsTransient(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection reset")}
	resolver, cache := newTestResolver(t, nil, provider)

	_, err := resolver.Resolve(context.Background(), "acme", "Acme Pty Ltd")
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	if _, ok, _ := cache.Get(context.Background(), "acme"); ok {
		t.Fatalf("failures must not be cached")
	}
}

func TestResolveBatchIsolatesFailures(t *testing.T) {
	provider := &flakyProvider{
		byCompany: map[string][]lookup.Candidate{
			"Acme Pty Ltd": {{Name: "Jo Lin", Title: "CEO"}},
			"Globex":       {{Name: "Pat Day", Title: "Receptionist"}},
		},
		failFor: "Initech",
	}

	cache := NewMemoryCache()
	resolver, err := NewResolver(&ResolverConfig{BatchWorkers: 2}, &ResolverDeps{
		Cache:    cache,
		Limiter:  ratelimit.New(100, time.Minute, zap.NewNop()),
		Provider: provider,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := resolver.ResolveBatch(context.Background(), map[string]string{
		"acme":    "Acme Pty Ltd",
		"globex":  "Globex",
		"initech": "Initech",
	})

	if len(results) != 1 {
		t.Fatalf("expected only the resolved company, got %d entries", len(results))
	}
	contact, ok := results["acme"]
	if !ok || contact.Name != "Jo Lin" {
		t.Fatalf("unexpected batch result: %+v", results)
	}
}

type flakyProvider struct {
	mu        sync.Mutex
	byCompany map[string][]lookup.Candidate
	failFor   string
}

func (f *flakyProvider) SearchDecisionMakers(_ context.Context, companyName string) ([]lookup.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if companyName == f.failFor {
		return nil, errors.New("provider timeout")
	}
	return f.byCompany[companyName], nil
}
