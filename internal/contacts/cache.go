package contacts

import (
	"context"
	"sync"
	"time"
)

// Cache stores resolved contacts keyed by company id. Get must behave as a
// miss for expired or invalidated entries; Put supersedes any existing entry
// and stamps the TTL.
type Cache interface {
	Get(ctx context.Context, companyID string) (*Contact, bool, error)
	Put(ctx context.Context, companyID string, contact *Contact) error
}

// MemoryCache is a process-local Cache. It keeps only the current record per
// company; durable backends keep the audit history.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*Contact

	now func() time.Time
}

// NewMemoryCache creates an empty in-memory contact cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*Contact),
		now:     time.Now,
	}
}

// Get returns the cached contact for companyID if it is still current.
// Expired or invalidated entries are reported as a miss; they are not purged
// eagerly since Put overwrites them anyway.
func (c *MemoryCache) Get(_ context.Context, companyID string) (*Contact, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[companyID]
	if !ok || !entry.Current(c.now()) {
		return nil, false, nil
	}

	copied := *entry
	return &copied, true, nil
}

// Put upserts the contact for companyID, stamping ResolvedAt, ExpiresAt and
// Valid.
func (c *MemoryCache) Put(_ context.Context, companyID string, contact *Contact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stored := *contact
	stored.CompanyID = companyID
	stored.ResolvedAt = now
	stored.ExpiresAt = now.Add(ContactTTL)
	stored.Valid = true

	c.entries[companyID] = &stored
	return nil
}
