package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/overdrive-recruitment/recruit-pilot/internal/contacts"
)

const contactKeyPrefix = "contact:"

// RedisCache is a contacts.Cache backed by Redis. Expiry rides on the native
// key TTL; the Postgres store keeps the audit history, so eviction here loses
// nothing.
type RedisCache struct {
	client *redis.Client
}

var _ contacts.Cache = (*RedisCache)(nil)

// NewRedisCache parses redisURL, verifies connectivity and returns the cache.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get returns the cached contact for companyID if the key has not expired.
func (c *RedisCache) Get(ctx context.Context, companyID string) (*contacts.Contact, bool, error) {
	data, err := c.client.Get(ctx, contactKeyPrefix+companyID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var contact contacts.Contact
	if err := json.Unmarshal(data, &contact); err != nil {
		return nil, false, fmt.Errorf("decode cached contact: %w", err)
	}

	// The record's own expiry stays authoritative even if the key TTL lags.
	if !contact.Current(time.Now()) {
		return nil, false, nil
	}

	return &contact, true, nil
}

// Put stores the contact under the company key with the contact TTL.
func (c *RedisCache) Put(ctx context.Context, companyID string, contact *contacts.Contact) error {
	now := time.Now()
	stored := *contact
	stored.CompanyID = companyID
	stored.ResolvedAt = now
	stored.ExpiresAt = now.Add(contacts.ContactTTL)
	stored.Valid = true

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode contact: %w", err)
	}

	if err := c.client.Set(ctx, contactKeyPrefix+companyID, data, contacts.ContactTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
