package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix = "directory:"
	cacheTTL    = 10 * time.Minute
)

// cachedLookup is a read-through cache in front of the directory table.
// Redis failures are logged and degrade to direct database lookups; the
// cache is never authoritative.
type cachedLookup struct {
	repo   *Repository
	client *redis.Client
}

func newCachedLookup(repo *Repository, client *redis.Client) *cachedLookup {
	return &cachedLookup{repo: repo, client: client}
}

// Lookup resolves a member identity, consulting Redis first.
func (c *cachedLookup) Lookup(ctx context.Context, memberID string) (*Employee, error) {
	key := cachePrefix + memberID

	if c.client != nil {
		data, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var employee Employee
			if err := json.Unmarshal(data, &employee); err == nil {
				return &employee, nil
			}
			log.Printf("[directory] Corrupt cache entry for %s, falling through", memberID)
		case err != redis.Nil:
			log.Printf("[directory] Cache get failed for %s: %v", memberID, err)
		}
	}

	employee, err := c.repo.FindByMemberID(memberID)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		data, err := json.Marshal(employee)
		if err == nil {
			if err := c.client.Set(ctx, key, data, cacheTTL).Err(); err != nil {
				log.Printf("[directory] Cache set failed for %s: %v", memberID, err)
			}
		}
	}

	return employee, nil
}

// Invalidate drops the cached entry for a member after an upsert.
func (c *cachedLookup) Invalidate(ctx context.Context, memberID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cachePrefix+memberID).Err(); err != nil {
		log.Printf("[directory] Cache invalidate failed for %s: %v", memberID, err)
	}
}

// Ping checks the Redis connection.
func (c *cachedLookup) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	return c.client.Ping(ctx).Err()
}
