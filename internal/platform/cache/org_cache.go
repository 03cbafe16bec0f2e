package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"taskgate/internal/platform/models"
)

type cachedOrg struct {
	org      *models.Organization
	cachedAt time.Time
}

// OrgLoader fetches an organization from the store. A nil org with a nil
// error means it does not exist.
type OrgLoader func(ctx context.Context, id string) (*models.Organization, error)

// OrgCache keeps recently used organizations in memory for the tenant
// middleware. Entries expire after ttl and the cache holds at most
// maxEntries; once full, new orgs are served uncached until expired
// entries are evicted.
//
// Every Invalidate bumps a generation counter. A Load only caches what it
// read if no invalidation happened while it was reading, so a plan change
// is never overwritten by a read that started before it.
type OrgCache struct {
	store      sync.Map // map[org_id]*cachedOrg
	size       atomic.Int64
	mu         sync.Mutex
	generation uint64
	ttl        time.Duration
	maxEntries int64
	load       OrgLoader
	now        func() time.Time
}

func NewOrgCache(ttl time.Duration, maxEntries int, load OrgLoader) *OrgCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &OrgCache{ttl: ttl, maxEntries: int64(maxEntries), load: load, now: time.Now}
}

func (c *OrgCache) Get(id string) (*models.Organization, bool) {
	val, ok := c.store.Load(id)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedOrg)
	if c.now().Sub(entry.cachedAt) > c.ttl {
		c.drop(id)
		return nil, false
	}

	return entry.org, true
}

func (c *OrgCache) Set(org *models.Organization) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(org)
}

func (c *OrgCache) set(org *models.Organization) {
	if c.size.Load() >= c.maxEntries {
		c.evictExpired()
		if c.size.Load() >= c.maxEntries {
			return
		}
	}

	copied := *org
	if _, loaded := c.store.Swap(org.ID, &cachedOrg{org: &copied, cachedAt: c.now()}); !loaded {
		c.size.Add(1)
	}
}

// Load returns the cached org or falls back to the loader.
func (c *OrgCache) Load(ctx context.Context, id string) (*models.Organization, error) {
	if org, ok := c.Get(id); ok {
		return org, nil
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	org, err := c.load(ctx, id)
	if err != nil || org == nil {
		return org, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.set(org)
	}
	c.mu.Unlock()
	return org, nil
}

// Invalidate drops id so the next Load reads through to the store.
func (c *OrgCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.drop(id)
}

func (c *OrgCache) drop(id string) {
	if _, loaded := c.store.LoadAndDelete(id); loaded {
		c.size.Add(-1)
	}
}

func (c *OrgCache) Len() int {
	return int(c.size.Load())
}

func (c *OrgCache) evictExpired() {
	now := c.now()
	c.store.Range(func(key, val interface{}) bool {
		if now.Sub(val.(*cachedOrg).cachedAt) > c.ttl {
			c.drop(key.(string))
		}
		return true
	})
}
