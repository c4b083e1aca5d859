// Package cache memoizes WBR results outside the pure core.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/open-wbr/wbrdash/internal/model"
	"github.com/open-wbr/wbrdash/internal/wbr"
)

// ResultCache is a TTL-bounded memo of computed results keyed by the full
// parameter tuple. Concurrent identical requests share one computation;
// distinct keys never block each other. The core stays cache-agnostic.
type ResultCache struct {
	lru   *expirable.LRU[string, wbr.Result]
	group singleflight.Group
}

// New builds a cache holding up to size entries for ttl each.
func New(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = 128
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, wbr.Result](size, nil, ttl),
	}
}

// Key serializes the full parameter tuple. Equal params, equal key.
func Key(p model.Params) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		p.SourceID, p.Metric, p.Group,
		p.ReferenceDate.UTC().Format("2006-01-02"),
		p.WeekWindow, p.MonthWindow)
}

// Get returns the cached result for p, computing and storing it on miss.
// At most one computation per key is in flight at a time.
func (c *ResultCache) Get(ctx context.Context, p model.Params, compute func(ctx context.Context) (wbr.Result, error)) (wbr.Result, error) {
	key := Key(p)
	if res, ok := c.lru.Get(key); ok {
		return res, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if res, ok := c.lru.Get(key); ok {
			return res, nil
		}
		res, err := compute(ctx)
		if err != nil {
			return wbr.Result{}, err
		}
		c.lru.Add(key, res)
		return res, nil
	})
	if err != nil {
		return wbr.Result{}, err
	}
	return v.(wbr.Result), nil
}

// Invalidate drops one entry.
func (c *ResultCache) Invalidate(p model.Params) {
	c.lru.Remove(Key(p))
}

// Purge drops everything.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}
