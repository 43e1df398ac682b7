// Package cache memoizes read-only query results for a bounded time.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/siherrmann/graphrag/helper"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the lifetime of a cached result.
const DefaultTTL = 5 * time.Minute

// DefaultCapacity bounds the number of cached results.
const DefaultCapacity = 1000

type entry struct {
	value  any
	stored time.Time
}

// Stats are the cache counters since creation or the last Clear.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// QueryCache is an LRU of query results with lazy expiry. Concurrent loads
// of the same key are collapsed into one. Cached values are shared between
// callers and must not be modified.
//
// Every Clear starts a new generation. A load started in an earlier
// generation still returns its result to its callers but is never stored.
type QueryCache struct {
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	generation uint64

	hits   atomic.Int64
	misses atomic.Int64
}

// NewQueryCache creates a cache. Zero values select the defaults.
func NewQueryCache(capacity int, ttl time.Duration, logger *slog.Logger) (*QueryCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, helper.NewError("create lru", err)
	}

	return &QueryCache{
		entries: entries,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Key derives a cache key from the query kind and its canonical JSON parameters.
func Key(kind string, params any) (string, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", helper.NewError("marshal cache key", err)
	}
	return kind + ":" + string(b), nil
}

// Get returns the value stored under key if it has not expired. Expired
// entries are removed on access.
func (c *QueryCache) Get(key string) (any, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.now().Sub(e.stored) >= c.ttl {
		c.entries.Remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key.
func (c *QueryCache) Set(key string, value any) {
	c.entries.Add(key, entry{value: value, stored: c.now()})
}

// Clear drops every entry, resets the counters and starts a new generation.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *QueryCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// setIfGeneration stores value only if no Clear happened since generation was read.
func (c *QueryCache) setIfGeneration(generation uint64, key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	c.Set(key, value)
	return true
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *QueryCache) Len() int {
	return c.entries.Len()
}

// Stats returns the current counters.
func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}

// GetOrLoad returns the cached result for kind and params or runs load and
// caches its result. Failed loads are not cached. If params cannot be
// serialized the cache is bypassed. A nil cache always loads.
//
// A shared load runs detached from the cancellation of the caller that
// started it and keeps that caller's deadline. Each caller stops waiting
// when its own ctx is done.
func GetOrLoad[T any](ctx context.Context, c *QueryCache, kind string, params any, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load(ctx)
	}

	key, err := Key(kind, params)
	if err != nil {
		c.logger.Warn("Bypassing cache", slog.String("kind", kind), slog.String("error", err.Error()))
		return load(ctx)
	}

	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			c.logger.Debug("Cache hit", slog.String("kind", kind))
			return typed, nil
		}
	}

	generation := c.currentGeneration()
	flightKey := strconv.FormatUint(generation, 10) + "|" + key
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithDeadline(loadCtx, deadline)
			defer cancel()
		}

		result, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if !c.setIfGeneration(generation, key, result) {
			c.logger.Debug("Discarding result loaded before clear", slog.String("kind", kind))
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
