// Package cache implements a process-local, size-bounded TTL cache used in front of
// expensive derived reads (eg: course progress aggregates).
//
// Entries are keyed by colon-delimited strings (see Key) so they can be dropped by
// identity substring once the records they were derived from change.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"
)

const (
	DefaultTTL             = 30 * time.Second
	DefaultMaxSize         = 1000
	DefaultCleanupInterval = time.Minute
)

type (
	Options struct {
		TTL     time.Duration
		MaxSize int

		// BackgroundCleanup tells whether the runtime supports long-lived timers.
		// When off, expired entries are only purged on Get and under capacity pressure.
		BackgroundCleanup bool
		CleanupInterval   time.Duration

		Now func() time.Time // mockable
	}

	// ComputeFunc produces the value to cache on a miss.
	ComputeFunc func(ctx context.Context) (interface{}, error)

	Stats struct {
		Size      int    `json:"size"`
		MaxSize   int    `json:"max_size"`
		Hits      uint64 `json:"hits"`
		Misses    uint64 `json:"misses"`
		Evictions uint64 `json:"evictions"`
	}

	entry struct {
		data      interface{}
		expiresAt time.Time
	}

	// Cache is safe for concurrent use.
	Cache struct {
		opts Options

		mu sync.Mutex
		// entries are kept in creation order: Add moves a key to the front, Peek does not.
		entries   *simplelru.LRU
		hits      uint64
		misses    uint64
		evictions uint64

		startOnce sync.Once
		stopOnce  sync.Once
		stop      chan struct{}
		wg        sync.WaitGroup
	}
)

func New(opts Options) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	entries, err := simplelru.NewLRU(opts.MaxSize, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cache entries")
	}
	return &Cache{
		opts:    opts,
		entries: entries,
		stop:    make(chan struct{}),
	}, nil
}

// Get returns the cached value of `key`. Expired entries are removed and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, ok := c.entries.Peek(key)
	if !ok {
		c.misses++
		return nil, false
	}
	ent := val.(entry)
	if c.opts.Now().After(ent.expiresAt) {
		c.entries.Remove(key)
		c.misses++
		return nil, false
	}
	c.hits++
	return ent.data, true
}

// Set stores `data` under `key` for `ttl` (defaults to Options.TTL), overwriting any existing entry.
// When full, expired entries are swept first; the oldest entry is evicted only if none expired.
func (c *Cache) Set(key string, data interface{}, ttl ...time.Duration) {
	d := c.opts.TTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	if !c.entries.Contains(key) && c.entries.Len() >= c.opts.MaxSize {
		if c.purgeExpired(now) == 0 {
			if _, _, ok := c.entries.RemoveOldest(); ok {
				c.evictions++
			}
		}
	}
	c.entries.Add(key, entry{data: data, expiresAt: now.Add(d)})
}

// GetOrCompute returns the cached value of `key` or computes, stores and returns it.
// Concurrent misses on the same key each call `fn`; errors are not cached.
func (c *Cache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc, ttl ...time.Duration) (interface{}, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}
	val, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(key, val, ttl...)
	return val, nil
}

func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Remove(key)
}

// InvalidatePattern removes every entry whose key contains `substr` and returns how many were removed.
func (c *Cache) InvalidatePattern(substr string) int {
	if substr == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, k := range c.entries.Keys() {
		if strings.Contains(k.(string), substr) {
			c.entries.Remove(k)
			n++
		}
	}
	return n
}

// InvalidateUser removes the entries derived from any record of `userID`.
// It matches ":<userID>" anywhere in the key, so it also removes the entries of users
// whose id starts with `userID` (eg: "U1" drops "U10" too). Over-matching only costs a recompute.
func (c *Cache) InvalidateUser(userID string) int {
	if userID == "" {
		return 0
	}
	return c.InvalidatePattern(Delimiter + userID)
}

// InvalidateCourse removes the entries keyed by `courseID` as primary id.
func (c *Cache) InvalidateCourse(courseID string) int {
	if courseID == "" {
		return 0
	}
	return c.InvalidatePattern(Delimiter + courseID + Delimiter)
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpired(c.opts.Now())
}

func (c *Cache) purgeExpired(now time.Time) int {
	var n int
	for _, k := range c.entries.Keys() {
		if val, ok := c.entries.Peek(k); ok && now.After(val.(entry).expiresAt) {
			c.entries.Remove(k)
			n++
		}
	}
	return n
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.entries.Len(),
		MaxSize:   c.opts.MaxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Start runs the periodic cleanup if the runtime supports background timers. It is a no-op otherwise.
func (c *Cache) Start() {
	if !c.opts.BackgroundCleanup {
		return
	}
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ticker := time.NewTicker(c.opts.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.Cleanup()
				case <-c.stop:
					return
				}
			}
		}()
	})
}

// Destroy stops the periodic cleanup and drops all entries. The cache stays usable.
func (c *Cache) Destroy() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	c.Clear()
}
