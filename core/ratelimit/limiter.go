// Package ratelimit throttles requests per key (eg: per user) with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/masomo-learn/core/cache"
)

const (
	DefaultPerSecond = 5
	DefaultBurst     = 10
	DefaultIdleTTL   = 10 * time.Minute
	DefaultMaxKeys   = 10000
)

type Options struct {
	PerSecond float64
	Burst     int
	// IdleTTL is how long the bucket of a key that made no request is kept.
	IdleTTL time.Duration
	// MaxKeys bounds the number of buckets kept. Past it, the oldest buckets are dropped even if
	// their key is still active, and that key starts over with a full bucket: size it above the
	// number of keys expected to be active within IdleTTL.
	MaxKeys int
}

// Limiter holds one token bucket per key. Idle buckets, and the oldest ones past Options.MaxKeys,
// are dropped by the cache they live in, so a returning key starts with a full bucket.
type Limiter struct {
	opts    Options
	mu      sync.Mutex
	buckets *cache.Cache
}

func New(opts Options) (*Limiter, error) {
	if opts.PerSecond <= 0 {
		opts.PerSecond = DefaultPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = DefaultMaxKeys
	}

	buckets, err := cache.New(cache.Options{TTL: opts.IdleTTL, MaxSize: opts.MaxKeys})
	if err != nil {
		return nil, errors.Wrap(err, "creating rate limit buckets")
	}
	return &Limiter{opts: opts, buckets: buckets}, nil
}

// Allow reports whether a request for `key` may happen now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	return l.AllowAt(key, time.Now())
}

func (l *Limiter) AllowAt(key string, now time.Time) bool {
	return l.bucket(key).AllowN(now, 1)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if val, ok := l.buckets.Get(key); ok {
		lim = val.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rate.Limit(l.opts.PerSecond), l.opts.Burst)
	}
	// renew the idle ttl
	l.buckets.Set(key, lim)
	return lim
}

// Forget drops the bucket of `key`.
func (l *Limiter) Forget(key string) {
	l.buckets.Delete(key)
}

func (l *Limiter) Len() int {
	return l.buckets.Stats().Size
}
