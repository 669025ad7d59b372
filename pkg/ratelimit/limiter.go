package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key.
//
// Keys without a keyed quota fall back to the default quota. When there is no
// default quota either, the key is not limited at all.
type Limiter struct {
	defaultQuota *Quota
	quotas       map[string]Quota

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a limiter. Invalid quotas are ignored.
func New(defaultQuota *Quota, keyed map[string]Quota) *Limiter {
	l := &Limiter{
		quotas:  make(map[string]Quota, len(keyed)),
		buckets: make(map[string]*rate.Limiter, len(keyed)+1),
	}
	if defaultQuota != nil && defaultQuota.Validate() == nil {
		q := *defaultQuota
		l.defaultQuota = &q
	}
	for key, q := range keyed {
		if q.Validate() != nil {
			continue
		}
		l.quotas[key] = q
	}
	return l
}

// Acquire blocks until one unit is available for key.
// It only fails when ctx ends first.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	bucket := l.bucket(key)
	if bucket == nil {
		return nil
	}
	return bucket.Wait(ctx)
}

// Allow consumes one unit for key if available right now.
func (l *Limiter) Allow(key string) bool {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) bool {
	bucket := l.bucket(key)
	if bucket == nil {
		return true
	}
	return bucket.AllowN(now, 1)
}

// Quota returns the quota applied to key.
func (l *Limiter) Quota(key string) (Quota, bool) {
	if l == nil {
		return Quota{}, false
	}
	if q, ok := l.quotas[key]; ok {
		return q, true
	}
	if l.defaultQuota != nil {
		return *l.defaultQuota, true
	}
	return Quota{}, false
}

// Keys returns the keys with a dedicated quota, sorted.
func (l *Limiter) Keys() []string {
	if l == nil {
		return nil
	}
	keys := make([]string, 0, len(l.quotas))
	for key := range l.quotas {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if l == nil {
		return nil
	}
	q, ok := l.Quota(key)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(q.Rate), q.Burst)
		l.buckets[key] = bucket
	}
	return bucket
}
