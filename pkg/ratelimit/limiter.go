package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a single token bucket. It starts full and refills
// continuously at refill tokens per second, up to burst.
type Bucket struct {
	mu         sync.Mutex
	burst      int
	tokens     float64
	refill     float64
	lastRefill time.Time
}

// NewBucket creates a full token bucket allowing bursts of burst
// requests and a sustained rate of refill requests per second
func NewBucket(burst int, refill float64) *Bucket {
	return &Bucket{
		burst:      burst,
		tokens:     float64(burst),
		refill:     refill,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refill
	if b.tokens > float64(b.burst) {
		b.tokens = float64(b.burst)
	}
	b.lastRefill = now

	if b.tokens < 1.0 {
		return false
	}
	b.tokens -= 1.0
	return true
}

// Tokens returns the number of tokens currently available
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Reset refills the bucket to capacity
func (b *Bucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = float64(b.burst)
	b.lastRefill = time.Now()
}

// KeyedLimiter manages one bucket per key (an IP, an account ID).
// Buckets idle for longer than ttl are dropped by a background sweep.
type KeyedLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
	burst   int
	refill  float64
	ttl     time.Duration
}

// NewKeyedLimiter creates a limiter that tracks each key independently.
// A ttl of zero keeps buckets forever.
func NewKeyedLimiter(burst int, refill float64, ttl time.Duration) *KeyedLimiter {
	l := &KeyedLimiter{
		buckets: make(map[string]*Bucket),
		burst:   burst,
		refill:  refill,
		ttl:     ttl,
	}
	if ttl > 0 {
		go l.sweep()
	}
	return l
}

// Allow consumes one token from the key's bucket, creating it on first use
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = NewBucket(l.burst, l.refill)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.Allow()
}

// Reset refills the bucket for a key, if one exists
func (l *KeyedLimiter) Reset(key string) {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		b.Reset()
	}
}

// ActiveBuckets returns the number of keys currently tracked
func (l *KeyedLimiter) ActiveBuckets() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

func (l *KeyedLimiter) sweep() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for key, b := range l.buckets {
			b.mu.Lock()
			idle := now.Sub(b.lastRefill)
			b.mu.Unlock()
			if idle > l.ttl {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
