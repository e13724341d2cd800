package ratelimit

import (
    "sync"
    "time"
)

type bucket struct {
    tokens float64
    last   time.Time
}

// Limiter is a keyed token bucket: every key starts full with burst tokens and
// refills at rate tokens per second.
type Limiter struct {
    mu    sync.Mutex
    m     map[string]*bucket
    rate  float64
    burst float64
    now   func() time.Time
}

func New(rate float64, burst int) *Limiter {
    if burst < 1 {
        burst = 1
    }
    return &Limiter{m: make(map[string]*bucket), rate: rate, burst: float64(burst), now: time.Now}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
    l.mu.Lock()
    defer l.mu.Unlock()

    now := l.now()
    b, ok := l.m[key]
    if !ok {
        b = &bucket{tokens: l.burst, last: now}
        l.m[key] = b
    }
    if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
        b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
        b.last = now
    }
    if b.tokens >= 1 {
        b.tokens--
        return true
    }
    return false
}

// RetryAfter estimates how long until key has a token again.
func (l *Limiter) RetryAfter(key string) time.Duration {
    l.mu.Lock()
    defer l.mu.Unlock()
    b, ok := l.m[key]
    if !ok || b.tokens >= 1 || l.rate <= 0 {
        return 0
    }
    return time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
}
