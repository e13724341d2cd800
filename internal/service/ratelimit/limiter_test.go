package ratelimit

import (
    "testing"
    "time"
)

func TestLimiterPerKey(t *testing.T) {
    now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    l := New(0.5, 2)
    l.now = func() time.Time { return now }

    if !l.Allow("BTCUSDT") || !l.Allow("BTCUSDT") {
        t.Fatalf("burst of 2 should be allowed")
    }
    if l.Allow("BTCUSDT") {
        t.Fatalf("third call should be limited")
    }
    if !l.Allow("ETHUSDT") {
        t.Fatalf("keys must not share a bucket")
    }
    if d := l.RetryAfter("BTCUSDT"); d != 2*time.Second {
        t.Fatalf("expected 2s retry, got %s", d)
    }

    now = now.Add(2 * time.Second)
    if !l.Allow("BTCUSDT") {
        t.Fatalf("token should refill after 2s at 0.5/s")
    }
}
