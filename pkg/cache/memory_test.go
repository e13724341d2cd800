package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "p", point{1, 2}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got point
	if err := mc.Get(ctx, "p", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (point{1, 2}) {
		t.Fatalf("unexpected value %+v", got)
	}

	var raw string
	if err := mc.Get(ctx, "p", &raw); err != nil || raw != `{"x":1,"y":2}` {
		t.Fatalf("raw get: %q %v", raw, err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var v string
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatal("expected expired key to not exist")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", 1, 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, 0)
	time.Sleep(time.Millisecond)
	var n int
	_ = mc.Get(ctx, "a", &n)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if ok, _ := mc.Exists(ctx, k); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	if got := GenerateKeyWithParams("series", "BTCUSDT", "1h"); got != "series:BTCUSDT:1h" {
		t.Fatalf("unexpected key %q", got)
	}
}
