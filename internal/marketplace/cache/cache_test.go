package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ListingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, ttl), mr
}

func TestGetMissThenHit(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "marketplace:listing:p1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, "marketplace:listing:p1", []byte(`{"leads":[]}`))
	payload, ok := c.Get(ctx, "marketplace:listing:p1")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(payload) != `{"leads":[]}` {
		t.Errorf("payload = %q", payload)
	}
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t, 5*time.Second)
	ctx := context.Background()

	c.Set(ctx, "marketplace:listing:p1", []byte("x"))
	mr.FastForward(6 * time.Second)

	if _, ok := c.Get(ctx, "marketplace:listing:p1"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestInvalidateDropsOnlyListingKeys(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "marketplace:listing:p1", []byte("a"))
	c.Set(ctx, "marketplace:listing:p2", []byte("b"))
	mr.Set("unrelated:key", "keep")

	c.Invalidate(ctx)

	if _, ok := c.Get(ctx, "marketplace:listing:p1"); ok {
		t.Error("listing page p1 survived invalidation")
	}
	if _, ok := c.Get(ctx, "marketplace:listing:p2"); ok {
		t.Error("listing page p2 survived invalidation")
	}
	if !mr.Exists("unrelated:key") {
		t.Error("unrelated key was dropped")
	}
}
