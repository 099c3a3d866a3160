package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "ip:203.0.113.7", "Berlin, DE", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := c.Get(ctx, "ip:203.0.113.7")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if value != "Berlin, DE" {
		t.Errorf("value: got %q, want %q", value, "Berlin, DE")
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache()

	_, ok, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	_, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expired entry should be a miss")
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", "old", time.Minute)
	_ = c.Set(ctx, "k", "new", time.Minute)

	value, ok, _ := c.Get(ctx, "k")
	if !ok || value != "new" {
		t.Errorf("got (%q, %v), want (new, true)", value, ok)
	}
}
