package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contactbridge/contactbridge/internal/brevo"
	"github.com/contactbridge/contactbridge/internal/testutil"
)

func newIntegrationCache(t *testing.T) *Cache {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = c.InvalidateLists(context.Background())
		_ = c.Close()
	})
	return c
}

func TestCache_ListsRoundTrip(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	if _, err := c.GetLists(ctx, 50, 0); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss on empty cache, got %v", err)
	}

	want := []brevo.List{{ID: 1, Name: "Newsletter", TotalSubscribers: 10}}
	if err := c.SetLists(ctx, 50, 0, want, time.Minute); err != nil {
		t.Fatalf("SetLists() error = %v", err)
	}

	got, err := c.GetLists(ctx, 50, 0)
	if err != nil {
		t.Fatalf("GetLists() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Newsletter" {
		t.Errorf("GetLists() = %+v", got)
	}

	if err := c.InvalidateLists(ctx); err != nil {
		t.Fatalf("InvalidateLists() error = %v", err)
	}
	if _, err := c.GetLists(ctx, 50, 0); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after invalidation, got %v", err)
	}
}

func TestCache_EmptyListsCached(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	if err := c.SetLists(ctx, 50, 0, nil, time.Minute); err != nil {
		t.Fatalf("SetLists() error = %v", err)
	}

	got, err := c.GetLists(ctx, 50, 0)
	if err != nil {
		t.Fatalf("GetLists() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
