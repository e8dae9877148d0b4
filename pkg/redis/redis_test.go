package redis

import (
	"context"
	"testing"

	"github.com/wonny/stockscan/pkg/config"
)

func TestDisabledClient(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Enabled = false

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed for disabled client: %v", err)
	}

	if client.Enabled() {
		t.Error("Enabled() should be false")
	}

	// Cache over a disabled client degrades to misses, never errors
	cache := NewCache(client, "stockscan")
	ctx := context.Background()

	var out []string
	found, err := cache.Get(ctx, "prices:005930", &out)
	if err != nil {
		t.Errorf("Get() on disabled cache returned error: %v", err)
	}
	if found {
		t.Error("Get() on disabled cache should be a miss")
	}

	if err := cache.Set(ctx, "prices:005930", []string{"a"}, 0); err != nil {
		t.Errorf("Set() on disabled cache returned error: %v", err)
	}

	if err := cache.Delete(ctx, "prices:005930"); err != nil {
		t.Errorf("Delete() on disabled cache returned error: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}
