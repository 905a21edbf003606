package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/migrator/internal/core"
	"github.com/JonMunkholm/migrator/internal/core/memstore"
)

// mapCache is an in-memory core.Cache that round-trips values through JSON
// the way the Redis cache does.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	setErr  error
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Set(_ context.Context, key string, value any, ttl time.Duration, namespace string) error {
	if c.setErr != nil {
		return c.setErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[namespace+":"+key] = b
	c.ttls[namespace+":"+key] = ttl
	return nil
}

func (c *mapCache) Get(_ context.Context, key, namespace string, dest any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	c.mu.Lock()
	b, ok := c.entries[namespace+":"+key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func TestProgressLogger_AppendsAndMirrors(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	cache := newMapCache()
	log := core.NewProgressLogger(store, cache, core.CacheOptions{})

	log.Log(ctx, 7, core.LevelInfo, "Starting migration: stock")
	log.Logf(ctx, 7, core.LevelWarning, "Row %d: %s", 3, "bad price")

	entries, _ := store.ListLogs(ctx, 7)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Level != core.LevelWarning || entries[1].Message != "Row 3: bad price" {
		t.Errorf("second entry = %+v", entries[1])
	}

	key := "migration:" + core.LatestLogKey(7)
	if key != "migration:migration_logs:7" {
		t.Errorf("cache key = %q", key)
	}
	if ttl := cache.ttls[key]; ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h default", ttl)
	}

	latest, ok, err := log.Latest(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if latest.Message != "Row 3: bad price" || latest.Level != core.LevelWarning {
		t.Errorf("Latest = %+v", latest)
	}
}

func TestProgressLogger_CacheFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	cache := newMapCache()
	cache.setErr = errors.New("connection refused")
	cache.getErr = errors.New("connection refused")
	log := core.NewProgressLogger(store, cache, core.DefaultCacheOptions)

	log.Log(ctx, 1, core.LevelSuccess, "done")

	entries, _ := store.ListLogs(ctx, 1)
	if len(entries) != 1 {
		t.Fatalf("store should still receive the entry, got %d", len(entries))
	}

	latest, ok, err := log.Latest(ctx, 1)
	if err != nil || !ok || latest.Message != "done" {
		t.Errorf("Latest should fall back to the store: %+v ok=%v err=%v", latest, ok, err)
	}
}

func TestProgressLogger_StoreFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.AppendErr = errors.New("disk full")
	cache := newMapCache()
	log := core.NewProgressLogger(store, cache, core.DefaultCacheOptions)

	log.Log(ctx, 2, core.LevelError, "Critical error: boom")

	latest, ok, _ := log.Latest(ctx, 2)
	if !ok || latest.Message != "Critical error: boom" {
		t.Errorf("cache should still hold the entry: %+v ok=%v", latest, ok)
	}
}

func TestProgressLogger_NoCache(t *testing.T) {
	ctx := context.Background()
	log := core.NewProgressLogger(memstore.New(), nil, core.DefaultCacheOptions)

	if _, ok, err := log.Latest(ctx, 9); ok || err != nil {
		t.Errorf("Latest for job without logs: ok=%v err=%v", ok, err)
	}
	log.Log(ctx, 9, core.LevelInfo, "hello")
	if latest, ok, _ := log.Latest(ctx, 9); !ok || latest.Message != "hello" {
		t.Errorf("Latest = %+v ok=%v", latest, ok)
	}
}
