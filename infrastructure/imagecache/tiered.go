package imagecache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TieredCache composes the L1 memory tier and an L2 persistent store. Lookups
// go L1 first, then L2 with an L1 backfill; writes go through to both tiers.
type TieredCache struct {
	memory *MemoryCache
	store  PersistentStore

	mu  sync.RWMutex
	ttl time.Duration
}

func NewTieredCache(memory *MemoryCache, store PersistentStore, ttl time.Duration) *TieredCache {
	return &TieredCache{memory: memory, store: store, ttl: ttl}
}

// SetTTL adjusts the TTL stamped on subsequent persistent writes. Entries
// already written keep the expiry they were stored with.
func (t *TieredCache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t.mu.Lock()
	t.ttl = ttl
	t.mu.Unlock()
}

// GetURLs looks up a gallery entry. A concurrent sweep may evict between the
// caller's hit-check and this read; that simply reads as a fresh miss.
func (t *TieredCache) GetURLs(ctx context.Context, key string) ([]string, bool) {
	if value, ok := t.memory.Get(key); ok {
		if urls, ok := value.([]string); ok {
			return urls, true
		}
	}

	var urls []string
	if t.lookupPersistent(ctx, key, &urls) {
		t.memory.Set(key, urls)
		return urls, true
	}
	return nil, false
}

// GetURL looks up a thumbnail entry.
func (t *TieredCache) GetURL(ctx context.Context, key string) (string, bool) {
	if value, ok := t.memory.Get(key); ok {
		if url, ok := value.(string); ok {
			return url, true
		}
	}

	var url string
	if t.lookupPersistent(ctx, key, &url) {
		t.memory.Set(key, url)
		return url, true
	}
	return "", false
}

// SetURLs writes a gallery result through both tiers.
func (t *TieredCache) SetURLs(ctx context.Context, key string, urls []string) {
	t.memory.Set(key, urls)
	t.writePersistent(ctx, key, urls)
}

// SetURL writes a thumbnail result through both tiers.
func (t *TieredCache) SetURL(ctx context.Context, key, url string) {
	t.memory.Set(key, url)
	t.writePersistent(ctx, key, url)
}

func (t *TieredCache) lookupPersistent(ctx context.Context, key string, out any) bool {
	payload, ok := t.store.Get(ctx, key)
	if !ok {
		return false
	}
	data, alive := decodeEntry(payload, time.Now())
	if !alive {
		t.store.Delete(ctx, key)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] Corrupt L2 payload, treating as miss")
		t.store.Delete(ctx, key)
		return false
	}
	return true
}

func (t *TieredCache) writePersistent(ctx context.Context, key string, value any) {
	t.mu.RLock()
	ttl := t.ttl
	t.mu.RUnlock()

	payload, _, err := encodeEntry(value, ttl, time.Now())
	if err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] Failed to encode cache entry")
		return
	}
	t.store.Set(ctx, key, payload, ttl)
}

// Memory exposes the L1 tier for lifecycle management and stats.
func (t *TieredCache) Memory() *MemoryCache {
	return t.memory
}

// Store exposes the L2 tier for stats and administrative clearing.
func (t *TieredCache) Store() PersistentStore {
	return t.store
}

// Clear empties both tiers.
func (t *TieredCache) Clear(ctx context.Context) error {
	t.memory.Clear()
	return t.store.Clear(ctx)
}
