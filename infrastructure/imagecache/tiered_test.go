package imagecache

import (
	"context"
	"testing"
	"time"
)

// fakeStore is an in-memory PersistentStore used to observe tier interactions.
type fakeStore struct {
	data map[string]string
	gets int
	sets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, bool) {
	f.gets++
	payload, ok := f.data[key]
	return payload, ok
}

func (f *fakeStore) Set(ctx context.Context, key, payload string, ttl time.Duration) {
	f.sets++
	f.data[key] = payload
}

func (f *fakeStore) Delete(ctx context.Context, key string) { delete(f.data, key) }

func (f *fakeStore) Clear(ctx context.Context) error {
	f.data = make(map[string]string)
	return nil
}

func (f *fakeStore) Cleanup(ctx context.Context) error { return nil }

func (f *fakeStore) Stats(ctx context.Context) (int64, int64) {
	var bytes int64
	for _, v := range f.data {
		bytes += int64(len(v))
	}
	return int64(len(f.data)), bytes
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func newTestTieredCache(store PersistentStore) *TieredCache {
	memory := NewMemoryCache(time.Hour, 100, time.Hour)
	return NewTieredCache(memory, store, time.Hour)
}

func TestTieredCache_WriteThroughAndL1Hit(t *testing.T) {
	store := newFakeStore()
	cache := newTestTieredCache(store)
	ctx := context.Background()

	cache.SetURLs(ctx, "dish-image-k", []string{"https://img/1.jpg", "https://img/2.jpg"})
	if store.sets != 1 {
		t.Fatalf("SetURLs wrote %d times to L2, want 1", store.sets)
	}

	urls, ok := cache.GetURLs(ctx, "dish-image-k")
	if !ok || len(urls) != 2 {
		t.Fatalf("GetURLs = %v, %v", urls, ok)
	}
	// Fresh write sits in L1, so the lookup must not touch L2.
	if store.gets != 0 {
		t.Fatalf("L1 hit still read L2 %d times", store.gets)
	}
}

func TestTieredCache_L2HitBackfillsL1(t *testing.T) {
	store := newFakeStore()
	cache := newTestTieredCache(store)
	ctx := context.Background()

	cache.SetURLs(ctx, "dish-image-k", []string{"https://img/1.jpg"})
	cache.Memory().Clear()

	urls, ok := cache.GetURLs(ctx, "dish-image-k")
	if !ok || len(urls) != 1 {
		t.Fatalf("GetURLs after L1 clear = %v, %v", urls, ok)
	}
	if store.gets != 1 {
		t.Fatalf("expected exactly one L2 read, got %d", store.gets)
	}

	// Second lookup should be served from the backfilled L1.
	if _, ok := cache.GetURLs(ctx, "dish-image-k"); !ok {
		t.Fatalf("backfilled entry missed")
	}
	if store.gets != 1 {
		t.Fatalf("backfill did not populate L1, L2 reads = %d", store.gets)
	}
}

func TestTieredCache_ExpiredL2EntryIsMiss(t *testing.T) {
	store := newFakeStore()
	cache := newTestTieredCache(store)
	ctx := context.Background()

	payload, _, err := encodeEntry([]string{"https://img/1.jpg"}, -time.Minute, time.Now())
	if err != nil {
		t.Fatalf("encodeEntry: %v", err)
	}
	store.data["dish-image-k"] = payload

	if _, ok := cache.GetURLs(ctx, "dish-image-k"); ok {
		t.Fatalf("expired L2 entry was served")
	}
	if _, remains := store.data["dish-image-k"]; remains {
		t.Fatalf("expired L2 entry was not purged on read")
	}
}

func TestTieredCache_CorruptL2PayloadIsMiss(t *testing.T) {
	store := newFakeStore()
	cache := newTestTieredCache(store)
	ctx := context.Background()

	store.data["dish-image-k"] = "{not json"

	if _, ok := cache.GetURLs(ctx, "dish-image-k"); ok {
		t.Fatalf("corrupt L2 payload was served")
	}
}

func TestTieredCache_ThumbnailRoundTrip(t *testing.T) {
	store := newFakeStore()
	cache := newTestTieredCache(store)
	ctx := context.Background()

	cache.SetURL(ctx, "dish-thumbnail-ramen-default", "https://img/thumb.jpg")
	cache.Memory().Clear()

	url, ok := cache.GetURL(ctx, "dish-thumbnail-ramen-default")
	if !ok || url != "https://img/thumb.jpg" {
		t.Fatalf("GetURL = %q, %v", url, ok)
	}
}

func TestTieredCache_ClearEmptiesBothTiers(t *testing.T) {
	store := newFakeStore()
	cache := newTestTieredCache(store)
	ctx := context.Background()

	cache.SetURLs(ctx, "dish-image-a", []string{"https://img/1.jpg"})
	cache.SetURL(ctx, "dish-thumbnail-b-default", "https://img/2.jpg")

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cache.Memory().Len() != 0 {
		t.Fatalf("L1 not empty after Clear")
	}
	if entries, _ := store.Stats(ctx); entries != 0 {
		t.Fatalf("L2 not empty after Clear, %d entries", entries)
	}
}
