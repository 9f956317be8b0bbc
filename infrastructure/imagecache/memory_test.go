package imagecache

import (
	"fmt"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 100, time.Hour)

	if _, ok := cache.Get("missing"); ok {
		t.Fatalf("Get() reported a hit on an empty cache")
	}

	cache.Set("k", []string{"https://img/1.jpg"})
	value, ok := cache.Get("k")
	if !ok {
		t.Fatalf("Get() missed a freshly written entry")
	}
	urls, ok := value.([]string)
	if !ok || len(urls) != 1 {
		t.Fatalf("Get() = %#v, want single-url slice", value)
	}
}

func TestMemoryCache_ExpiredEntryIsMissAndRemoved(t *testing.T) {
	cache := NewMemoryCache(10*time.Millisecond, 100, time.Hour)
	cache.Set("k", "v")

	time.Sleep(25 * time.Millisecond)

	if _, ok := cache.Get("k"); ok {
		t.Fatalf("Get() returned an entry past its TTL")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry was not removed on read, len = %d", cache.Len())
	}
}

func TestMemoryCache_CapEvictsOldest(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 100, time.Hour)

	for i := 0; i < 101; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), i)
		// Distinct timestamps so eviction order is well defined.
		time.Sleep(time.Millisecond)
	}

	if cache.Len() != 100 {
		t.Fatalf("len = %d after 101 inserts, want 100", cache.Len())
	}
	if _, ok := cache.Get("key-0"); ok {
		t.Fatalf("oldest entry survived eviction")
	}
	if _, ok := cache.Get("key-100"); !ok {
		t.Fatalf("newest entry was evicted")
	}
}

func TestMemoryCache_ConfigureTrimsAndRetimes(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 100, time.Hour)

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), i)
		time.Sleep(time.Millisecond)
	}

	// A lower cap trims oldest-first right away.
	cache.Configure(time.Hour, 2)
	if cache.Len() != 2 {
		t.Fatalf("len = %d after lowering cap to 2", cache.Len())
	}
	if _, ok := cache.Get("key-4"); !ok {
		t.Fatalf("newest entry was trimmed")
	}

	// A lower TTL applies to entries already stored.
	cache.Configure(5*time.Millisecond, 2)
	time.Sleep(15 * time.Millisecond)
	if _, ok := cache.Get("key-4"); ok {
		t.Fatalf("entry survived the lowered TTL")
	}

	// Non-positive values leave the current settings alone.
	cache.Configure(0, 0)
	cache.Set("a", 1)
	cache.Set("b", 2)
	if cache.Len() == 0 {
		t.Fatalf("zero-value Configure clobbered the entry cap")
	}
}

func TestMemoryCache_SweepPurgesExpired(t *testing.T) {
	cache := NewMemoryCache(10*time.Millisecond, 100, time.Hour)
	cache.Set("old", 1)
	time.Sleep(25 * time.Millisecond)
	cache.Set("fresh", 2)

	cache.Sweep()

	if _, ok := cache.Get("old"); ok {
		t.Fatalf("Sweep() kept an expired entry")
	}
	if _, ok := cache.Get("fresh"); !ok {
		t.Fatalf("Sweep() removed a live entry")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 100, time.Hour)
	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Clear()

	if cache.Len() != 0 {
		t.Fatalf("Clear() left %d entries", cache.Len())
	}
}
