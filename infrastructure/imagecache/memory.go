package imagecache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type memoryEntry struct {
	value    any
	storedAt time.Time
}

// MemoryCache is the in-process L1 tier: TTL-bound, capped in size, swept on a
// timer. Instances are constructed and injected explicitly so tests never
// share process-wide state.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	ttl           time.Duration
	maxEntries    int
	sweepInterval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewMemoryCache(ttl time.Duration, maxEntries int, sweepInterval time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	return &MemoryCache{
		entries:       make(map[string]memoryEntry),
		ttl:           ttl,
		maxEntries:    maxEntries,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Configure adjusts the TTL and entry cap at runtime. Lowering the cap trims
// oldest-first immediately; non-positive values leave the current setting.
func (c *MemoryCache) Configure(ttl time.Duration, maxEntries int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl > 0 {
		c.ttl = ttl
	}
	if maxEntries > 0 {
		c.maxEntries = maxEntries
	}
	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked(len(c.entries) - c.maxEntries)
	}
}

// Get returns the cached value for key. An entry past its TTL is removed and
// reported as a miss.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stamps the entry with the current time. If the cap is exceeded the
// oldest entries are evicted down to the cap.
func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{value: value, storedAt: time.Now()}
	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked(len(c.entries) - c.maxEntries)
	}
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep purges expired entries and trims oldest-first down to the cap.
func (c *MemoryCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked(len(c.entries) - c.maxEntries)
	}
}

func (c *MemoryCache) evictOldestLocked(n int) {
	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key: key, storedAt: entry.storedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].storedAt.Before(all[j].storedAt)
	})
	for i := 0; i < n && i < len(all); i++ {
		delete(c.entries, all[i].key)
	}
}

// Start launches the periodic sweep. Stop (or ctx cancellation) ends it.
func (c *MemoryCache) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				logrus.Debug("[IMAGE_CACHE] Running scheduled L1 sweep")
				c.Sweep()
			}
		}
	}()
}

func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}
