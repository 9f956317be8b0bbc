package imagecache

import (
	"context"
	"time"
)

// PersistentStore is the durable L2 tier. Every implementation follows the
// errors-as-misses policy: storage failures degrade to a miss or a no-op and
// are never surfaced to the resolution path.
type PersistentStore interface {
	// Get returns the raw persisted payload, or false on miss. Reading an
	// expired record deletes it and reports a miss.
	Get(ctx context.Context, key string) (string, bool)
	// Set writes the payload with the given TTL, stamping the current time.
	Set(ctx context.Context, key, payload string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context) error
	// Cleanup removes records past their expiry. Stores whose backend expires
	// keys natively may no-op.
	Cleanup(ctx context.Context) error
	// Stats returns the live entry count and the total payload size in bytes.
	Stats(ctx context.Context) (entries int64, bytes int64)
	Ping(ctx context.Context) error
	Close() error
}
