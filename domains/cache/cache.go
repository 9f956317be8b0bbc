package cache

import "context"

type CacheStats struct {
	MemoryEntries     int    `json:"memory_entries"`
	PersistentEntries int    `json:"persistent_entries"`
	TotalSize         int64  `json:"total_size"`
	HumanSize         string `json:"human_size"`
}

type CacheSettings struct {
	Enabled           bool `json:"enabled"`
	TTLHours          int  `json:"ttl_hours"`
	MaxEntries        int  `json:"max_entries"`
	SweepIntervalMins int  `json:"sweep_interval_mins"`
}

type ICacheUsecase interface {
	GetStats(ctx context.Context) (CacheStats, error)
	ClearCache(ctx context.Context) error

	GetSettings(ctx context.Context) (CacheSettings, error)
	SaveSettings(ctx context.Context, settings CacheSettings) error
	StartBackgroundCleanup(ctx context.Context)
}
