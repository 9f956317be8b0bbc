package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/snapfood/snapfood-engine/core/config"
	domainCache "github.com/snapfood/snapfood-engine/domains/cache"
	"github.com/snapfood/snapfood-engine/infrastructure/imagecache"
)

type cacheService struct {
	cache *imagecache.TieredCache
}

func NewCacheService(cache *imagecache.TieredCache) domainCache.ICacheUsecase {
	return &cacheService{cache: cache}
}

func (s *cacheService) openSettingsDB() (*sql.DB, error) {
	dbPath := fmt.Sprintf("%s/settings.db", config.Global.Paths.Storages)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_settings (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (s *cacheService) GetSettings(ctx context.Context) (domainCache.CacheSettings, error) {
	settings := domainCache.CacheSettings{
		Enabled:           true,
		TTLHours:          24,
		MaxEntries:        100,
		SweepIntervalMins: 60,
	}

	db, err := s.openSettingsDB()
	if err != nil {
		return settings, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM global_settings WHERE key LIKE 'cache_%'`)
	if err != nil {
		return settings, nil
	}
	defer rows.Close()

	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err == nil {
			switch key {
			case "cache_enabled":
				settings.Enabled = val == "1" || val == "true"
			case "cache_ttl_hours":
				if n, err := strconv.Atoi(val); err == nil {
					settings.TTLHours = n
				}
			case "cache_max_entries":
				if n, err := strconv.Atoi(val); err == nil {
					settings.MaxEntries = n
				}
			case "cache_sweep_interval":
				if n, err := strconv.Atoi(val); err == nil {
					settings.SweepIntervalMins = n
				}
			}
		}
	}

	return settings, nil
}

func (s *cacheService) SaveSettings(ctx context.Context, settings domainCache.CacheSettings) error {
	db, err := s.openSettingsDB()
	if err != nil {
		return err
	}
	defer db.Close()

	save := func(key, val string) error {
		_, err := db.ExecContext(ctx, `INSERT INTO global_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, val)
		return err
	}

	enabledStr := "0"
	if settings.Enabled {
		enabledStr = "1"
	}

	pairs := [][2]string{
		{"cache_enabled", enabledStr},
		{"cache_ttl_hours", strconv.Itoa(settings.TTLHours)},
		{"cache_max_entries", strconv.Itoa(settings.MaxEntries)},
		{"cache_sweep_interval", strconv.Itoa(settings.SweepIntervalMins)},
	}
	for _, pair := range pairs {
		if err := save(pair[0], pair[1]); err != nil {
			return err
		}
	}

	s.applySettings(settings)
	return nil
}

// applySettings pushes the persisted TTL and entry cap onto the live tiers so
// a settings change takes effect without a restart.
func (s *cacheService) applySettings(settings domainCache.CacheSettings) {
	ttl := time.Duration(settings.TTLHours) * time.Hour
	s.cache.Memory().Configure(ttl, settings.MaxEntries)
	s.cache.SetTTL(ttl)
}

func (s *cacheService) GetStats(ctx context.Context) (domainCache.CacheStats, error) {
	entries, bytes := s.cache.Store().Stats(ctx)
	return domainCache.CacheStats{
		MemoryEntries:     s.cache.Memory().Len(),
		PersistentEntries: int(entries),
		TotalSize:         bytes,
		HumanSize:         humanize.Bytes(uint64(bytes)),
	}, nil
}

func (s *cacheService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// StartBackgroundCleanup drives the periodic maintenance of both tiers:
// sweeping the memory tier and purging expired persistent records.
func (s *cacheService) StartBackgroundCleanup(ctx context.Context) {
	go func() {
		for {
			settings, err := s.GetSettings(context.Background())
			if err != nil || !settings.Enabled {
				// Wait 5 minutes and check again if not enabled or error
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Minute):
					continue
				}
			}

			logrus.Info("[CACHE] Running scheduled cleanup...")
			s.applySettings(settings)
			s.cache.Memory().Sweep()
			if err := s.cache.Store().Cleanup(ctx); err != nil {
				logrus.WithError(err).Warn("[CACHE] Persistent tier cleanup failed")
			}

			interval := time.Duration(settings.SweepIntervalMins) * time.Minute
			if interval < 5*time.Minute {
				interval = 5 * time.Minute
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()
}
