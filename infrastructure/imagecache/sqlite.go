package imagecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapfood/snapfood-engine/core/database"
)

// CacheEntry is the persisted L2 record. Payload carries the serialized
// {data, expiry} envelope; the expiry column duplicates the deadline so stale
// rows can be deleted without parsing JSON.
type CacheEntry struct {
	CacheKey string `gorm:"column:cache_key;primaryKey"`
	Payload  string `gorm:"column:payload"`
	Expiry   int64  `gorm:"column:expiry;index"`
}

func (CacheEntry) TableName() string {
	return "image_cache_entries"
}

// SQLiteStore is the default persistent tier, backed by a local SQLite file.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CacheEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool) {
	var entry CacheEntry
	err := s.db.WithContext(ctx).First(&entry, "cache_key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Debug("[IMAGE_CACHE] L2 read failed, treating as miss")
		}
		return "", false
	}
	if time.Now().UnixMilli() > entry.Expiry {
		s.Delete(ctx, key)
		return "", false
	}
	return entry.Payload, true
}

func (s *SQLiteStore) Set(ctx context.Context, key, payload string, ttl time.Duration) {
	entry := CacheEntry{
		CacheKey: key,
		Payload:  payload,
		Expiry:   time.Now().Add(ttl).UnixMilli(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
	if err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] L2 write failed, continuing without persistence")
	}
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) {
	if err := s.db.WithContext(ctx).Delete(&CacheEntry{}, "cache_key = ?", key).Error; err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] L2 delete failed")
	}
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&CacheEntry{}).Error
}

func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expiry <= ?", time.Now().UnixMilli()).
		Delete(&CacheEntry{}).Error
}

func (s *SQLiteStore) Stats(ctx context.Context) (int64, int64) {
	now := time.Now().UnixMilli()
	var entries int64
	if err := s.db.WithContext(ctx).Model(&CacheEntry{}).Where("expiry > ?", now).Count(&entries).Error; err != nil {
		return 0, 0
	}
	var bytes int64
	row := s.db.WithContext(ctx).Model(&CacheEntry{}).
		Where("expiry > ?", now).
		Select("COALESCE(SUM(LENGTH(payload)), 0)").Row()
	if err := row.Scan(&bytes); err != nil {
		return entries, 0
	}
	return entries, bytes
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
