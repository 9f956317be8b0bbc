package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapfood/snapfood-engine/core/config"
	"github.com/snapfood/snapfood-engine/domains/health"
	"github.com/snapfood/snapfood-engine/infrastructure/imagecache"
	"github.com/snapfood/snapfood-engine/infrastructure/valkey"
)

type healthService struct {
	cache  *imagecache.TieredCache
	valkey *valkey.Client

	mu      sync.Mutex
	records map[health.EntityType]health.HealthRecord
}

func NewHealthService(cache *imagecache.TieredCache, valkeyClient *valkey.Client) health.IHealthUsecase {
	return &healthService{
		cache:   cache,
		valkey:  valkeyClient,
		records: make(map[health.EntityType]health.HealthRecord),
	}
}

func (s *healthService) upsertStatus(r health.HealthRecord) {
	r.LastChecked = time.Now()
	s.mu.Lock()
	s.records[r.EntityType] = r
	s.mu.Unlock()
}

func (s *healthService) checkCacheDB(ctx context.Context) health.HealthRecord {
	record := health.HealthRecord{
		EntityType: health.EntityCacheDB,
		Status:     health.StatusOk,
	}

	if err := s.cache.Store().Ping(ctx); err != nil {
		record.Status = health.StatusError
		record.LastMessage = err.Error()
	} else {
		record.LastMessage = "Connection successful"
	}

	s.upsertStatus(record)
	return record
}

func (s *healthService) checkValkey(ctx context.Context) health.HealthRecord {
	record := health.HealthRecord{
		EntityType: health.EntityValkey,
		Status:     health.StatusOk,
	}

	if s.valkey == nil {
		record.Status = health.StatusUnknown
		record.LastMessage = "Valkey not enabled"
	} else if err := s.valkey.Ping(ctx); err != nil {
		record.Status = health.StatusError
		record.LastMessage = err.Error()
	} else {
		record.LastMessage = "Connection successful"
	}

	s.upsertStatus(record)
	return record
}

func (s *healthService) checkUpstream(ctx context.Context) health.HealthRecord {
	record := health.HealthRecord{
		EntityType: health.EntityUpstream,
		Status:     health.StatusOk,
	}

	// The matcher workflow has no dedicated ping endpoint, so the check is
	// limited to whether a key is configured at all.
	if config.Global.Dify.MatcherAPIKey == "" {
		record.Status = health.StatusError
		record.LastMessage = "No API key configured for the image matcher"
	} else {
		record.LastMessage = "API key configured"
	}

	s.upsertStatus(record)
	return record
}

func (s *healthService) CheckAll(ctx context.Context) ([]health.HealthRecord, error) {
	results := []health.HealthRecord{
		s.checkCacheDB(ctx),
		s.checkValkey(ctx),
		s.checkUpstream(ctx),
	}

	for _, r := range results {
		if r.Status == health.StatusError {
			logrus.Warnf("[HEALTH] %s: %s", r.EntityType, r.LastMessage)
		}
	}

	return results, nil
}

func (s *healthService) GetStatus(ctx context.Context) ([]health.HealthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entities := []health.EntityType{health.EntityCacheDB, health.EntityValkey, health.EntityUpstream}
	records := make([]health.HealthRecord, 0, len(entities))
	for _, entity := range entities {
		if r, ok := s.records[entity]; ok {
			records = append(records, r)
			continue
		}
		records = append(records, health.HealthRecord{
			EntityType: entity,
			Status:     health.StatusUnknown,
		})
	}
	return records, nil
}
