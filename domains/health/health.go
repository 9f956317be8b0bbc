package health

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityCacheDB  EntityType = "cache_db"
	EntityValkey   EntityType = "valkey"
	EntityUpstream EntityType = "image_matcher"
)

type Status string

const (
	StatusOk      Status = "OK"
	StatusError   Status = "ERROR"
	StatusUnknown Status = "UNKNOWN"
)

type HealthRecord struct {
	EntityType  EntityType `json:"entity_type"`
	Status      Status     `json:"status"`
	LastMessage string     `json:"last_message"`
	LastChecked time.Time  `json:"last_checked"`
}

type IHealthUsecase interface {
	CheckAll(ctx context.Context) ([]HealthRecord, error)
	GetStatus(ctx context.Context) ([]HealthRecord, error)
}
