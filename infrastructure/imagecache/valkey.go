package imagecache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/snapfood/snapfood-engine/infrastructure/valkey"
)

// ValkeyStore is the alternative persistent tier for deployments that already
// run a Valkey instance. Expiration is delegated to the server via PX.
type ValkeyStore struct {
	client *valkey.Client
	prefix string
}

func NewValkeyStore(client *valkey.Client) *ValkeyStore {
	return &ValkeyStore{
		client: client,
		prefix: client.Key("imagecache") + ":",
	}
}

func (s *ValkeyStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *ValkeyStore) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool) {
	cmd := s.inner().B().Get().Key(s.fullKey(key)).Build()
	payload, err := s.inner().Do(ctx, cmd).ToString()
	if err != nil {
		if !valkeylib.IsValkeyNil(err) {
			logrus.WithError(err).Debug("[IMAGE_CACHE] Valkey read failed, treating as miss")
		}
		return "", false
	}
	return payload, true
}

func (s *ValkeyStore) Set(ctx context.Context, key, payload string, ttl time.Duration) {
	cmd := s.inner().B().Set().
		Key(s.fullKey(key)).
		Value(payload).
		Px(ttl).
		Build()
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] Valkey write failed, continuing without persistence")
	}
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) {
	cmd := s.inner().B().Del().Key(s.fullKey(key)).Build()
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] Valkey delete failed")
	}
}

func (s *ValkeyStore) Clear(ctx context.Context) error {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	cmd := s.inner().B().Del().Key(keys...).Build()
	return s.inner().Do(ctx, cmd).Error()
}

// Cleanup is a no-op; Valkey expires keys natively via PX.
func (s *ValkeyStore) Cleanup(ctx context.Context) error {
	return nil
}

func (s *ValkeyStore) Stats(ctx context.Context) (int64, int64) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		logrus.WithError(err).Debug("[IMAGE_CACHE] Valkey scan failed during stats")
		return 0, 0
	}
	if len(keys) == 0 {
		return 0, 0
	}
	var bytes int64
	cmd := s.inner().B().Mget().Key(keys...).Build()
	values, err := s.inner().Do(ctx, cmd).AsStrSlice()
	if err == nil {
		for _, val := range values {
			bytes += int64(len(val))
		}
	}
	return int64(len(keys)), bytes
}

func (s *ValkeyStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := s.inner().B().Scan().Cursor(cursor).Match(s.prefix + "*").Count(100).Build()
		result, err := s.inner().Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, err
		}
		keys = append(keys, result.Elements...)
		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
