package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which receipt a (owner, key) pair already produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, owner, key string) (*entity.ScanReceipt, error)
	Remember(ctx context.Context, owner, key string, receipt entity.ScanReceipt) error
	// Replace overwrites the stored receipt, used when a memory-only scan is made durable.
	Replace(ctx context.Context, owner, key string, receipt entity.ScanReceipt) error
}

func idempotencyKey(owner, key string) string {
	return "idem:scan:" + owner + ":" + key
}

type cacheIdempotencyStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewCacheIdempotencyStore keeps keys in process memory.
func NewCacheIdempotencyStore(ttl time.Duration) IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &cacheIdempotencyStore{cache: cache.New(ttl, 10*time.Minute), ttl: ttl}
}

func (s *cacheIdempotencyStore) Lookup(ctx context.Context, owner, key string) (*entity.ScanReceipt, error) {
	if x, found := s.cache.Get(idempotencyKey(owner, key)); found {
		receipt := x.(entity.ScanReceipt)
		return &receipt, nil
	}
	return nil, nil
}

func (s *cacheIdempotencyStore) Remember(ctx context.Context, owner, key string, receipt entity.ScanReceipt) error {
	// Add fails when the key exists, so the first receipt wins a race.
	_ = s.cache.Add(idempotencyKey(owner, key), receipt, s.ttl)
	return nil
}

func (s *cacheIdempotencyStore) Replace(ctx context.Context, owner, key string, receipt entity.ScanReceipt) error {
	s.cache.Set(idempotencyKey(owner, key), receipt, s.ttl)
	return nil
}

type redisIdempotencyStore struct {
	rdb      *redis.Client
	ttl      time.Duration
	fallback IdempotencyStore
	logger   logger.ILogger
}

// NewRedisIdempotencyStore shares keys across instances and falls back to memory when Redis fails.
func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration, log logger.ILogger) IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &redisIdempotencyStore{
		rdb:      rdb,
		ttl:      ttl,
		fallback: NewCacheIdempotencyStore(ttl),
		logger:   log,
	}
}

func (s *redisIdempotencyStore) Lookup(ctx context.Context, owner, key string) (*entity.ScanReceipt, error) {
	raw, err := s.rdb.Get(ctx, idempotencyKey(owner, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.fallback.Lookup(ctx, owner, key)
	}
	if err != nil {
		s.logger.Warn("IdempotencyStore", "Redis lookup failed, using local cache", map[string]interface{}{"error": err})
		return s.fallback.Lookup(ctx, owner, key)
	}

	var receipt entity.ScanReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *redisIdempotencyStore) Remember(ctx context.Context, owner, key string, receipt entity.ScanReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	if err := s.rdb.SetNX(ctx, idempotencyKey(owner, key), data, s.ttl).Err(); err != nil {
		s.logger.Warn("IdempotencyStore", "Redis write failed, using local cache", map[string]interface{}{"error": err})
		return s.fallback.Remember(ctx, owner, key, receipt)
	}
	return nil
}

func (s *redisIdempotencyStore) Replace(ctx context.Context, owner, key string, receipt entity.ScanReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	// The local copy may hold the old receipt from a Redis outage.
	_ = s.fallback.Replace(ctx, owner, key, receipt)
	if err := s.rdb.Set(ctx, idempotencyKey(owner, key), data, s.ttl).Err(); err != nil {
		s.logger.Warn("IdempotencyStore", "Redis write failed, using local cache", map[string]interface{}{"error": err})
	}
	return nil
}
