package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fleet-analytics-api/config"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// CacheService wraps the optional Redis connection. A nil client means Redis
// is disabled or unreachable; callers check Available and fall back to
// in-process state.
type CacheService struct {
	client *redis.Client
}

// NewCacheService connects and pings Redis, retrying while it starts up.
// On failure it still returns a usable, unavailable service.
func NewCacheService(cfg config.RedisConfig, log *zap.SugaredLogger) (*CacheService, error) {
	if !cfg.Enabled {
		return &CacheService{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	const attempts = 5
	var lastErr error
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return NewCacheServiceFromClient(client), nil
		}
		log.Warnw("redis ping failed", "attempt", i+1, "of", attempts, "error", lastErr)
		time.Sleep(time.Second)
	}
	_ = client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", attempts, lastErr)
}

func NewCacheServiceFromClient(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

func (s *CacheService) Get(ctx context.Context, key string) ([]byte, error) {
	if !s.Available() {
		return nil, ErrCacheMiss
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (s *CacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, payload []byte) error {
	if !s.Available() {
		return nil
	}
	return s.client.Publish(ctx, channel, payload).Err()
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
