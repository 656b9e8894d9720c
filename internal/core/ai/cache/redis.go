package cache

import (
	"context"
	"fmt"

	"pantrypal/internal/infrastructure/config"
	"pantrypal/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore Redis 後端的 AI 回應快取
type RedisStore struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewRedisStore 創建 Redis 快取
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis response cache initialized",
		zap.String("addr", cfg.Cache.RedisAddr),
		zap.Duration("ttl", cfg.Cache.TTL),
	)

	return &RedisStore{
		client: client,
		config: &cfg.Cache,
	}, nil
}

// Get 獲取緩存值
func (s *RedisStore) Get(ctx context.Context, prompt string) (string, bool) {
	value, err := s.client.Get(ctx, cacheKey(prompt)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		common.LogWarn("Redis cache lookup failed", zap.Error(err))
		return "", false
	}
	return value, true
}

// Set 設置緩存值
func (s *RedisStore) Set(ctx context.Context, prompt, value string) {
	if err := s.client.Set(ctx, cacheKey(prompt), value, s.config.TTL).Err(); err != nil {
		common.LogWarn("Redis cache store failed", zap.Error(err))
	}
}

// Close 關閉連接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
