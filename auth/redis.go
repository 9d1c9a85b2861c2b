// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisTokenStore keeps the token under a single Redis key, shared by every
// process pointed at the same key.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisTokenStore(cfg *config.Config, logger *zap.Logger) (*RedisTokenStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.TokenStore.Redis.Host, cfg.TokenStore.Redis.Port),
		Password: cfg.TokenStore.Redis.Password,
		DB:       cfg.TokenStore.Redis.DB,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisTokenStore{
		client: client,
		key:    cfg.TokenStore.Redis.Key,
		ttl:    time.Duration(cfg.TokenStore.Redis.KeyTTL) * time.Second,
		logger: logger,
	}, nil
}

func (s *RedisTokenStore) Get(ctx context.Context) (string, bool) {
	observe(BackendRedis, "get")
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("redis token read failed", zap.String("key", s.key), zap.Error(err))
		return "", false
	}
	return token, token != ""
}

func (s *RedisTokenStore) Set(ctx context.Context, token string) {
	observe(BackendRedis, "set")
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		s.logger.Warn("redis token write failed", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *RedisTokenStore) Clear(ctx context.Context) {
	observe(BackendRedis, "clear")
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Warn("redis token delete failed", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
