// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"fmt"

	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/VA7DBI/storefrontAPI/logging"
	"github.com/VA7DBI/storefrontAPI/metrics"
	"go.uber.org/zap"
)

// TokenStore holds the current access token for one client session.
// Implementations never fail: when the medium is unavailable Get reports
// the token as absent and Set/Clear do nothing. They are safe for
// concurrent use.
type TokenStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string)
	Clear(ctx context.Context)
}

// Backend names accepted by NewTokenStore
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// NewTokenStore builds the backend named in cfg.TokenStore.Backend.
func NewTokenStore(cfg *config.Config, logger *zap.Logger) (TokenStore, error) {
	logger = logging.OrNop(logger)

	switch cfg.TokenStore.Backend {
	case BackendMemory:
		return NewMemoryTokenStore(), nil
	case BackendFile:
		return NewFileTokenStore(cfg.TokenStore.File.Path, logger), nil
	case BackendRedis:
		store, err := NewRedisTokenStore(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		return store, nil
	case BackendPostgres:
		store, err := NewPostgresTokenStore(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		return store, nil
	case BackendNone:
		return NopTokenStore{}, nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.TokenStore.Backend)
	}
}

func observe(backend, operation string) {
	metrics.TokenStoreOperations.WithLabelValues(backend, operation).Inc()
}
