// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/stretchr/testify/assert"
)

func TestTokenStoreInterface(t *testing.T) {
	ctx := context.Background()
	var store TokenStore = NewMemoryTokenStore()

	_, ok := store.Get(ctx)
	assert.False(t, ok)

	store.Set(ctx, "abc123")
	token, ok := store.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	store.Set(ctx, "fresh2")
	token, _ = store.Get(ctx)
	assert.Equal(t, "fresh2", token)

	store.Clear(ctx)
	_, ok = store.Get(ctx)
	assert.False(t, ok)

	// Clearing an empty store is a no-op
	assert.NotPanics(t, func() { store.Clear(ctx) })
	_, ok = store.Get(ctx)
	assert.False(t, ok)
}

func TestNopTokenStore(t *testing.T) {
	ctx := context.Background()
	var store TokenStore = NopTokenStore{}

	store.Set(ctx, "abc123")
	token, ok := store.Get(ctx)
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.NotPanics(t, func() { store.Clear(ctx) })
}

func TestNewTokenStore(t *testing.T) {
	cfg := config.Default()

	cfg.TokenStore.Backend = BackendMemory
	store, err := NewTokenStore(cfg, nil)
	assert.NoError(t, err)
	assert.IsType(t, &MemoryTokenStore{}, store)

	cfg.TokenStore.Backend = BackendFile
	cfg.TokenStore.File.Path = filepath.Join(t.TempDir(), "token.yaml")
	store, err = NewTokenStore(cfg, nil)
	assert.NoError(t, err)
	assert.IsType(t, &FileTokenStore{}, store)

	cfg.TokenStore.Backend = BackendNone
	store, err = NewTokenStore(cfg, nil)
	assert.NoError(t, err)
	assert.IsType(t, NopTokenStore{}, store)

	cfg.TokenStore.Backend = "cookie"
	_, err = NewTokenStore(cfg, nil)
	assert.Error(t, err)
}

func TestNewTokenStoreRedisUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.TokenStore.Backend = BackendRedis
	cfg.TokenStore.Redis.Host = "127.0.0.1"
	cfg.TokenStore.Redis.Port = 1

	_, err := NewTokenStore(cfg, nil)
	assert.Error(t, err)
}
