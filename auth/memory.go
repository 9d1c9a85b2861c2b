// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"sync"
)

// MemoryTokenStore keeps the token in process memory. Used by tests and
// short-lived processes where nothing needs to survive a restart.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Get(ctx context.Context) (string, bool) {
	observe(BackendMemory, "get")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *MemoryTokenStore) Set(ctx context.Context, token string) {
	observe(BackendMemory, "set")
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryTokenStore) Clear(ctx context.Context) {
	observe(BackendMemory, "clear")
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
}

// NopTokenStore stands in for an unavailable storage medium.
type NopTokenStore struct{}

func (NopTokenStore) Get(ctx context.Context) (string, bool) { return "", false }
func (NopTokenStore) Set(ctx context.Context, token string) {}
func (NopTokenStore) Clear(ctx context.Context) {}
