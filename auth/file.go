// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type tokenFile struct {
	AccessToken string    `yaml:"access_token"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// FileTokenStore persists the token in a YAML file readable only by the
// owner, so it survives process restarts the way browser storage survives
// page reloads.
type FileTokenStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewFileTokenStore(path string, logger *zap.Logger) *FileTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileTokenStore{path: path, logger: logger}
}

func (s *FileTokenStore) Get(ctx context.Context) (string, bool) {
	observe(BackendFile, "get")
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("token file unreadable", zap.String("path", s.path), zap.Error(err))
		}
		return "", false
	}

	var tf tokenFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		s.logger.Warn("token file corrupt", zap.String("path", s.path), zap.Error(err))
		return "", false
	}
	return tf.AccessToken, tf.AccessToken != ""
}

func (s *FileTokenStore) Set(ctx context.Context, token string) {
	observe(BackendFile, "set")
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(tokenFile{AccessToken: token, UpdatedAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("failed to encode token file", zap.Error(err))
		return
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Warn("failed to write token file", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *FileTokenStore) Clear(ctx context.Context) {
	observe(BackendFile, "clear")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove token file", zap.String("path", s.path), zap.Error(err))
	}
}

// writeFileAtomic replaces path with data via a sibling temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
