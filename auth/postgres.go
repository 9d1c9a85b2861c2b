// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresTokenStore keeps one row per named session in a token table.
type PostgresTokenStore struct {
	db      *sql.DB
	table   string
	session string
	logger  *zap.Logger
}

func NewPostgresTokenStore(cfg *config.Config, logger *zap.Logger) (*PostgresTokenStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.TokenStore.Postgres.Host,
		cfg.TokenStore.Postgres.Port,
		cfg.TokenStore.Postgres.User,
		cfg.TokenStore.Postgres.Password,
		cfg.TokenStore.Postgres.DBName,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	store := newPostgresTokenStore(db, cfg.TokenStore.Postgres.Table, cfg.TokenStore.Postgres.Session, logger)
	if err := store.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresTokenStore(db *sql.DB, table, session string, logger *zap.Logger) *PostgresTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresTokenStore{
		db:      db,
		table:   pq.QuoteIdentifier(table),
		session: session,
		logger:  logger,
	}
}

// EnsureSchema creates the token table when it does not exist yet.
func (s *PostgresTokenStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create token table: %w", err)
	}
	return nil
}

func (s *PostgresTokenStore) Get(ctx context.Context) (string, bool) {
	observe(BackendPostgres, "get")
	var token string
	query := fmt.Sprintf("SELECT token FROM %s WHERE session = $1", s.table)
	err := s.db.QueryRowContext(ctx, query, s.session).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("postgres token read failed", zap.String("session", s.session), zap.Error(err))
		return "", false
	}
	return token, token != ""
}

func (s *PostgresTokenStore) Set(ctx context.Context, token string) {
	observe(BackendPostgres, "set")
	query := fmt.Sprintf(`INSERT INTO %s (session, token, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (session) DO UPDATE SET token = EXCLUDED.token, updated_at = NOW()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, s.session, token); err != nil {
		s.logger.Warn("postgres token write failed", zap.String("session", s.session), zap.Error(err))
	}
}

func (s *PostgresTokenStore) Clear(ctx context.Context) {
	observe(BackendPostgres, "clear")
	query := fmt.Sprintf("DELETE FROM %s WHERE session = $1", s.table)
	if _, err := s.db.ExecContext(ctx, query, s.session); err != nil {
		s.logger.Warn("postgres token delete failed", zap.String("session", s.session), zap.Error(err))
	}
}

func (s *PostgresTokenStore) Close() error {
	return s.db.Close()
}
