// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package mockapi

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRefresh = errors.New("refresh token invalid or expired")

type Session struct {
	Subject string
	Scope   string
	Expires time.Time
}

// SessionRegistry issues and validates access and refresh tokens in memory.
type SessionRegistry struct {
	mu         sync.Mutex
	access     map[string]Session
	refresh    map[string]Session
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSessionRegistry(accessTTL, refreshTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{
		access:     make(map[string]Session),
		refresh:    make(map[string]Session),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue starts a session and returns its access and refresh tokens.
func (r *SessionRegistry) Issue(subject, scope string) (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	access := uuid.NewString()
	refresh := uuid.NewString()
	r.access[access] = Session{Subject: subject, Scope: scope, Expires: now.Add(r.accessTTL)}
	r.refresh[refresh] = Session{Subject: subject, Scope: scope, Expires: now.Add(r.refreshTTL)}
	return access, refresh
}

// Refresh mints a new access token for a live refresh token of scope.
func (r *SessionRegistry) Refresh(refreshToken, scope string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.refresh[refreshToken]
	if !ok || s.Scope != scope || !r.now().Before(s.Expires) {
		return "", ErrInvalidRefresh
	}

	access := uuid.NewString()
	r.access[access] = Session{Subject: s.Subject, Scope: s.Scope, Expires: r.now().Add(r.accessTTL)}
	return access, nil
}

// Revoke ends the session behind a refresh token.
func (r *SessionRegistry) Revoke(refreshToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, refreshToken)
}

// ExpireAccess forces an access token to be rejected from now on.
func (r *SessionRegistry) ExpireAccess(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.access, token)
}

// ValidateToken implements middleware.TokenValidator.
func (r *SessionRegistry) ValidateToken(token string) (bool, error) {
	_, ok := r.Lookup(token)
	return ok, nil
}

// Lookup returns the session of a live access token.
func (r *SessionRegistry) Lookup(token string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.access[token]
	if !ok {
		return Session{}, false
	}
	if !r.now().Before(s.Expires) {
		delete(r.access, token)
		return Session{}, false
	}
	return s, true
}
