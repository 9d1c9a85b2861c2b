// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VA7DBI/storefrontAPI/auth"
	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJarCarriesRefreshCookie(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeAPI(t)
	path := filepath.Join(t.TempDir(), "cookies.yaml")

	cfg := config.Default()
	cfg.API.Domain = srv.URL

	// First process: log in and save the jar
	jar, err := LoadFileJar(path, cfg.BaseURL())
	require.NoError(t, err)
	store := auth.NewMemoryTokenStore()
	c, err := New(cfg, store, WithCookieJar(jar))
	require.NoError(t, err)
	require.NoError(t, c.Login(ctx, map[string]string{"email": "a@b.c", "password": "mango123"}))
	require.NoError(t, jar.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Second process: the stored token is stale, the saved cookie refreshes it
	store.Set(ctx, "stale")
	jar2, err := LoadFileJar(path, cfg.BaseURL())
	require.NoError(t, err)
	c2, err := New(cfg, store, WithCookieJar(jar2))
	require.NoError(t, err)

	resp, err := c2.Get(ctx, "/anything", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.mu.Lock()
	assert.Equal(t, []string{"cookie-r1"}, f.refreshCookies)
	f.mu.Unlock()
}

func TestFileJarSaveWithoutCookiesRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: refreshToken\n  value: old\n"), 0o600))

	jar, err := LoadFileJar(path, "http://localhost:5000/api/v1")
	require.NoError(t, err)
	require.Len(t, jar.Cookies(jar.origin), 1)

	jar.SetCookies(jar.origin, []*http.Cookie{{Name: "refreshToken", Value: "", Path: "/", MaxAge: -1}})
	require.NoError(t, jar.Save())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileJarDropsExpiredCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.yaml")
	stale := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	require.NoError(t, os.WriteFile(path, []byte("- name: refreshToken\n  value: old\n  expires: "+stale+"\n"), 0o600))

	jar, err := LoadFileJar(path, "http://localhost:5000/api/v1")
	require.NoError(t, err)
	assert.Empty(t, jar.Cookies(jar.origin))

	// Nothing to send, so the next save clears the file
	require.NoError(t, jar.Save())
	assert.NoFileExists(t, path)
}

func TestFileJarKeepsExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.yaml")
	jar, err := LoadFileJar(path, "http://localhost:5000/api/v1")
	require.NoError(t, err)

	before := time.Now()
	jar.SetCookies(jar.origin, []*http.Cookie{{Name: "refreshToken", Value: "r1", Path: "/", MaxAge: 3600}})
	require.NoError(t, jar.Save())

	loaded, err := LoadFileJar(path, "http://localhost:5000/api/v1")
	require.NoError(t, err)
	cookies := loaded.Cookies(loaded.origin)
	require.Len(t, cookies, 1)
	assert.Equal(t, "r1", cookies[0].Value)

	expires := loaded.expires["refreshToken"]
	assert.WithinDuration(t, before.Add(time.Hour), expires, 5*time.Second)

	// A second save carries the same expiry forward
	require.NoError(t, loaded.Save())
	again, err := LoadFileJar(path, "http://localhost:5000/api/v1")
	require.NoError(t, err)
	assert.True(t, expires.Equal(again.expires["refreshToken"]))
}
