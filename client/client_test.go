// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/VA7DBI/storefrontAPI/auth"
	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a scripted backend that records what the client sends.
type fakeAPI struct {
	mu sync.Mutex

	valid        map[string]bool
	authHeaders  map[string][]string
	bodies       map[string][]string
	unauthorized int

	refreshCalls   int
	refreshCookies []string
	refreshStatus  int
	refreshBody    func(n int) string
	// refreshWaitFor holds every refresh until that many 401s were served
	refreshWaitFor  int
	refreshHangup   bool
	rejectRefreshed bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	gin.SetMode(gin.TestMode)

	f := &fakeAPI{
		valid:         make(map[string]bool),
		authHeaders:   make(map[string][]string),
		bodies:        make(map[string][]string),
		refreshStatus: http.StatusOK,
		refreshBody: func(n int) string {
			return `{"success":true,"tokens":{"accessToken":"fresh2"}}`
		},
	}

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/users/auth/refresh", f.handleRefresh)
	api.POST("/users/auth/login", f.handleLogin)
	api.POST("/users/auth/logout", func(c *gin.Context) {
		c.SetCookie("refreshToken", "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	api.GET("/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"message": "database unavailable"}})
	})
	api.GET("/slow", func(c *gin.Context) {
		time.Sleep(500 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	r.NoRoute(f.handleResource)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) handleResource(c *gin.Context) {
	path := strings.TrimPrefix(c.Request.URL.Path, "/api/v1")
	body, _ := io.ReadAll(c.Request.Body)
	header := c.GetHeader("Authorization")

	f.mu.Lock()
	f.authHeaders[path] = append(f.authHeaders[path], header)
	f.bodies[path] = append(f.bodies[path], string(body))
	token := strings.TrimPrefix(header, "Bearer ")
	ok := strings.HasPrefix(path, "/public") || f.valid[token]
	if !ok {
		f.unauthorized++
	}
	f.mu.Unlock()

	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "jwt expired"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"path": path}})
}

func (f *fakeAPI) handleRefresh(c *gin.Context) {
	cookie, _ := c.Cookie("refreshToken")

	f.mu.Lock()
	f.refreshCalls++
	n := f.refreshCalls
	f.refreshCookies = append(f.refreshCookies, cookie)
	waitFor := f.refreshWaitFor
	hangup := f.refreshHangup
	f.mu.Unlock()

	if hangup {
		conn, _, err := c.Writer.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	if waitFor > 0 {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			f.mu.Lock()
			done := f.unauthorized >= waitFor
			f.mu.Unlock()
			if done {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		// let the last 401 reach its client before answering
		time.Sleep(100 * time.Millisecond)
	}

	body := f.refreshBody(n)
	var issued tokenResponse
	_ = json.Unmarshal([]byte(body), &issued)

	f.mu.Lock()
	if issued.Success && issued.Tokens.AccessToken != "" && !f.rejectRefreshed {
		f.valid[issued.Tokens.AccessToken] = true
	}
	status := f.refreshStatus
	f.mu.Unlock()

	c.Data(status, "application/json", []byte(body))
}

func (f *fakeAPI) handleLogin(c *gin.Context) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Password != "mango123" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "invalid credentials"}})
		return
	}
	f.mu.Lock()
	f.valid["login1"] = true
	f.mu.Unlock()
	c.SetCookie("refreshToken", "cookie-r1", 3600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": gin.H{"accessToken": "login1"}})
}

func (f *fakeAPI) headers(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeaders[path]...)
}

func (f *fakeAPI) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func newTestClient(t *testing.T, srv *httptest.Server, store auth.TokenStore, mode string) *Client {
	cfg := config.Default()
	cfg.API.Domain = srv.URL
	cfg.API.RefreshMode = mode

	c, err := New(cfg, store)
	require.NoError(t, err)
	return c
}

func storeWith(token string) *auth.MemoryTokenStore {
	store := auth.NewMemoryTokenStore()
	if token != "" {
		store.Set(context.Background(), token)
	}
	return store
}

func TestSuccessPath(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.valid["abc123"] = true
	c := newTestClient(t, srv, storeWith("abc123"), config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/products", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer abc123"}, api.headers("/products"))
	assert.Equal(t, 0, api.refreshes())
}

func TestRecoverableExpiry(t *testing.T) {
	api, srv := newFakeAPI(t)
	store := storeWith("expired1")
	c := newTestClient(t, srv, store, config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/orders/55", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	token, ok := store.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "fresh2", token)
	assert.Equal(t, []string{"Bearer expired1", "Bearer fresh2"}, api.headers("/orders/55"))
	assert.Equal(t, 1, api.refreshes())

	var data struct {
		Path string `json:"path"`
	}
	_, err = resp.Decode(&data)
	assert.NoError(t, err)
	assert.Equal(t, "/orders/55", data.Path)
}

func TestUnrecoverableExpiry(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.refreshBody = func(int) string { return `{"success":false}` }
	store := storeWith("expired1")
	c := newTestClient(t, srv, store, config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/orders/55", nil)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, ErrSessionExpired))

	_, ok := store.Get(context.Background())
	assert.False(t, ok)
	assert.Equal(t, []string{"Bearer expired1"}, api.headers("/orders/55"))
	assert.Equal(t, 1, api.refreshes())
}

func TestRefreshRejectedByStatus(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.refreshStatus = http.StatusUnauthorized
	api.refreshBody = func(int) string { return `{"success":false,"error":{"message":"refresh token revoked"}}` }
	store := storeWith("expired1")
	c := newTestClient(t, srv, store, config.RefreshIndependent)

	_, err := c.Post(context.Background(), "/orders", map[string]int{"qty": 1})
	assert.True(t, errors.Is(err, ErrSessionExpired))
	_, ok := store.Get(context.Background())
	assert.False(t, ok)
	assert.Len(t, api.headers("/orders"), 1)
}

func TestRefreshWithoutToken(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.refreshBody = func(int) string { return `{"success":true,"tokens":{}}` }
	c := newTestClient(t, srv, storeWith("expired1"), config.RefreshCoalesced)

	_, err := c.Get(context.Background(), "/orders/55", nil)
	assert.True(t, errors.Is(err, ErrSessionExpired))
}

func TestReplayUnauthorizedIsFinal(t *testing.T) {
	api, srv := newFakeAPI(t)
	// The refreshed token is never accepted, so the replay also gets a 401
	api.refreshBody = func(int) string { return `{"success":true,"tokens":{"accessToken":"rejected3"}}` }
	api.rejectRefreshed = true
	c := newTestClient(t, srv, storeWith("expired1"), config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/orders/55", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, api.refreshes())
	assert.Equal(t, []string{"Bearer expired1", "Bearer rejected3"}, api.headers("/orders/55"))
}

func TestOtherFailuresPassThrough(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv, storeWith("abc123"), config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/broken", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 0, api.refreshes())

	_, err = resp.Decode(nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "database unavailable", apiErr.Message)
}

func TestNoTokenSendsNoHeader(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv, auth.NopTokenStore{}, config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/public/products", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{""}, api.headers("/public/products"))
}

func TestReplayUsesRefreshedTokenWithoutStorage(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv, auth.NopTokenStore{}, config.RefreshCoalesced)

	resp, err := c.Get(context.Background(), "/orders/55", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"", "Bearer fresh2"}, api.headers("/orders/55"))
}

func TestBodyIsReplayed(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv, storeWith("expired1"), config.RefreshCoalesced)

	resp, err := c.Post(context.Background(), "/orders", map[string]any{"productId": "alphonso", "quantity": 3})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	api.mu.Lock()
	bodies := api.bodies["/orders"]
	api.mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
	assert.JSONEq(t, `{"productId":"alphonso","quantity":3}`, bodies[0])
}

func TestCoalescedRefresh(t *testing.T) {
	const n = 8
	api, srv := newFakeAPI(t)
	api.refreshWaitFor = n
	c := newTestClient(t, srv, storeWith("expired1"), config.RefreshCoalesced)

	var wg sync.WaitGroup
	statuses := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Get(context.Background(), fmt.Sprintf("/orders/%d", i), nil)
			errs[i] = err
			if resp != nil {
				statuses[i] = resp.StatusCode
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
		assert.Len(t, api.headers(fmt.Sprintf("/orders/%d", i)), 2)
	}
	assert.Equal(t, 1, api.refreshes())
}

func TestIndependentRefresh(t *testing.T) {
	const n = 4
	api, srv := newFakeAPI(t)
	api.refreshWaitFor = n
	api.refreshBody = func(i int) string {
		return fmt.Sprintf(`{"success":true,"tokens":{"accessToken":"fresh-%d"}}`, i)
	}
	c := newTestClient(t, srv, storeWith("expired1"), config.RefreshIndependent)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Get(context.Background(), fmt.Sprintf("/orders/%d", i), nil)
			assert.NoError(t, err)
			if resp != nil {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, api.refreshes())
}

func TestContextDeadline(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv, storeWith("abc123"), config.RefreshCoalesced)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "/slow", nil)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCallerDeadlineDuringRefreshKeepsSession(t *testing.T) {
	for _, mode := range []string{config.RefreshIndependent, config.RefreshCoalesced} {
		t.Run(mode, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			// refresh stalls until it gives up waiting for 401s that never come
			api.refreshWaitFor = 99
			store := storeWith("expired1")
			c := newTestClient(t, srv, store, mode)

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			_, err := c.Get(ctx, "/orders/55", nil)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrSessionExpired))
			var netErr *NetworkError
			assert.True(t, errors.As(err, &netErr))
			assert.True(t, errors.Is(err, context.DeadlineExceeded))

			token, ok := store.Get(context.Background())
			assert.True(t, ok)
			assert.Equal(t, "expired1", token)
		})
	}
}

func TestNetworkErrorDuringRefreshExpiresSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.refreshHangup = true
	store := storeWith("expired1")
	c := newTestClient(t, srv, store, config.RefreshCoalesced)

	_, err := c.Get(context.Background(), "/orders/55", nil)
	assert.True(t, errors.Is(err, ErrSessionExpired))
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))

	_, ok := store.Get(context.Background())
	assert.False(t, ok)
	assert.Len(t, api.headers("/orders/55"), 1)
}

func TestLoginLogout(t *testing.T) {
	api, srv := newFakeAPI(t)
	store := auth.NewMemoryTokenStore()
	c := newTestClient(t, srv, store, config.RefreshCoalesced)
	ctx := context.Background()

	t.Run("BadCredentials", func(t *testing.T) {
		err := c.Login(ctx, map[string]string{"email": "buyer@example.com", "password": "wrong"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "invalid credentials", apiErr.Message)
		assert.Equal(t, 0, api.refreshes())
		_, ok := store.Get(ctx)
		assert.False(t, ok)
	})

	t.Run("LoginStoresToken", func(t *testing.T) {
		err := c.Login(ctx, map[string]string{"email": "buyer@example.com", "password": "mango123"})
		require.NoError(t, err)
		token, ok := store.Get(ctx)
		assert.True(t, ok)
		assert.Equal(t, "login1", token)
	})

	t.Run("RefreshSendsCookie", func(t *testing.T) {
		api.mu.Lock()
		delete(api.valid, "login1")
		api.mu.Unlock()

		resp, err := c.Get(ctx, "/orders/55", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		api.mu.Lock()
		defer api.mu.Unlock()
		require.Len(t, api.refreshCookies, 1)
		assert.Equal(t, "cookie-r1", api.refreshCookies[0])
	})

	t.Run("LogoutClearsStore", func(t *testing.T) {
		require.NoError(t, c.Logout(ctx))
		_, ok := store.Get(ctx)
		assert.False(t, ok)
	})
}

func TestNewValidation(t *testing.T) {
	cfg := config.Default()

	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg.API.Domain = "ftp://files.example.com"
	_, err = New(cfg, auth.NewMemoryTokenStore())
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	cfg := config.Default()
	c, err := New(cfg, auth.NewMemoryTokenStore())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api/v1/products", c.resolve("/products", nil))
	assert.Equal(t, "http://localhost:5000/api/v1/products", c.resolve("products", nil))
	assert.Equal(t, "http://localhost:5000/api/v1/products?page=2&search=honey",
		c.resolve("/products", map[string][]string{"search": {"honey"}, "page": {"2"}}))
	assert.Equal(t, "http://localhost:5000/api/v1/products?sort=price&page=2",
		c.resolve("/products?sort=price", map[string][]string{"page": {"2"}}))
}
