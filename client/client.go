// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package client is the authenticated request pipeline for the storefront
// REST API. Every call carries the current access token as a bearer
// credential; a 401 triggers one refresh exchange and one replay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VA7DBI/storefrontAPI/auth"
	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/VA7DBI/storefrontAPI/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       auth.TokenStore
	loginPath   string
	refreshPath string
	logoutPath  string
	coalesce    bool
	flight      singleflight.Group
	logger      *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// to a copy of hc when it has none, since refresh relies on cookies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		if copied.Jar == nil {
			copied.Jar = c.httpClient.Jar
		}
		c.httpClient = &copied
	}
}

// WithCookieJar replaces the in-memory jar holding the refresh cookie.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar != nil {
			copied := *c.httpClient
			copied.Jar = jar
			c.httpClient = &copied
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(cfg *config.Config, store auth.TokenStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}

	baseURL := cfg.BaseURL()
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
			Jar:     jar,
		},
		store:       store,
		loginPath:   cfg.AuthPath("login"),
		refreshPath: cfg.AuthPath("refresh"),
		logoutPath:  cfg.AuthPath("logout"),
		coalesce:    cfg.API.RefreshMode != config.RefreshIndependent,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes one API call. Path is relative to the base endpoint.
// Body may be nil, []byte, string, an io.Reader, or any value to be encoded
// as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Response is the server's answer, passed through unmodified. Non-2xx
// statuses are responses, not errors; see DecodeError.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// pendingRequest is a buffered request that can be replayed once.
type pendingRequest struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	body    []byte
	retried bool
}

func newPendingRequest(req *Request) (*pendingRequest, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	p := &pendingRequest{
		method: strings.ToUpper(method),
		path:   req.Path,
		query:  req.Query,
		header: req.Header.Clone(),
	}
	if p.header == nil {
		p.header = make(http.Header)
	}

	switch body := req.Body.(type) {
	case nil:
	case []byte:
		p.body = body
	case string:
		p.body = []byte(body)
	case io.Reader:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		p.body = data
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		p.body = data
		if p.header.Get("Content-Type") == "" {
			p.header.Set("Content-Type", "application/json")
		}
	}
	p.header.Set("Accept", "application/json")
	return p, nil
}

// Do sends req with the current access token and recovers from one
// authentication failure by refreshing the token and replaying req.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	p, err := newPendingRequest(req)
	if err != nil {
		return nil, err
	}
	return c.dispatch(ctx, p)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) resolve(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode()
}

// send performs exactly one HTTP exchange for p, authorized with token when
// it is non-empty.
func (c *Client) send(ctx context.Context, p *pendingRequest, token string) (*Response, error) {
	target := c.resolve(p.path, p.query)

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, p.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header = p.header.Clone()
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	timer := prometheus.NewTimer(metrics.ClientRequestDuration.WithLabelValues(p.method))
	resp, err := c.httpClient.Do(httpReq)
	timer.ObserveDuration()
	if err != nil {
		metrics.ClientRequests.WithLabelValues(p.method, metrics.StatusNetworkError).Inc()
		c.logger.Debug("request failed",
			zap.String("method", p.method),
			zap.String("path", p.path),
			zap.Error(err))
		return nil, &NetworkError{Op: p.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ClientRequests.WithLabelValues(p.method, metrics.StatusNetworkError).Inc()
		return nil, &NetworkError{Op: p.method, URL: target, Err: err}
	}

	metrics.ClientRequests.WithLabelValues(p.method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("request completed",
		zap.String("method", p.method),
		zap.String("path", p.path),
		zap.Int("status", resp.StatusCode),
		zap.Bool("retried", p.retried))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
