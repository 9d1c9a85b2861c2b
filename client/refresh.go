// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/VA7DBI/storefrontAPI/metrics"
	"go.uber.org/zap"
)

const refreshFlightKey = "refresh"

// dispatch runs the per-request state machine: send, and on a first 401
// refresh the token and replay once. The replay's outcome is final.
func (c *Client) dispatch(ctx context.Context, p *pendingRequest) (*Response, error) {
	token, _ := c.store.Get(ctx)

	resp, err := c.send(ctx, p, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || p.retried {
		return resp, nil
	}

	fresh, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}

	p.retried = true
	resp, err = c.send(ctx, p, fresh)
	if err != nil {
		metrics.Retries.WithLabelValues(metrics.StatusNetworkError).Inc()
		return nil, err
	}
	metrics.Retries.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// refresh obtains a new access token. In coalesced mode concurrent callers
// share one in-flight exchange.
func (c *Client) refresh(ctx context.Context) (string, error) {
	if !c.coalesce {
		return c.exchange(ctx)
	}

	// The shared exchange must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(refreshFlightKey, func() (any, error) {
		return c.exchange(shared)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RefreshAttempts.WithLabelValues(metrics.RefreshShared).Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &NetworkError{Op: http.MethodPost, URL: c.resolve(c.refreshPath, nil), Err: ctx.Err()}
	}
}

// exchange trades the refresh cookie for a new access token. Any failure
// clears the token store and reports an expired session, except a
// cancelled or expired ctx, which leaves the store alone.
func (c *Client) exchange(ctx context.Context) (string, error) {
	target := c.resolve(c.refreshPath, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return c.expire(ctx, fmt.Errorf("failed to build refresh request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		netErr := &NetworkError{Op: http.MethodPost, URL: target, Err: err}
		// The caller gave up; the refresh credential may still be good.
		if ctx.Err() != nil {
			return "", netErr
		}
		return c.expire(ctx, netErr)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&tr)
	if decodeErr != nil && ctx.Err() != nil {
		return "", &NetworkError{Op: http.MethodPost, URL: target, Err: decodeErr}
	}

	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return c.expire(ctx, fmt.Errorf("refresh rejected with status %d", resp.StatusCode))
	case decodeErr != nil:
		return c.expire(ctx, fmt.Errorf("invalid refresh response: %w", decodeErr))
	case !tr.Success:
		return c.expire(ctx, errors.New("refresh reported failure"))
	case tr.Tokens.AccessToken == "":
		return c.expire(ctx, errors.New("refresh response carried no access token"))
	}

	c.store.Set(ctx, tr.Tokens.AccessToken)
	metrics.RefreshAttempts.WithLabelValues(metrics.RefreshSuccess).Inc()
	c.logger.Info("access token refreshed")
	return tr.Tokens.AccessToken, nil
}

func (c *Client) expire(ctx context.Context, cause error) (string, error) {
	c.store.Clear(ctx)
	metrics.RefreshAttempts.WithLabelValues(metrics.RefreshFailure).Inc()
	c.logger.Warn("access token refresh failed, session cleared", zap.Error(cause))
	return "", fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}
