// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Login posts credentials to the scoped login endpoint and stores the
// returned access token. The refresh cookie set by the server lands in the
// client's cookie jar. Login never triggers a refresh.
func (c *Client) Login(ctx context.Context, credentials any) error {
	p, err := newPendingRequest(&Request{Method: http.MethodPost, Path: c.loginPath, Body: credentials})
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, p, "")
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return DecodeError(resp)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil || !tr.Success || tr.Tokens.AccessToken == "" {
		return DecodeError(resp)
	}

	c.store.Set(ctx, tr.Tokens.AccessToken)
	c.logger.Info("logged in", zap.String("path", c.loginPath))
	return nil
}

// Logout tells the server to revoke the refresh credential and clears the
// token store. The store is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.store.Clear(ctx)

	token, _ := c.store.Get(ctx)
	p, err := newPendingRequest(&Request{Method: http.MethodPost, Path: c.logoutPath})
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, p, token)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return DecodeError(resp)
	}
	c.logger.Info("logged out", zap.String("path", c.logoutPath))
	return nil
}
