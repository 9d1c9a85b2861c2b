// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package mockapi

import (
	"net/http"

	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh credential.
const RefreshCookieName = "refreshToken"

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) checkCredentials(scope, email, password string) bool {
	if scope == config.ScopeAdmin {
		return email == s.cfg.MockServer.AdminEmail && password == s.cfg.MockServer.AdminPassword
	}
	return email == s.cfg.MockServer.UserEmail && password == s.cfg.MockServer.UserPassword
}

func (s *Server) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, value, maxAge, "/", "", s.cfg.MockServer.SecureCookies, true)
}

// @Summary     Log in
// @Description Exchange credentials for an access token and a refresh cookie
// @Tags        auth
// @Accept      json
// @Produce     json
// @Success     200 {object} map[string]interface{}
// @Failure     401 {object} client.Envelope
// @Router      /users/auth/login [post]
func (s *Server) login(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Email and password are required")
			return
		}
		if !s.checkCredentials(scope, req.Email, req.Password) {
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		access, refresh := s.sessions.Issue(req.Email, scope)
		s.setRefreshCookie(c, refresh, s.cfg.MockServer.RefreshTokenTTL)
		s.logger.Info("session issued", zap.String("scope", scope))
		c.JSON(http.StatusOK, gin.H{"success": true, "tokens": gin.H{"accessToken": access}})
	}
}

// @Summary     Refresh access token
// @Description Mint a new access token from the refresh cookie
// @Tags        auth
// @Produce     json
// @Success     200 {object} map[string]interface{}
// @Failure     401 {object} client.Envelope
// @Router      /users/auth/refresh [post]
func (s *Server) refresh(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(RefreshCookieName)
		if err != nil || cookie == "" {
			respondError(c, http.StatusUnauthorized, "Refresh token missing")
			return
		}

		access, err := s.sessions.Refresh(cookie, scope)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Refresh token invalid or expired")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "tokens": gin.H{"accessToken": access}})
	}
}

// @Summary     Log out
// @Tags        auth
// @Produce     json
// @Success     200 {object} client.Envelope
// @Router      /users/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	if cookie, err := c.Cookie(RefreshCookieName); err == nil {
		s.sessions.Revoke(cookie)
	}
	s.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
