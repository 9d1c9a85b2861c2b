// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextTokenKey is the gin context key holding the accepted bearer token.
const ContextTokenKey = "access_token"

// TokenValidator reports whether a bearer token is currently accepted.
type TokenValidator interface {
	ValidateToken(token string) (bool, error)
}

// StaticTokens accepts a fixed list of tokens.
type StaticTokens []string

func (s StaticTokens) ValidateToken(token string) (bool, error) {
	for _, valid := range s {
		if token == valid {
			return true, nil
		}
	}
	return false, nil
}

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	validators []TokenValidator
}

// NewAuthMiddleware creates a middleware that accepts a token when any of
// validators does, tried in order.
func NewAuthMiddleware(validators ...TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validators: validators}
}

// Handler returns the gin middleware handler function
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		for _, v := range m.validators {
			valid, err := v.ValidateToken(token)
			if err == nil && valid {
				c.Set(ContextTokenKey, token)
				c.Next()
				return
			}
		}

		abortUnauthorized(c, "Invalid or expired token")
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"message": message},
	})
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
