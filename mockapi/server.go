// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package mockapi is a development stand-in for the storefront REST API.
// It speaks the same envelope and bearer/refresh-cookie flow, keeping all
// state in memory.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/VA7DBI/storefrontAPI/docs"
	"github.com/VA7DBI/storefrontAPI/logging"
	"github.com/VA7DBI/storefrontAPI/metrics"
	"github.com/VA7DBI/storefrontAPI/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *SessionRegistry
	catalog  *Catalog
	orders   *orderBook
	router   *gin.Engine
}

func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		sessions: NewSessionRegistry(
			time.Duration(cfg.MockServer.AccessTokenTTL)*time.Second,
			time.Duration(cfg.MockServer.RefreshTokenTTL)*time.Second,
		),
		catalog: NewCatalog(seedProducts()),
		orders:  newOrderBook(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

func (s *Server) basePath() string {
	return "/" + strings.Trim(s.cfg.API.BasePath, "/")
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), countRequests())

	// These endpoints remain public
	r.GET("/health", healthCheck)
	if s.cfg.MockServer.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = s.basePath()
		docs.SwaggerInfo.Host = s.cfg.MockServer.SwaggerHost
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if s.cfg.Metrics.Enabled {
		r.GET(s.cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group(s.basePath())
	for scope, prefix := range map[string]string{
		config.ScopeUser:  "/users/auth",
		config.ScopeAdmin: "/admins/auth",
	} {
		api.POST(prefix+"/login", s.login(scope))
		api.POST(prefix+"/refresh", s.refresh(scope))
		api.POST(prefix+"/logout", s.logout)
	}

	api.GET("/products", s.listProducts)
	api.GET("/products/:id", s.getProduct)

	authed := api.Group("", middleware.NewAuthMiddleware(s.sessions, middleware.StaticTokens(s.cfg.MockServer.StaticTokens)).Handler())
	authed.GET("/orders", s.listOrders)
	authed.POST("/orders", s.createOrder)
	authed.GET("/orders/:id", s.getOrder)
	authed.GET("/orders/:id/tracking", s.trackOrder)
	authed.PATCH("/orders/:id/cancel", s.cancelOrder)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.MockServer.Host, s.cfg.MockServer.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting stub API", zap.String("addr", addr), zap.String("base_path", s.basePath()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// @Summary     Health check endpoint
// @Description Get API health status
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Router      /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("stub request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.MockAPIRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"message": message}})
}
