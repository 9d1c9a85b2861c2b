// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Refresh modes
const (
	RefreshCoalesced   = "coalesced"
	RefreshIndependent = "independent"
)

// API scopes
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
)

type Config struct {
	API struct {
		Domain         string `yaml:"domain"`
		BasePath       string `yaml:"base_path"`
		Scope          string `yaml:"scope"`        // user or admin
		RefreshPath    string `yaml:"refresh_path"` // Overrides the scope default
		RefreshMode    string `yaml:"refresh_mode"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		CookieFile     string `yaml:"cookie_file"` // Refresh cookie kept between CLI runs
	} `yaml:"api"`

	TokenStore struct {
		Backend string `yaml:"backend"` // memory, file, redis, postgres, none
		File    struct {
			Path string `yaml:"path"`
		} `yaml:"file"`
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Key      string `yaml:"key"`
			KeyTTL   int    `yaml:"key_ttl"` // TTL in seconds, 0 keeps the key
		} `yaml:"redis"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			Table    string `yaml:"table"`
			Session  string `yaml:"session"`
		} `yaml:"postgres"`
	} `yaml:"token_store"`

	Cart struct {
		Path string `yaml:"path"`
	} `yaml:"cart"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	MockServer struct {
		Host            string   `yaml:"host"`
		Port            int      `yaml:"port"`
		AccessTokenTTL  int      `yaml:"access_token_ttl"`  // seconds
		RefreshTokenTTL int      `yaml:"refresh_token_ttl"` // seconds
		SecureCookies   bool     `yaml:"secure_cookies"`
		UserEmail       string   `yaml:"user_email"`
		UserPassword    string   `yaml:"user_password"`
		AdminEmail      string   `yaml:"admin_email"`
		AdminPassword   string   `yaml:"admin_password"`
		SwaggerEnabled  bool     `yaml:"swagger_enabled"`
		SwaggerHost     string   `yaml:"swagger_host"`
		StaticTokens    []string `yaml:"static_tokens"` // Never-expiring bearer tokens with admin visibility
	} `yaml:"mock_server"`
}

// LoadConfig reads the YAML file at filename, applies STOREFRONT_* environment
// overrides and fills defaults. An empty filename skips the file.
func LoadConfig(filename string) (*Config, error) {
	config := &Config{}

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}
	if err := applyEnv(config); err != nil {
		return nil, err
	}

	setDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns a configuration with every default filled and no
// file or environment input.
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

func applyEnv(config *Config) error {
	if v := os.Getenv("STOREFRONT_DOMAIN"); v != "" {
		config.API.Domain = v
	}
	if v := os.Getenv("STOREFRONT_BASE_PATH"); v != "" {
		config.API.BasePath = v
	}
	if v := os.Getenv("STOREFRONT_SCOPE"); v != "" {
		config.API.Scope = v
	}
	if v := os.Getenv("STOREFRONT_REFRESH_MODE"); v != "" {
		config.API.RefreshMode = v
	}
	if v := os.Getenv("STOREFRONT_TOKEN_STORE"); v != "" {
		config.TokenStore.Backend = v
	}
	if v := os.Getenv("STOREFRONT_TOKEN_FILE"); v != "" {
		config.TokenStore.File.Path = v
	}
	if v := os.Getenv("STOREFRONT_REDIS_PASSWORD"); v != "" {
		config.TokenStore.Redis.Password = v
	}
	if v := os.Getenv("STOREFRONT_POSTGRES_PASSWORD"); v != "" {
		config.TokenStore.Postgres.Password = v
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_TIMEOUT_SECONDS %q: %w", v, err)
		}
		config.API.TimeoutSeconds = n
	}
	return nil
}

func setDefaults(config *Config) {
	if config.API.Domain == "" {
		config.API.Domain = "http://localhost:5000"
	}
	if config.API.BasePath == "" {
		config.API.BasePath = "/api/v1"
	}
	if config.API.Scope == "" {
		config.API.Scope = ScopeUser
	}
	if config.API.RefreshMode == "" {
		config.API.RefreshMode = RefreshCoalesced
	}
	if config.API.TimeoutSeconds == 0 {
		config.API.TimeoutSeconds = 30
	}
	if config.API.CookieFile == "" {
		config.API.CookieFile = ".storefront/cookies.yaml"
	}
	if config.TokenStore.Backend == "" {
		config.TokenStore.Backend = "file"
	}
	if config.TokenStore.File.Path == "" {
		config.TokenStore.File.Path = ".storefront/token.yaml"
	}
	if config.TokenStore.Redis.Port == 0 {
		config.TokenStore.Redis.Port = 6379
	}
	if config.TokenStore.Redis.Host == "" {
		config.TokenStore.Redis.Host = "localhost"
	}
	if config.TokenStore.Redis.Key == "" {
		config.TokenStore.Redis.Key = "storefront:access_token"
	}
	if config.TokenStore.Postgres.Port == 0 {
		config.TokenStore.Postgres.Port = 5432
	}
	if config.TokenStore.Postgres.Table == "" {
		config.TokenStore.Postgres.Table = "access_tokens"
	}
	if config.TokenStore.Postgres.Session == "" {
		config.TokenStore.Postgres.Session = "default"
	}
	if config.Cart.Path == "" {
		config.Cart.Path = ".storefront/cart.yaml"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}
	if config.MockServer.Host == "" {
		config.MockServer.Host = "localhost"
	}
	if config.MockServer.Port == 0 {
		config.MockServer.Port = 5000
	}
	if config.MockServer.AccessTokenTTL == 0 {
		config.MockServer.AccessTokenTTL = 900
	}
	if config.MockServer.RefreshTokenTTL == 0 {
		config.MockServer.RefreshTokenTTL = 7 * 24 * 3600
	}
	if config.MockServer.UserEmail == "" {
		config.MockServer.UserEmail = "buyer@example.com"
	}
	if config.MockServer.UserPassword == "" {
		config.MockServer.UserPassword = "mango123"
	}
	if config.MockServer.AdminEmail == "" {
		config.MockServer.AdminEmail = "admin@example.com"
	}
	if config.MockServer.AdminPassword == "" {
		config.MockServer.AdminPassword = "honey123"
	}
}

// Validate rejects enum values the client cannot act on.
func (c *Config) Validate() error {
	switch c.API.Scope {
	case ScopeUser, ScopeAdmin:
	default:
		return fmt.Errorf("invalid api.scope %q: want %q or %q", c.API.Scope, ScopeUser, ScopeAdmin)
	}
	switch c.API.RefreshMode {
	case RefreshCoalesced, RefreshIndependent:
	default:
		return fmt.Errorf("invalid api.refresh_mode %q: want %q or %q", c.API.RefreshMode, RefreshCoalesced, RefreshIndependent)
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid api.timeout_seconds %d", c.API.TimeoutSeconds)
	}
	return nil
}

// BaseURL joins the domain and base path: {DOMAIN}{BASE_PATH}.
func (c *Config) BaseURL() string {
	domain := strings.TrimSuffix(c.API.Domain, "/")
	base := strings.Trim(c.API.BasePath, "/")
	if base == "" {
		return domain
	}
	return domain + "/" + base
}

// AuthPath returns the scoped auth endpoint for action (login, refresh, logout).
func (c *Config) AuthPath(action string) string {
	if action == "refresh" && c.API.RefreshPath != "" {
		return c.API.RefreshPath
	}
	if c.API.Scope == ScopeAdmin {
		return "/admins/auth/" + action
	}
	return "/users/auth/" + action
}
