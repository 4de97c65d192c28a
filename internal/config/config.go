// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"SELFHELP_DB_PATH" envDefault:"./data/selfhelp.db"`
	ServerHost string `env:"SELFHELP_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SELFHELP_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"SELFHELP_ENV" envDefault:"development"`
	LogLevel   string `env:"SELFHELP_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL    string `env:"SELFHELP_REDIS_URL"`                           // Optional Redis URL for distributed render caching
	CachePrefix string `env:"SELFHELP_CACHE_PREFIX" envDefault:"selfhelp:"` // Redis key prefix
	CacheTTL    int    `env:"SELFHELP_CACHE_TTL" envDefault:"300"`          // Render cache TTL in seconds

	// Versioning configuration
	VersionKeep int `env:"SELFHELP_VERSION_KEEP" envDefault:"0"` // Versions kept per page by retention (0 = keep all)

	// Rendering configuration
	DefaultTimezone string `env:"SELFHELP_DEFAULT_TIMEZONE" envDefault:"UTC"`

	// Rate limiting (requests per second per client, burst)
	RateLimit      float64 `env:"SELFHELP_RATE_LIMIT" envDefault:"20"`
	RateLimitBurst int     `env:"SELFHELP_RATE_LIMIT_BURST" envDefault:"40"`

	// Seeding configuration
	DoSeed bool `env:"SELFHELP_DO_SEED" envDefault:"false"` // Enable database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns the render cache TTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid SELFHELP_DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}
	return cfg, nil
}
