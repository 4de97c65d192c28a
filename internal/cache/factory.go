// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import "time"

// Config selects and configures the cache backend.
type Config struct {
	// RedisURL selects the Redis backend when non-empty, for example
	// redis://localhost:6379/0. Empty means in-memory.
	RedisURL string

	// Prefix is prepended to all keys on the Redis backend.
	Prefix string

	// DefaultTTL is the default expiration for cache entries.
	DefaultTTL time.Duration
}

// New creates a cache backend from the configuration.
func New(cfg Config) (Cacher, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.RedisURL != "" {
		return NewRedisCache(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
	}
	return NewMemoryCache(cfg.DefaultTTL), nil
}
