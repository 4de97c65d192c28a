// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PageTag returns the invalidation tag for one page's cached renders.
func PageTag(pageID int64) string {
	return fmt.Sprintf("page:%d", pageID)
}

// TableTag returns the invalidation tag for renders that read one data
// table.
func TableTag(name string) string {
	return "table:" + name
}

// RenderCache caches rendered pages with tag-based invalidation. Every
// entry is tagged with its page and the data tables the render read, so
// publishing a version or writing a data row can drop exactly the stale
// entries.
//
// The tag index is process-local. On the Redis backend a second instance
// misses cross-instance invalidations until the TTL expires, which is why
// render TTLs stay short.
type RenderCache struct {
	backend Cacher
	ttl     time.Duration

	mu   sync.Mutex
	tags map[string]map[string]struct{} // tag -> keys
	keys map[string][]string            // key -> tags
}

// NewRenderCache wraps a backend. ttl bounds entry lifetime independent of
// invalidation.
func NewRenderCache(backend Cacher, ttl time.Duration) *RenderCache {
	return &RenderCache{
		backend: backend,
		ttl:     ttl,
		tags:    make(map[string]map[string]struct{}),
		keys:    make(map[string][]string),
	}
}

// Key builds the cache key of one render: page, language, the rendered
// variant and user. The variant separates the live draft ("draft") from
// version snapshots ("v3"), so a draft preview can never surface as the
// published render. Pass userID 0 for renders without user-specific
// content, shared by everyone.
func (c *RenderCache) Key(pageID, languageID int64, variant string, userID int64) string {
	return fmt.Sprintf("render:%d:%d:%s:%d", pageID, languageID, variant, userID)
}

// Get retrieves a cached render.
func (c *RenderCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Set stores a render under its tags. Backend errors are ignored: a
// failed cache write only costs the next request a re-render.
func (c *RenderCache) Set(ctx context.Context, key string, value []byte, tags []string) {
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		return
	}

	c.mu.Lock()
	c.untagLocked(key)
	c.keys[key] = tags
	for _, tag := range tags {
		keys := c.tags[tag]
		if keys == nil {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	c.mu.Unlock()
}

// InvalidateTag drops every entry carrying the tag.
func (c *RenderCache) InvalidateTag(ctx context.Context, tag string) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.tags[tag]))
	for key := range c.tags[tag] {
		keys = append(keys, key)
	}
	for _, key := range keys {
		c.untagLocked(key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		_ = c.backend.Delete(ctx, key)
	}
}

// InvalidatePage drops every cached render of one page.
func (c *RenderCache) InvalidatePage(ctx context.Context, pageID int64) {
	c.InvalidateTag(ctx, PageTag(pageID))
}

// Clear drops all cached renders.
func (c *RenderCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.tags = make(map[string]map[string]struct{})
	c.keys = make(map[string][]string)
	c.mu.Unlock()
	_ = c.backend.Clear(ctx)
}

// untagLocked removes a key from the tag index. Caller holds mu.
func (c *RenderCache) untagLocked(key string) {
	for _, tag := range c.keys[key] {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
	delete(c.keys, key)
}
