// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/cache"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/composer"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// markdownField is the content field converted to HTML in the live path.
// Snapshots keep the raw markdown source.
const markdownField = "text_md"

// RequestContext carries per-request identity fed into the reserved
// "system" scope namespace.
type RequestContext struct {
	UserID   int64
	UserName string
	Timezone string
	Debug    bool
}

// RenderedPage is the output of one composition pass over a page.
type RenderedPage struct {
	PageID     int64                       `json:"page_id"`
	Keyword    string                      `json:"keyword"`
	URL        string                      `json:"url"`
	IsHeadless bool                        `json:"is_headless"`
	LanguageID int64                       `json:"language_id"`
	Version    *int64                      `json:"version_number,omitempty"`
	Sections   []*composer.RenderedSection `json:"sections"`

	// DependsOn lists the data tables this render read, and PerUser marks
	// user-specific declarations. Together they declare the cache scopes
	// the result must be invalidated under.
	DependsOn []string `json:"-"`
	PerUser   bool     `json:"-"`
}

// RenderService runs the live composition pipeline over draft trees and
// published snapshots.
type RenderService struct {
	queries   *store.Queries
	builder   *SnapshotBuilder
	composer  *composer.Composer
	renders   *cache.RenderCache
	logger    *slog.Logger
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewRenderService creates a RenderService. renderCache may be nil to
// disable caching.
func NewRenderService(db *sql.DB, retriever composer.Retriever, evaluator composer.Evaluator,
	renderCache *cache.RenderCache, logger *slog.Logger) *RenderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderService{
		queries:   store.New(db),
		builder:   NewSnapshotBuilder(db),
		composer:  composer.New(retriever, evaluator, logger),
		renders:   renderCache,
		logger:    logger,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// RenderPage renders the live draft tree of a page in one language,
// resolving data sources and conditions.
func (s *RenderService) RenderPage(ctx context.Context, pageID, languageID int64, rc RequestContext) (*RenderedPage, error) {
	snap, err := s.builder.BuildDraftSnapshot(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return s.renderSnapshot(ctx, snap, nil, languageID, rc)
}

// RenderVersion renders a published (or any stored) version's snapshot.
// The pipeline is the same one the draft path uses; the snapshot is the
// pre-resolution shape it consumes.
func (s *RenderService) RenderVersion(ctx context.Context, version *model.PageVersion, languageID int64, rc RequestContext) (*RenderedPage, error) {
	snap, err := model.DecodeSnapshot([]byte(version.Snapshot))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot of version %d: %w", version.ID, err)
	}
	return s.renderSnapshot(ctx, snap, &version.VersionNumber, languageID, rc)
}

func (s *RenderService) renderSnapshot(ctx context.Context, snap *model.Snapshot, versionNumber *int64,
	languageID int64, rc RequestContext) (*RenderedPage, error) {

	defaultLang, err := s.queries.GetDefaultLanguage(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading default language: %w", err)
	}

	tables, perUser := composer.DependentTables(snap.Page.Sections)

	cacheKey := ""
	if s.renders != nil && !rc.Debug {
		variant := "draft"
		if versionNumber != nil {
			variant = fmt.Sprintf("v%d", *versionNumber)
		}
		// Identity also flows in through the system namespace, without any
		// data_config declaration. Only renders free of both share one entry.
		cacheUserID := int64(0)
		if perUser || composer.UsesUserContext(snap.Page.Sections) {
			cacheUserID = rc.UserID
		}
		cacheKey = s.renders.Key(snap.Page.ID, languageID, variant, cacheUserID)
		if raw, ok := s.renders.Get(ctx, cacheKey); ok {
			var cached RenderedPage
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	root, err := s.rootScope(ctx, snap.Page.Keyword, languageID, defaultLang.ID, rc)
	if err != nil {
		return nil, err
	}

	sections := s.composer.Render(ctx, snap.Page.Sections, root, composer.Options{
		LanguageID:        languageID,
		DefaultLanguageID: defaultLang.ID,
		UserID:            rc.UserID,
		Timezone:          rc.Timezone,
		IncludeTrace:      rc.Debug,
	})
	s.renderMarkdown(sections)

	page := &RenderedPage{
		PageID:     snap.Page.ID,
		Keyword:    snap.Page.Keyword,
		URL:        snap.Page.URL,
		IsHeadless: snap.Page.IsHeadless,
		LanguageID: languageID,
		Version:    versionNumber,
		Sections:   sections,
		DependsOn:  tables,
		PerUser:    perUser,
	}

	if s.renders != nil && cacheKey != "" {
		if raw, err := json.Marshal(page); err == nil {
			tags := make([]string, 0, len(tables)+1)
			tags = append(tags, cache.PageTag(snap.Page.ID))
			for _, t := range tables {
				tags = append(tags, cache.TableTag(t))
			}
			s.renders.Set(ctx, cacheKey, raw, tags)
		}
	}

	return page, nil
}

// rootScope builds the initial scope: the reserved "system" namespace with
// request context and the language-scoped "globals" namespace, with
// default-language fallback per key.
func (s *RenderService) rootScope(ctx context.Context, keyword string, languageID, defaultLanguageID int64, rc RequestContext) (composer.Scope, error) {
	now := time.Now()
	if rc.Timezone != "" {
		if loc, err := time.LoadLocation(rc.Timezone); err == nil {
			now = now.In(loc)
		}
	}

	system := map[string]any{
		"user_id":     rc.UserID,
		"user_name":   rc.UserName,
		"language_id": languageID,
		"keyword":     keyword,
		"date":        now.Format("2006-01-02"),
		"time":        now.Format("15:04:05"),
		"datetime":    now.Format("2006-01-02 15:04:05"),
	}

	globals := make(map[string]any)
	if defaultLanguageID != languageID {
		defaults, err := s.queries.ListGlobals(ctx, defaultLanguageID)
		if err != nil {
			return nil, fmt.Errorf("loading globals: %w", err)
		}
		for _, g := range defaults {
			globals[g.Name] = g.Content
		}
	}
	current, err := s.queries.ListGlobals(ctx, languageID)
	if err != nil {
		return nil, fmt.Errorf("loading globals: %w", err)
	}
	for _, g := range current {
		globals[g.Name] = g.Content
	}

	return composer.Scope{
		composer.NamespaceSystem:  system,
		composer.NamespaceGlobals: globals,
	}, nil
}

// renderMarkdown converts markdown content fields to sanitized HTML,
// walking the rendered tree. Conversion failures keep the raw source.
func (s *RenderService) renderMarkdown(sections []*composer.RenderedSection) {
	for _, section := range sections {
		if f, ok := section.Fields[markdownField]; ok && f.Content != "" {
			var buf bytes.Buffer
			if err := s.markdown.Convert([]byte(f.Content), &buf); err == nil {
				f.Content = s.sanitizer.Sanitize(buf.String())
				section.Fields[markdownField] = f
			}
		}
		s.renderMarkdown(section.Children)
	}
}
