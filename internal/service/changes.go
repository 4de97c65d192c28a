// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// ChangeService detects whether a page's draft differs from its published
// snapshot.
type ChangeService struct {
	queries *store.Queries
	builder *SnapshotBuilder
	logger  *slog.Logger
}

// NewChangeService creates a ChangeService.
func NewChangeService(db *sql.DB, logger *slog.Logger) *ChangeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeService{
		queries: store.New(db),
		builder: NewSnapshotBuilder(db),
		logger:  logger,
	}
}

// HasUnpublishedChanges reports whether the live draft differs from the
// currently published snapshot. A page with no published version always has
// unpublished changes. Any internal error also reports true: failing
// toward "assume changed" never hides edits from the editor.
func (s *ChangeService) HasUnpublishedChanges(ctx context.Context, pageID int64) bool {
	page, err := s.queries.GetPageByID(ctx, pageID)
	if err != nil {
		s.logger.Warn("change detection failed, assuming changed",
			"category", "version", "page_id", pageID, "error", err)
		return true
	}
	if !page.PublishedVersionID.Valid {
		return true
	}

	published, err := s.queries.GetPageVersion(ctx, page.PublishedVersionID.Int64)
	if err != nil {
		s.logger.Warn("change detection failed, assuming changed",
			"category", "version", "page_id", pageID, "error", err)
		return true
	}

	draft, err := s.builder.BuildDraftSnapshot(ctx, pageID)
	if err != nil {
		s.logger.Warn("change detection failed, assuming changed",
			"category", "version", "page_id", pageID, "error", err)
		return true
	}
	draftRaw, err := draft.Encode()
	if err != nil {
		return true
	}

	draftHash, err := GenerateStructureHash(draftRaw)
	if err != nil {
		return true
	}
	publishedHash, err := GenerateStructureHash([]byte(published.Snapshot))
	if err != nil {
		return true
	}

	return draftHash != publishedHash
}

// GenerateStructureHash computes a fast non-cryptographic hash over the
// key-order-normalized form of a JSON document. Re-marshalling through an
// untyped value sorts every object's keys, so property order can never
// cause a false "changed". This is an equality oracle, not a security
// control; xxhash's collision risk is acceptable.
func GenerateStructureHash(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("normalizing structure: %w", err)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serializing structure: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(canonical)), nil
}
