// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/cache"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// createVersionRetries bounds the retry loop on version-number conflicts.
// Concurrent creators for the same page serialize on the unique
// (page_id, version_number) constraint.
const createVersionRetries = 3

// VersionService owns the page version lifecycle: snapshot creation,
// publish/unpublish, deletion and retention. All mutating operations are
// transactional all-or-nothing; errors propagate wrapped, never swallowed.
type VersionService struct {
	db      *sql.DB
	queries *store.Queries
	builder *SnapshotBuilder
	renders *cache.RenderCache
	logger  *slog.Logger
}

// NewVersionService creates a VersionService. renderCache may be nil.
func NewVersionService(db *sql.DB, renderCache *cache.RenderCache, logger *slog.Logger) *VersionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionService{
		db:      db,
		queries: store.New(db),
		builder: NewSnapshotBuilder(db),
		renders: renderCache,
		logger:  logger,
	}
}

// CreateVersion snapshots the current draft tree of a page as the next
// sequential version. The snapshot preserves every language and no dynamic
// state. Number allocation and row insert happen in one transaction; a
// conflicting concurrent creator triggers a retry with a fresh number.
func (s *VersionService) CreateVersion(ctx context.Context, pageID int64, name string, createdBy int64, metadata map[string]any) (model.PageVersion, error) {
	snap, err := s.builder.BuildDraftSnapshot(ctx, pageID)
	if err != nil {
		return model.PageVersion{}, err
	}
	raw, err := snap.Encode()
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("encoding snapshot of page %d: %w", pageID, err)
	}

	var metadataJSON sql.NullString
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return model.PageVersion{}, fmt.Errorf("encoding version metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(b), Valid: true}
	}

	var version model.PageVersion
	for attempt := 0; attempt < createVersionRetries; attempt++ {
		version, err = s.insertVersion(ctx, pageID, name, createdBy, string(raw), metadataJSON)
		if err == nil {
			break
		}
		if !isUniqueConflict(err) {
			return model.PageVersion{}, err
		}
	}
	if err != nil {
		return model.PageVersion{}, err
	}

	s.logger.Info("page version created",
		"category", "version",
		"page_id", pageID,
		"version", version.VersionNumber,
	)
	return version, nil
}

func (s *VersionService) insertVersion(ctx context.Context, pageID int64, name string, createdBy int64, snapshot string, metadata sql.NullString) (model.PageVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	version, err := insertVersionTx(ctx, s.queries.WithTx(tx), pageID, name, createdBy, snapshot, metadata)
	if err != nil {
		return model.PageVersion{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.PageVersion{}, fmt.Errorf("committing version: %w", err)
	}
	return version, nil
}

// insertVersionTx allocates the next version number and inserts the row
// inside the caller's transaction.
func insertVersionTx(ctx context.Context, q *store.Queries, pageID int64, name string, createdBy int64, snapshot string, metadata sql.NullString) (model.PageVersion, error) {
	maxNumber, err := q.GetMaxVersionNumber(ctx, pageID)
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("allocating version number: %w", err)
	}

	version, err := q.CreatePageVersion(ctx, store.CreatePageVersionParams{
		UUID:          uuid.NewString(),
		PageID:        pageID,
		VersionNumber: maxNumber + 1,
		VersionName:   sql.NullString{String: name, Valid: name != ""},
		Snapshot:      snapshot,
		CreatedBy:     sql.NullInt64{Int64: createdBy, Valid: createdBy != 0},
		Metadata:      metadata,
	})
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("inserting version: %w", err)
	}
	return version, nil
}

// PublishVersion marks a version as the page's published one. Validation,
// the publish timestamp and the page's published-pointer update are atomic.
func (s *VersionService) PublishVersion(ctx context.Context, pageID, versionID int64) (model.PageVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := s.queries.WithTx(tx)

	version, err := q.GetPageVersion(ctx, versionID)
	if err == sql.ErrNoRows {
		return model.PageVersion{}, ErrVersionNotFound
	}
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("loading version %d: %w", versionID, err)
	}
	if version.PageID != pageID {
		return model.PageVersion{}, ErrVersionPageMismatch
	}

	now, err := publishTx(ctx, q, pageID, versionID)
	if err != nil {
		return model.PageVersion{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.PageVersion{}, fmt.Errorf("committing publish: %w", err)
	}

	s.invalidatePage(ctx, pageID)
	s.logger.Info("page version published",
		"category", "version",
		"page_id", pageID,
		"version", version.VersionNumber,
	)

	version.PublishedAt = sql.NullTime{Time: now, Valid: true}
	return version, nil
}

// publishTx repoints a page at a version inside the caller's transaction:
// the old publish timestamps are cleared, the version stamped and the
// page's published pointer updated together.
func publishTx(ctx context.Context, q *store.Queries, pageID, versionID int64) (time.Time, error) {
	now := time.Now().UTC()
	if err := q.ClearPublishedVersions(ctx, pageID); err != nil {
		return time.Time{}, fmt.Errorf("clearing published versions: %w", err)
	}
	if err := q.MarkVersionPublished(ctx, versionID, now); err != nil {
		return time.Time{}, fmt.Errorf("publishing version %d: %w", versionID, err)
	}
	if err := q.UpdatePagePublishedVersion(ctx, pageID, sql.NullInt64{Int64: versionID, Valid: true}); err != nil {
		return time.Time{}, fmt.Errorf("repointing page %d: %w", pageID, err)
	}
	return now, nil
}

// CreateAndPublish snapshots the draft and publishes the new version in one
// step. Number allocation, the row insert and the published-pointer update
// share one transaction, so a failed publish rolls the insert back. A
// version-number conflict with a concurrent creator retries like
// CreateVersion does.
func (s *VersionService) CreateAndPublish(ctx context.Context, pageID int64, name string, createdBy int64) (model.PageVersion, error) {
	snap, err := s.builder.BuildDraftSnapshot(ctx, pageID)
	if err != nil {
		return model.PageVersion{}, err
	}
	raw, err := snap.Encode()
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("encoding snapshot of page %d: %w", pageID, err)
	}

	var version model.PageVersion
	for attempt := 0; attempt < createVersionRetries; attempt++ {
		version, err = s.insertAndPublish(ctx, pageID, name, createdBy, string(raw))
		if err == nil {
			break
		}
		if !isUniqueConflict(err) {
			return model.PageVersion{}, err
		}
	}
	if err != nil {
		return model.PageVersion{}, err
	}

	s.invalidatePage(ctx, pageID)
	s.logger.Info("page version created",
		"category", "version",
		"page_id", pageID,
		"version", version.VersionNumber,
	)
	s.logger.Info("page version published",
		"category", "version",
		"page_id", pageID,
		"version", version.VersionNumber,
	)
	return version, nil
}

func (s *VersionService) insertAndPublish(ctx context.Context, pageID int64, name string, createdBy int64, snapshot string) (model.PageVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := s.queries.WithTx(tx)

	version, err := insertVersionTx(ctx, q, pageID, name, createdBy, snapshot, sql.NullString{})
	if err != nil {
		return model.PageVersion{}, err
	}
	now, err := publishTx(ctx, q, pageID, version.ID)
	if err != nil {
		return model.PageVersion{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.PageVersion{}, fmt.Errorf("committing publish: %w", err)
	}

	version.PublishedAt = sql.NullTime{Time: now, Valid: true}
	return version, nil
}

// UnpublishPage clears the page's published-version reference. The live
// path falls back to rendering the draft directly.
func (s *VersionService) UnpublishPage(ctx context.Context, pageID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := s.queries.WithTx(tx)

	if _, err := q.GetPageByID(ctx, pageID); err == sql.ErrNoRows {
		return ErrPageNotFound
	} else if err != nil {
		return fmt.Errorf("loading page %d: %w", pageID, err)
	}

	if err := q.UpdatePagePublishedVersion(ctx, pageID, sql.NullInt64{}); err != nil {
		return fmt.Errorf("clearing published pointer: %w", err)
	}
	if err := q.ClearPublishedVersions(ctx, pageID); err != nil {
		return fmt.Errorf("clearing published versions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing unpublish: %w", err)
	}

	s.invalidatePage(ctx, pageID)
	s.logger.Info("page unpublished", "category", "version", "page_id", pageID)
	return nil
}

// DeleteVersion removes a version. The currently published version of a
// page cannot be deleted; the check and the delete share one transaction
// so a concurrent publish cannot slip between them.
func (s *VersionService) DeleteVersion(ctx context.Context, versionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := s.queries.WithTx(tx)

	version, err := q.GetPageVersion(ctx, versionID)
	if err == sql.ErrNoRows {
		return ErrVersionNotFound
	}
	if err != nil {
		return fmt.Errorf("loading version %d: %w", versionID, err)
	}

	page, err := q.GetPageByID(ctx, version.PageID)
	if err != nil {
		return fmt.Errorf("loading page %d: %w", version.PageID, err)
	}
	if page.PublishedVersionID.Valid && page.PublishedVersionID.Int64 == versionID {
		return ErrVersionPublished
	}

	if err := q.DeletePageVersion(ctx, versionID); err != nil {
		return fmt.Errorf("deleting version %d: %w", versionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// ApplyRetentionPolicy deletes a page's oldest versions beyond keep, by
// version number. The published version always survives, even outside the
// retention window. keep <= 0 keeps everything. Returns the number of
// versions deleted.
func (s *VersionService) ApplyRetentionPolicy(ctx context.Context, pageID int64, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	versions, err := s.queries.ListPageVersions(ctx, pageID)
	if err != nil {
		return 0, fmt.Errorf("listing versions of page %d: %w", pageID, err)
	}

	deleted := 0
	for i, v := range versions {
		if i < keep || v.IsPublished() {
			continue
		}
		if err := s.queries.DeletePageVersion(ctx, v.ID); err != nil {
			return deleted, fmt.Errorf("deleting version %d: %w", v.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("retention policy applied",
			"category", "version",
			"page_id", pageID,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// GetPageVersions lists a page's versions, newest first, without snapshots.
func (s *VersionService) GetPageVersions(ctx context.Context, pageID int64) ([]model.PageVersion, error) {
	if _, err := s.queries.GetPageByID(ctx, pageID); err == sql.ErrNoRows {
		return nil, ErrPageNotFound
	} else if err != nil {
		return nil, fmt.Errorf("loading page %d: %w", pageID, err)
	}
	return s.queries.ListPageVersions(ctx, pageID)
}

// GetVersion fetches one version including its snapshot.
func (s *VersionService) GetVersion(ctx context.Context, versionID int64) (model.PageVersion, error) {
	version, err := s.queries.GetPageVersion(ctx, versionID)
	if err == sql.ErrNoRows {
		return model.PageVersion{}, ErrVersionNotFound
	}
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("loading version %d: %w", versionID, err)
	}
	return version, nil
}

func (s *VersionService) invalidatePage(ctx context.Context, pageID int64) {
	if s.renders != nil {
		s.renders.InvalidateTag(ctx, cache.PageTag(pageID))
	}
}

// isUniqueConflict reports whether an error is a unique constraint
// violation from the sqlite driver.
func isUniqueConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
