// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

const versionColumns = `id, uuid, page_id, version_number, version_name,
	snapshot, created_by, created_at, published_at, metadata`

func scanVersion(row *sql.Row) (model.PageVersion, error) {
	var v model.PageVersion
	err := row.Scan(&v.ID, &v.UUID, &v.PageID, &v.VersionNumber, &v.VersionName,
		&v.Snapshot, &v.CreatedBy, &v.CreatedAt, &v.PublishedAt, &v.Metadata)
	return v, err
}

// GetPageVersion fetches a version by id.
func (q *Queries) GetPageVersion(ctx context.Context, id int64) (model.PageVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM page_versions WHERE id = ?`, id))
}

// GetMaxVersionNumber returns the highest version number for a page, 0 if
// the page has no versions yet.
func (q *Queries) GetMaxVersionNumber(ctx context.Context, pageID int64) (int64, error) {
	var n sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		`SELECT MAX(version_number) FROM page_versions WHERE page_id = ?`, pageID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n.Int64, nil
}

// ListPageVersions returns a page's versions, newest first. Snapshots are
// not included; load them per version.
func (q *Queries) ListPageVersions(ctx context.Context, pageID int64) ([]model.PageVersion, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, uuid, page_id, version_number, version_name, '',
		        created_by, created_at, published_at, metadata
		 FROM page_versions WHERE page_id = ? ORDER BY version_number DESC`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PageVersion
	for rows.Next() {
		var v model.PageVersion
		if err := rows.Scan(&v.ID, &v.UUID, &v.PageID, &v.VersionNumber, &v.VersionName,
			&v.Snapshot, &v.CreatedBy, &v.CreatedAt, &v.PublishedAt, &v.Metadata); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreatePageVersionParams holds the fields for inserting a version row.
type CreatePageVersionParams struct {
	UUID          string
	PageID        int64
	VersionNumber int64
	VersionName   sql.NullString
	Snapshot      string
	CreatedBy     sql.NullInt64
	Metadata      sql.NullString
}

// CreatePageVersion inserts a version row. The unique (page_id,
// version_number) constraint rejects concurrent writers claiming the same
// number.
func (q *Queries) CreatePageVersion(ctx context.Context, arg CreatePageVersionParams) (model.PageVersion, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO page_versions (uuid, page_id, version_number, version_name, snapshot, created_by, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.UUID, arg.PageID, arg.VersionNumber, arg.VersionName, arg.Snapshot, arg.CreatedBy, arg.Metadata)
	if err != nil {
		return model.PageVersion{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.PageVersion{}, err
	}
	return q.GetPageVersion(ctx, id)
}

// MarkVersionPublished timestamps a version as published.
func (q *Queries) MarkVersionPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE page_versions SET published_at = ? WHERE id = ?`, at, id)
	return err
}

// ClearPublishedVersions clears the published timestamp on all of a page's
// versions, keeping the zero-or-one published invariant.
func (q *Queries) ClearPublishedVersions(ctx context.Context, pageID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE page_versions SET published_at = NULL WHERE page_id = ?`, pageID)
	return err
}

// UpdateVersionMetadata replaces a version's metadata. Snapshot content is
// immutable; metadata is the only mutable payload besides published_at.
func (q *Queries) UpdateVersionMetadata(ctx context.Context, id int64, metadata sql.NullString) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE page_versions SET metadata = ? WHERE id = ?`, metadata, id)
	return err
}

// DeletePageVersion removes a version row.
func (q *Queries) DeletePageVersion(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM page_versions WHERE id = ?`, id)
	return err
}
