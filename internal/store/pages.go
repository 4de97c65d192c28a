// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

const pageColumns = `id, keyword, url, parent_page_id, is_headless,
	nav_position, footer_position, published_version_id, created_at, updated_at`

func scanPage(row *sql.Row) (model.Page, error) {
	var p model.Page
	err := row.Scan(&p.ID, &p.Keyword, &p.URL, &p.ParentPageID, &p.IsHeadless,
		&p.NavPosition, &p.FooterPosition, &p.PublishedVersionID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPageByID fetches a page by id.
func (q *Queries) GetPageByID(ctx context.Context, id int64) (model.Page, error) {
	return scanPage(q.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
}

// GetPageByKeyword fetches a page by its unique keyword.
func (q *Queries) GetPageByKeyword(ctx context.Context, keyword string) (model.Page, error) {
	return scanPage(q.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE keyword = ?`, keyword))
}

// ListPageIDs returns the ids of all pages, ordered.
func (q *Queries) ListPageIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM pages ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreatePageParams holds the fields for creating a page.
type CreatePageParams struct {
	Keyword        string
	URL            string
	ParentPageID   sql.NullInt64
	IsHeadless     bool
	NavPosition    sql.NullInt64
	FooterPosition sql.NullInt64
}

// CreatePage inserts a page and returns it.
func (q *Queries) CreatePage(ctx context.Context, arg CreatePageParams) (model.Page, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO pages (keyword, url, parent_page_id, is_headless, nav_position, footer_position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Keyword, arg.URL, arg.ParentPageID, arg.IsHeadless, arg.NavPosition, arg.FooterPosition)
	if err != nil {
		return model.Page{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Page{}, err
	}
	return q.GetPageByID(ctx, id)
}

// UpdatePagePublishedVersion repoints (or clears) a page's published
// version reference.
func (q *Queries) UpdatePagePublishedVersion(ctx context.Context, pageID int64, versionID sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pages SET published_version_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		versionID, pageID)
	return err
}

// TouchPage bumps a page's updated_at, used when its section tree changes.
func (q *Queries) TouchPage(ctx context.Context, pageID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pages SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, pageID)
	return err
}
