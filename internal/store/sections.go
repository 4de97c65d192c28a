// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
)

// SectionTreeRow is one flat row of a page's section tree: the section's
// own columns plus its (parent, position) placement. ParentID is NULL for
// page-level sections.
type SectionTreeRow struct {
	ID         int64
	ParentID   sql.NullInt64
	Position   int64
	Name       string
	StyleName  string
	Condition  sql.NullString
	DataConfig sql.NullString
	CSS        sql.NullString
	CSSMobile  sql.NullString
	Debug      bool
}

// ListPageSectionRows returns the flat section rows of one page, walking
// pages_sections and the sections_hierarchy relation recursively. Order is
// unspecified; the tree builder sorts by position per parent.
func (q *Queries) ListPageSectionRows(ctx context.Context, pageID int64) ([]SectionTreeRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		WITH RECURSIVE section_tree (id, parent_id, position) AS (
			SELECT ps.section_id, NULL, ps.position
			FROM pages_sections ps
			WHERE ps.page_id = ?
			UNION ALL
			SELECT sh.child_id, sh.parent_id, sh.position
			FROM sections_hierarchy sh
			JOIN section_tree st ON st.id = sh.parent_id
		)
		SELECT st.id, st.parent_id, st.position,
		       s.name, sty.name, s.condition, s.data_config,
		       s.css, s.css_mobile, s.debug
		FROM section_tree st
		JOIN sections s ON s.id = st.id
		JOIN styles sty ON sty.id = s.id_styles`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SectionTreeRow
	for rows.Next() {
		var r SectionTreeRow
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Position,
			&r.Name, &r.StyleName, &r.Condition, &r.DataConfig,
			&r.CSS, &r.CSSMobile, &r.Debug); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateSectionParams holds the fields for creating a section.
type CreateSectionParams struct {
	Name       string
	StyleID    int64
	Condition  sql.NullString
	DataConfig sql.NullString
	CSS        sql.NullString
	CSSMobile  sql.NullString
	Debug      bool
}

// CreateSection inserts a section and returns its id.
func (q *Queries) CreateSection(ctx context.Context, arg CreateSectionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO sections (name, id_styles, condition, data_config, css, css_mobile, debug)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.StyleID, arg.Condition, arg.DataConfig, arg.CSS, arg.CSSMobile, arg.Debug)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateSectionParams holds the editable fields of a section.
type UpdateSectionParams struct {
	ID         int64
	Condition  sql.NullString
	DataConfig sql.NullString
	CSS        sql.NullString
	CSSMobile  sql.NullString
	Debug      bool
}

// UpdateSection updates a section's draft configuration.
func (q *Queries) UpdateSection(ctx context.Context, arg UpdateSectionParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE sections
		 SET condition = ?, data_config = ?, css = ?, css_mobile = ?, debug = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		arg.Condition, arg.DataConfig, arg.CSS, arg.CSSMobile, arg.Debug, arg.ID)
	return err
}

// AttachSectionToPage places a section at a position under a page root.
func (q *Queries) AttachSectionToPage(ctx context.Context, pageID, sectionID, position int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO pages_sections (page_id, section_id, position) VALUES (?, ?, ?)`,
		pageID, sectionID, position)
	return err
}

// AttachSectionToParent places a section at a position under a parent section.
func (q *Queries) AttachSectionToParent(ctx context.Context, parentID, childID, position int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sections_hierarchy (parent_id, child_id, position) VALUES (?, ?, ?)`,
		parentID, childID, position)
	return err
}

// GetStyleIDByName fetches a style id, creating the style if missing.
func (q *Queries) GetStyleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `SELECT id FROM styles WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO styles (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
