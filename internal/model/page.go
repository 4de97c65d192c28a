// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Page represents a CMS page: the root of a section tree.
// A page serves either its live draft tree or, when PublishedVersionID is
// set, the immutable snapshot held by that version.
type Page struct {
	ID                 int64         `json:"id"`
	Keyword            string        `json:"keyword"`
	URL                string        `json:"url"`
	ParentPageID       sql.NullInt64 `json:"parent_page_id,omitempty"`
	IsHeadless         bool          `json:"is_headless"`
	NavPosition        sql.NullInt64 `json:"nav_position,omitempty"`
	FooterPosition     sql.NullInt64 `json:"footer_position,omitempty"`
	PublishedVersionID sql.NullInt64 `json:"published_version_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsPublished returns true if the page currently serves a published version.
func (p *Page) IsPublished() bool {
	return p.PublishedVersionID.Valid
}
