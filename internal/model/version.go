// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// PageVersion is an immutable snapshot of a page's section tree. Only
// PublishedAt and Metadata may change after creation; the snapshot itself
// never does. Version numbers are strictly increasing per page from 1.
type PageVersion struct {
	ID            int64          `json:"id"`
	UUID          string         `json:"uuid"`
	PageID        int64          `json:"page_id"`
	VersionNumber int64          `json:"version_number"`
	VersionName   sql.NullString `json:"version_name,omitempty"`
	Snapshot      string         `json:"-"`
	CreatedBy     sql.NullInt64  `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	PublishedAt   sql.NullTime   `json:"published_at,omitempty"`
	Metadata      sql.NullString `json:"metadata,omitempty"`
}

// IsPublished returns true if this version has been published.
func (v *PageVersion) IsPublished() bool {
	return v.PublishedAt.Valid
}
