// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strconv"

// Section is a content node in a page tree. Sections carry per-language
// content fields, an optional inclusion condition and an ordered list of
// data-source declarations. The tree shape itself lives in the
// pages_sections / sections_hierarchy relations, not on the section.
type Section struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	StyleName  string       `json:"style_name"`
	Condition  string       `json:"condition,omitempty"`
	DataConfig []DataSource `json:"data_config,omitempty"`
	CSS        string       `json:"css,omitempty"`
	CSSMobile  string       `json:"css_mobile,omitempty"`
	Debug      bool         `json:"debug,omitempty"`
}

// DataSource is one entry of a section's data_config: an external query
// declaration plus the scope name its result rows populate.
type DataSource struct {
	Table       string            `json:"table"`
	Filter      string            `json:"filter,omitempty"`
	Scope       string            `json:"scope,omitempty"`
	CurrentUser bool              `json:"current_user,omitempty"`
	Fields      []string          `json:"fields,omitempty"`
	MapFields   map[string]string `json:"map_fields,omitempty"`
}

// ScopeName returns the namespace the declaration's rows are stored under.
// Declarations without an explicit scope fall back to their position index.
func (d DataSource) ScopeName(index int) string {
	if d.Scope != "" {
		return d.Scope
	}
	return strconv.Itoa(index)
}
