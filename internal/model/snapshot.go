// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "encoding/json"

// TranslatedField is one field's content in one language. A field missing
// from the map means "not set in that language" — distinct from an empty
// string, which means "translated but empty".
type TranslatedField struct {
	Content string `json:"content"`
	Meta    string `json:"meta,omitempty"`
}

// SectionNode is the pre-resolution shape of a section in a page tree: all
// languages, the raw condition and data-source declarations, no resolved
// data. Version snapshots persist exactly this shape, and the live
// composition pipeline consumes it before resolving data and conditions.
type SectionNode struct {
	ID           int64                                `json:"id"`
	SectionName  string                               `json:"section_name"`
	StyleName    string                               `json:"style_name"`
	Condition    string                               `json:"condition,omitempty"`
	DataConfig   []DataSource                         `json:"data_config,omitempty"`
	CSS          string                               `json:"css,omitempty"`
	CSSMobile    string                               `json:"css_mobile,omitempty"`
	Debug        bool                                 `json:"debug,omitempty"`
	Translations map[int64]map[string]TranslatedField `json:"translations"`
	Children     []*SectionNode                       `json:"children"`
}

// Field returns the named field in the given language and whether it is set.
func (n *SectionNode) Field(languageID int64, name string) (TranslatedField, bool) {
	fields, ok := n.Translations[languageID]
	if !ok {
		return TranslatedField{}, false
	}
	f, ok := fields[name]
	return f, ok
}

// SnapshotPage is the page header persisted inside a snapshot.
type SnapshotPage struct {
	ID             int64          `json:"id"`
	Keyword        string         `json:"keyword"`
	URL            string         `json:"url"`
	ParentPageID   *int64         `json:"parent_page_id,omitempty"`
	IsHeadless     bool           `json:"is_headless"`
	NavPosition    *int64         `json:"nav_position,omitempty"`
	FooterPosition *int64         `json:"footer_position,omitempty"`
	Sections       []*SectionNode `json:"sections"`
}

// Snapshot is the persisted, all-languages JSON form of a page's section
// tree at version-creation time.
type Snapshot struct {
	Page SnapshotPage `json:"page"`
}

// Encode serializes the snapshot to its persisted JSON form.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a persisted snapshot.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
