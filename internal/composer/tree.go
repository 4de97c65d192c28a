// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

// SectionRow is a flat (section, position, parent) row for one page, as
// returned by the store. ParentID is nil for page-level sections.
type SectionRow struct {
	ID         int64
	ParentID   *int64
	Position   int64
	Name       string
	StyleName  string
	Condition  string
	DataConfig string // raw JSON text, decoded once here
	CSS        string
	CSSMobile  string
	Debug      bool
}

// BuildTree turns flat rows into a nested section tree ordered by position.
// A row referencing a missing parent is promoted to the root list after the
// legitimate roots — orphans are never dropped, versioning must stay
// lossless.
func BuildTree(rows []SectionRow) []*model.SectionNode {
	nodes := make(map[int64]*model.SectionNode, len(rows))
	for _, r := range rows {
		if _, ok := nodes[r.ID]; !ok {
			nodes[r.ID] = newNode(r)
		}
	}

	type placement struct {
		position int64
		node     *model.SectionNode
	}
	children := make(map[int64][]placement)
	var roots, orphans []placement

	for _, r := range rows {
		p := placement{position: r.Position, node: nodes[r.ID]}
		switch {
		case r.ParentID == nil:
			roots = append(roots, p)
		case nodes[*r.ParentID] == nil:
			orphans = append(orphans, p)
		default:
			children[*r.ParentID] = append(children[*r.ParentID], p)
		}
	}

	byPosition := func(ps []placement) {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].position < ps[j].position })
	}

	for parentID, ps := range children {
		byPosition(ps)
		parent := nodes[parentID]
		for _, p := range ps {
			parent.Children = append(parent.Children, p.node)
		}
	}

	byPosition(roots)
	byPosition(orphans)

	out := make([]*model.SectionNode, 0, len(roots)+len(orphans))
	for _, p := range roots {
		out = append(out, p.node)
	}
	for _, p := range orphans {
		out = append(out, p.node)
	}
	return out
}

func newNode(r SectionRow) *model.SectionNode {
	return &model.SectionNode{
		ID:           r.ID,
		SectionName:  r.Name,
		StyleName:    r.StyleName,
		Condition:    NormalizeCondition(r.Condition),
		DataConfig:   ParseDataConfig(r.DataConfig),
		CSS:          r.CSS,
		CSSMobile:    r.CSSMobile,
		Debug:        r.Debug,
		Translations: make(map[int64]map[string]model.TranslatedField),
		Children:     []*model.SectionNode{},
	}
}

// NormalizeCondition unwraps a condition stored as a JSON string literal
// (legacy rows double-encode the expression) and trims whitespace.
func NormalizeCondition(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if gjson.Valid(raw) {
		if parsed := gjson.Parse(raw); parsed.Type == gjson.String {
			return strings.TrimSpace(parsed.String())
		}
	}
	return raw
}

// ParseDataConfig decodes a section's data_config JSON once at tree-build
// time. A single declaration object is accepted in place of a list.
// Malformed JSON skips the whole declaration list for that section; the
// section still renders with its static content.
func ParseDataConfig(raw string) []model.DataSource {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	if !gjson.Valid(raw) {
		return nil
	}
	if gjson.Parse(raw).IsObject() {
		raw = "[" + raw + "]"
	}
	var config []model.DataSource
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil
	}
	return config
}
