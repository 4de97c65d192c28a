// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/composer"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// SnapshotBuilder loads a page's live draft tree from storage in the
// pre-resolution snapshot shape: tree plus every language's field content,
// raw conditions and data-source declarations, no resolved data. Both the
// live render path and version creation start from this shape.
type SnapshotBuilder struct {
	queries *store.Queries
}

// NewSnapshotBuilder creates a SnapshotBuilder.
func NewSnapshotBuilder(db *sql.DB) *SnapshotBuilder {
	return &SnapshotBuilder{queries: store.New(db)}
}

// BuildDraftSnapshot assembles the draft snapshot of one page.
func (b *SnapshotBuilder) BuildDraftSnapshot(ctx context.Context, pageID int64) (*model.Snapshot, error) {
	page, err := b.queries.GetPageByID(ctx, pageID)
	if err == sql.ErrNoRows {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading page %d: %w", pageID, err)
	}

	rows, err := b.queries.ListPageSectionRows(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("loading sections of page %d: %w", pageID, err)
	}

	tree := composer.BuildTree(toTreeRows(rows))

	if err := b.attachTranslations(ctx, tree); err != nil {
		return nil, err
	}

	return &model.Snapshot{Page: snapshotPage(page, tree)}, nil
}

// attachTranslations resolves every language simultaneously into the
// per-language translation maps of the tree nodes.
func (b *SnapshotBuilder) attachTranslations(ctx context.Context, tree []*model.SectionNode) error {
	nodes := indexNodes(tree)
	if len(nodes) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}

	translations, err := b.queries.ListFieldTranslations(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}

	for _, t := range translations {
		node := nodes[t.SectionID]
		if node == nil {
			continue
		}
		fields := node.Translations[t.LanguageID]
		if fields == nil {
			fields = make(map[string]model.TranslatedField)
			node.Translations[t.LanguageID] = fields
		}
		fields[t.FieldName] = model.TranslatedField{Content: t.Content, Meta: t.Meta}
	}
	return nil
}

func toTreeRows(rows []store.SectionTreeRow) []composer.SectionRow {
	out := make([]composer.SectionRow, len(rows))
	for i, r := range rows {
		row := composer.SectionRow{
			ID:         r.ID,
			Position:   r.Position,
			Name:       r.Name,
			StyleName:  r.StyleName,
			Condition:  r.Condition.String,
			DataConfig: r.DataConfig.String,
			CSS:        r.CSS.String,
			CSSMobile:  r.CSSMobile.String,
			Debug:      r.Debug,
		}
		if r.ParentID.Valid {
			parentID := r.ParentID.Int64
			row.ParentID = &parentID
		}
		out[i] = row
	}
	return out
}

func snapshotPage(page model.Page, tree []*model.SectionNode) model.SnapshotPage {
	sp := model.SnapshotPage{
		ID:         page.ID,
		Keyword:    page.Keyword,
		URL:        page.URL,
		IsHeadless: page.IsHeadless,
		Sections:   tree,
	}
	if page.ParentPageID.Valid {
		v := page.ParentPageID.Int64
		sp.ParentPageID = &v
	}
	if page.NavPosition.Valid {
		v := page.NavPosition.Int64
		sp.NavPosition = &v
	}
	if page.FooterPosition.Valid {
		v := page.FooterPosition.Int64
		sp.FooterPosition = &v
	}
	return sp
}

// indexNodes walks a tree into an id -> node map.
func indexNodes(tree []*model.SectionNode) map[int64]*model.SectionNode {
	nodes := make(map[int64]*model.SectionNode)
	var walk func(n *model.SectionNode)
	walk = func(n *model.SectionNode) {
		if _, ok := nodes[n.ID]; ok {
			return
		}
		nodes[n.ID] = n
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, n := range tree {
		walk(n)
	}
	return nodes
}
