// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

// RetrieveRequest describes one data-source retrieval against an external
// data table.
type RetrieveRequest struct {
	Table          string
	Filter         string
	Fields         []string
	ExcludeDeleted bool
	CurrentUser    bool
	UserID         int64
	LanguageID     int64
	Timezone       string
}

// Retriever executes data-source declarations. Implementations apply their
// own timeouts; a timeout surfaces as a retrieval error and is treated the
// same way.
type Retriever interface {
	Retrieve(ctx context.Context, req RetrieveRequest) ([]map[string]any, error)
}

// retrieveData evaluates a node's data-source declarations against the
// inherited scope and returns the node-local namespaces they produce.
//
// Declarations are interpolated against the inherited scope only: a filter
// cannot reference another declaration of the same section, even one listed
// earlier. Cross-declaration visibility within a section is deliberately
// unsupported.
//
// Dynamic content is best-effort: a retrieval error leaves that one scope
// absent and must not disturb sibling declarations or other sections. The
// error is logged and deliberately discarded here.
func (c *Composer) retrieveData(ctx context.Context, node *model.SectionNode, inherited Scope, opts Options) Scope {
	if c.retriever == nil || len(node.DataConfig) == 0 {
		return nil
	}

	local := NewScope()
	for i, decl := range node.DataConfig {
		d := InterpolateDataSource(decl, inherited)
		rows, err := c.retriever.Retrieve(ctx, RetrieveRequest{
			Table:          d.Table,
			Filter:         d.Filter,
			Fields:         d.Fields,
			ExcludeDeleted: true,
			CurrentUser:    d.CurrentUser,
			UserID:         opts.UserID,
			LanguageID:     opts.LanguageID,
			Timezone:       opts.Timezone,
		})
		if err != nil {
			c.logger.Debug("data source retrieval failed",
				"section", node.SectionName,
				"table", d.Table,
				"scope", d.ScopeName(i),
				"error", err)
			continue
		}
		local[d.ScopeName(i)] = applyFieldMap(rows, d.MapFields)
	}

	if len(local) == 0 {
		return nil
	}
	return local
}

// applyFieldMap renames row keys per the declaration's map_fields. Unmapped
// keys pass through unchanged.
func applyFieldMap(rows []map[string]any, mapFields map[string]string) []map[string]any {
	if len(mapFields) == 0 {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		mapped := make(map[string]any, len(row))
		for k, v := range row {
			if renamed, ok := mapFields[k]; ok {
				mapped[renamed] = v
			} else {
				mapped[k] = v
			}
		}
		out[i] = mapped
	}
	return out
}
