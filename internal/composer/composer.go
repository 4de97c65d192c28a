// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

// Options controls one composition pass.
type Options struct {
	// LanguageID selects the working language for content fields.
	LanguageID int64
	// DefaultLanguageID is the project-wide fallback for content fields
	// missing in the working language.
	DefaultLanguageID int64
	// UserID is passed to the condition evaluator.
	UserID int64
	// Timezone is handed to data retrievals for timestamp formatting.
	Timezone string
	// IncludeTrace attaches condition traces and per-section debug data to
	// the rendered output. Live path only; never persisted.
	IncludeTrace bool
}

// RenderedField is one resolved, interpolated content field.
type RenderedField struct {
	Content string `json:"content"`
	Meta    string `json:"meta,omitempty"`
}

// RenderedSection is a section enriched with resolved content. The tree is
// identical in shape to the input minus subtrees dropped by conditions.
type RenderedSection struct {
	ID             int64                    `json:"id"`
	Name           string                   `json:"name"`
	StyleName      string                   `json:"style_name"`
	Fields         map[string]RenderedField `json:"fields"`
	CSS            string                   `json:"css,omitempty"`
	CSSMobile      string                   `json:"css_mobile,omitempty"`
	Debug          bool                     `json:"debug,omitempty"`
	Data           Scope                    `json:"data,omitempty"`
	ConditionTrace *Trace                   `json:"condition_trace,omitempty"`
	Children       []*RenderedSection       `json:"children"`
}

// Composer runs the recursive composition pipeline over a section tree.
// It is purely synchronous and depth-first: sections are small trees, and
// each retrieval blocks in sequence.
type Composer struct {
	retriever Retriever
	evaluator Evaluator
	logger    *slog.Logger
}

// New creates a Composer. A nil evaluator defaults to the JSON-logic
// evaluator; a nil retriever leaves all data-source scopes absent.
func New(retriever Retriever, evaluator Evaluator, logger *slog.Logger) *Composer {
	if evaluator == nil {
		evaluator = &JSONLogicEvaluator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{retriever: retriever, evaluator: evaluator, logger: logger}
}

// Render processes the tree depth-first, propagating merged scope to
// children and preserving sibling order. Siblings never see each other's
// scopes; only a common ancestor's namespaces are shared.
func (c *Composer) Render(ctx context.Context, nodes []*model.SectionNode, root Scope, opts Options) []*RenderedSection {
	if root == nil {
		root = NewScope()
	}
	out := make([]*RenderedSection, 0, len(nodes))
	for _, node := range nodes {
		if rendered := c.renderNode(ctx, node, root, opts); rendered != nil {
			out = append(out, rendered)
		}
	}
	return out
}

// renderNode runs the per-section state machine:
//
//  1. interpolate eligible fields with the inherited scope
//  2. retrieve data-source declarations (interpolated with inherited scope)
//  3. merge node-local namespaces over the inherited ones
//  4. re-interpolate with the merged scope, so placeholders referencing the
//     node's own retrieved data now resolve
//  5. evaluate the condition against the merged scope
//  6. a failing condition drops the node and its entire subtree
//  7. recurse into children with the merged scope
func (c *Composer) renderNode(ctx context.Context, node *model.SectionNode, inherited Scope, opts Options) *RenderedSection {
	fields := resolveFields(node, opts)

	fields = interpolateFields(fields, inherited)
	condition := InterpolateString(node.Condition, inherited)
	css := InterpolateString(node.CSS, inherited)
	cssMobile := InterpolateString(node.CSSMobile, inherited)

	local := c.retrieveData(ctx, node, inherited, opts)
	merged := inherited.Merge(local)

	fields = interpolateFields(fields, merged)
	condition = InterpolateString(condition, merged)
	css = InterpolateString(css, merged)
	cssMobile = InterpolateString(cssMobile, merged)

	outcome := c.evaluator.Evaluate(ctx, condition, opts.UserID, node.SectionName, merged)
	if !outcome.Passed {
		// Children are never evaluated independently of a failed parent.
		return nil
	}

	rendered := &RenderedSection{
		ID:        node.ID,
		Name:      node.SectionName,
		StyleName: node.StyleName,
		Fields:    fields,
		CSS:       css,
		CSSMobile: cssMobile,
		Debug:     node.Debug,
		Children:  []*RenderedSection{},
	}
	if opts.IncludeTrace {
		rendered.ConditionTrace = outcome.Trace
		if node.Debug {
			rendered.Data = local
		}
	}

	for _, child := range node.Children {
		if childRendered := c.renderNode(ctx, child, merged, opts); childRendered != nil {
			rendered.Children = append(rendered.Children, childRendered)
		}
	}
	return rendered
}

// resolveFields picks the working-language content for a node: property
// fields come from the reserved canonical language and never fall back;
// content fields fall back per field to the default language. A field
// missing in both stays absent, preserving the difference between "not
// translated" and "translated but empty".
func resolveFields(node *model.SectionNode, opts Options) map[string]RenderedField {
	fields := make(map[string]RenderedField)

	for name, f := range node.Translations[model.PropertyLanguageID] {
		fields[name] = RenderedField{Content: f.Content, Meta: f.Meta}
	}

	if opts.DefaultLanguageID != model.PropertyLanguageID {
		for name, f := range node.Translations[opts.DefaultLanguageID] {
			fields[name] = RenderedField{Content: f.Content, Meta: f.Meta}
		}
	}

	if opts.LanguageID != opts.DefaultLanguageID && opts.LanguageID != model.PropertyLanguageID {
		for name, f := range node.Translations[opts.LanguageID] {
			fields[name] = RenderedField{Content: f.Content, Meta: f.Meta}
		}
	}

	return fields
}

// DependentTables walks data_config across a whole tree and returns the
// distinct data tables a render of it depends on, plus whether any
// declaration is user-specific. Callers use this to declare cache scopes.
func DependentTables(nodes []*model.SectionNode) (tables []string, perUser bool) {
	seen := make(map[string]bool)
	var walk func(node *model.SectionNode)
	walk = func(node *model.SectionNode) {
		for _, decl := range node.DataConfig {
			if decl.CurrentUser {
				perUser = true
			}
			if decl.Table != "" && !seen[decl.Table] {
				seen[decl.Table] = true
				tables = append(tables, decl.Table)
			}
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, node := range nodes {
		walk(node)
	}
	return tables, perUser
}

// UsesUserContext reports whether any node in the tree references the
// per-user entries of the reserved system namespace, in content fields,
// conditions or data-source filters. A render of such a tree differs per
// user even when no declaration sets current_user, so it must not share a
// cache entry across users.
func UsesUserContext(nodes []*model.SectionNode) bool {
	const marker = "system.user"

	var walk func(node *model.SectionNode) bool
	walk = func(node *model.SectionNode) bool {
		if strings.Contains(node.Condition, marker) {
			return true
		}
		for _, decl := range node.DataConfig {
			if strings.Contains(decl.Filter, marker) {
				return true
			}
		}
		for _, fields := range node.Translations {
			for _, f := range fields {
				if strings.Contains(f.Content, marker) || strings.Contains(f.Meta, marker) {
					return true
				}
			}
		}
		for _, child := range node.Children {
			if walk(child) {
				return true
			}
		}
		return false
	}

	for _, node := range nodes {
		if walk(node) {
			return true
		}
	}
	return false
}
