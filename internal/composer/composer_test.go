// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/testutil"
)

// fakeRetriever serves canned rows per table and records the requests it saw.
type fakeRetriever struct {
	rows     map[string][]map[string]any
	err      map[string]error
	requests []RetrieveRequest
}

func (f *fakeRetriever) Retrieve(_ context.Context, req RetrieveRequest) ([]map[string]any, error) {
	f.requests = append(f.requests, req)
	if err := f.err[req.Table]; err != nil {
		return nil, err
	}
	return f.rows[req.Table], nil
}

func contentNode(id int64, name string, fields map[string]string) *model.SectionNode {
	translated := make(map[string]model.TranslatedField, len(fields))
	for k, v := range fields {
		translated[k] = model.TranslatedField{Content: v}
	}
	return &model.SectionNode{
		ID:          id,
		SectionName: name,
		StyleName:   "markdown",
		Translations: map[int64]map[string]model.TranslatedField{
			2: translated,
		},
		Children: []*model.SectionNode{},
	}
}

func baseOptions() Options {
	return Options{LanguageID: 2, DefaultLanguageID: 2, UserID: 7}
}

func TestComposer_Render_ScopeInheritance(t *testing.T) {
	retriever := &fakeRetriever{rows: map[string][]map[string]any{
		"surveys": {{"title": "Sleep Study"}},
	}}

	parent := contentNode(1, "parent", map[string]string{"heading": "{{study.title}}"})
	parent.DataConfig = []model.DataSource{{Table: "surveys", Scope: "study"}}
	child := contentNode(2, "child", map[string]string{"text": "About {{study.title}}"})
	parent.Children = []*model.SectionNode{child}

	c := New(retriever, nil, testutil.TestLogger())
	out := c.Render(context.Background(), []*model.SectionNode{parent}, nil, baseOptions())

	if len(out) != 1 {
		t.Fatalf("expected 1 rendered root, got %d", len(out))
	}
	// The parent's own retrieved data resolves via re-interpolation.
	if got := out[0].Fields["heading"].Content; got != "Sleep Study" {
		t.Errorf("parent heading = %q", got)
	}
	if len(out[0].Children) != 1 {
		t.Fatal("child missing from rendered tree")
	}
	// Children inherit the parent's merged scope.
	if got := out[0].Children[0].Fields["text"].Content; got != "About Sleep Study" {
		t.Errorf("child text = %q", got)
	}
}

func TestComposer_Render_SiblingIsolation(t *testing.T) {
	retriever := &fakeRetriever{rows: map[string][]map[string]any{
		"surveys": {{"title": "Sleep Study"}},
	}}

	first := contentNode(1, "first", nil)
	first.DataConfig = []model.DataSource{{Table: "surveys", Scope: "study"}}
	second := contentNode(2, "second", map[string]string{"text": "{{study.title}}"})

	c := New(retriever, nil, testutil.TestLogger())
	out := c.Render(context.Background(), []*model.SectionNode{first, second}, nil, baseOptions())

	if len(out) != 2 {
		t.Fatalf("expected 2 rendered roots, got %d", len(out))
	}
	// A sibling never sees another sibling's namespaces.
	if got := out[1].Fields["text"].Content; got != "{{study.title}}" {
		t.Errorf("sibling leaked scope, text = %q", got)
	}
}

func TestComposer_Render_ConditionDropsSubtree(t *testing.T) {
	parent := contentNode(1, "parent", nil)
	parent.Condition = "false"
	parent.Children = []*model.SectionNode{contentNode(2, "child", nil)}
	sibling := contentNode(3, "sibling", nil)

	c := New(nil, nil, testutil.TestLogger())
	out := c.Render(context.Background(), []*model.SectionNode{parent, sibling}, nil, baseOptions())

	if len(out) != 1 || out[0].Name != "sibling" {
		t.Fatalf("failed condition must drop the node and its subtree, got %d nodes", len(out))
	}
}

func TestComposer_Render_RetrievalErrorIsSwallowed(t *testing.T) {
	retriever := &fakeRetriever{
		rows: map[string][]map[string]any{"ok_table": {{"v": "fine"}}},
		err:  map[string]error{"bad_table": errors.New("boom")},
	}

	node := contentNode(1, "sec", map[string]string{
		"a": "{{bad.v}}",
		"b": "{{good.v}}",
	})
	node.DataConfig = []model.DataSource{
		{Table: "bad_table", Scope: "bad"},
		{Table: "ok_table", Scope: "good"},
	}

	c := New(retriever, nil, testutil.TestLogger())
	out := c.Render(context.Background(), []*model.SectionNode{node}, nil, baseOptions())

	if len(out) != 1 {
		t.Fatal("section must still render when a retrieval fails")
	}
	if got := out[0].Fields["a"].Content; got != "{{bad.v}}" {
		t.Errorf("failed scope must stay absent, a = %q", got)
	}
	if got := out[0].Fields["b"].Content; got != "fine" {
		t.Errorf("sibling declaration must be unaffected, b = %q", got)
	}
}

func TestComposer_Render_DeclarationInterpolation(t *testing.T) {
	retriever := &fakeRetriever{rows: map[string][]map[string]any{}}

	node := contentNode(1, "sec", nil)
	node.DataConfig = []model.DataSource{
		{Table: "t_{{system.user_name}}", Filter: "owner = '{{system.user_name}}'", CurrentUser: true},
	}

	root := Scope{"system": map[string]any{"user_name": "alice"}}
	c := New(retriever, nil, testutil.TestLogger())
	c.Render(context.Background(), []*model.SectionNode{node}, root, baseOptions())

	if len(retriever.requests) != 1 {
		t.Fatalf("expected 1 retrieval, got %d", len(retriever.requests))
	}
	req := retriever.requests[0]
	if req.Table != "t_alice" {
		t.Errorf("table = %q", req.Table)
	}
	if req.Filter != "owner = 'alice'" {
		t.Errorf("filter = %q", req.Filter)
	}
	if !req.CurrentUser || req.UserID != 7 {
		t.Errorf("user scoping not forwarded: current_user=%v user_id=%d", req.CurrentUser, req.UserID)
	}
	if !req.ExcludeDeleted {
		t.Error("retrievals must exclude soft-deleted rows")
	}
}

func TestComposer_Render_PropertyFieldsNeverFallBack(t *testing.T) {
	node := &model.SectionNode{
		ID:          1,
		SectionName: "sec",
		Translations: map[int64]map[string]model.TranslatedField{
			model.PropertyLanguageID: {"icon": {Content: "house"}},
			2:                        {"title": {Content: "Default"}},
			3:                        {"title": {Content: "Übersetzt"}},
		},
		Children: []*model.SectionNode{},
	}

	c := New(nil, nil, testutil.TestLogger())
	opts := Options{LanguageID: 3, DefaultLanguageID: 2}
	out := c.Render(context.Background(), []*model.SectionNode{node}, nil, opts)

	fields := out[0].Fields
	if fields["icon"].Content != "house" {
		t.Errorf("property field missing, got %q", fields["icon"].Content)
	}
	if fields["title"].Content != "Übersetzt" {
		t.Errorf("working language must win, got %q", fields["title"].Content)
	}
}

func TestComposer_Render_TraceOnlyWhenRequested(t *testing.T) {
	node := contentNode(1, "sec", nil)
	node.Condition = "true"

	c := New(nil, nil, testutil.TestLogger())

	out := c.Render(context.Background(), []*model.SectionNode{node}, nil, baseOptions())
	if out[0].ConditionTrace != nil {
		t.Error("trace attached without IncludeTrace")
	}

	opts := baseOptions()
	opts.IncludeTrace = true
	out = c.Render(context.Background(), []*model.SectionNode{node}, nil, opts)
	if out[0].ConditionTrace == nil {
		t.Error("trace missing with IncludeTrace")
	}
}

func TestDependentTables(t *testing.T) {
	child := contentNode(2, "child", nil)
	child.DataConfig = []model.DataSource{
		{Table: "surveys", CurrentUser: true},
	}
	root := contentNode(1, "root", nil)
	root.DataConfig = []model.DataSource{
		{Table: "surveys"},
		{Table: "scores"},
	}
	root.Children = []*model.SectionNode{child}

	tables, perUser := DependentTables([]*model.SectionNode{root})
	if len(tables) != 2 {
		t.Fatalf("expected 2 distinct tables, got %v", tables)
	}
	if !perUser {
		t.Error("per-user declaration not detected")
	}
}

func TestUsesUserContext(t *testing.T) {
	tests := []struct {
		name string
		node *model.SectionNode
		want bool
	}{
		{
			name: "plain content",
			node: contentNode(1, "plain", map[string]string{"title": "Welcome"}),
			want: false,
		},
		{
			name: "user placeholder in content",
			node: contentNode(1, "greeting", map[string]string{"title": "Hi {{system.user_name}}"}),
			want: true,
		},
		{
			name: "non-user system placeholder",
			node: contentNode(1, "dated", map[string]string{"title": "{{system.date}}"}),
			want: false,
		},
		{
			name: "condition on user id",
			node: func() *model.SectionNode {
				n := contentNode(1, "gated", map[string]string{"title": "Members"})
				n.Condition = `{">": [{"var": "system.user_id"}, 0]}`
				return n
			}(),
			want: true,
		},
		{
			name: "filter interpolating user id",
			node: func() *model.SectionNode {
				n := contentNode(1, "filtered", map[string]string{})
				n.DataConfig = []model.DataSource{{Table: "scores", Filter: "owner = '{{system.user_id}}'"}}
				return n
			}(),
			want: true,
		},
		{
			name: "reference in nested child",
			node: func() *model.SectionNode {
				parent := contentNode(1, "parent", map[string]string{"title": "Outer"})
				parent.Children = []*model.SectionNode{
					contentNode(2, "child", map[string]string{"text": "Hello {{system.user_name}}"}),
				}
				return parent
			}(),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UsesUserContext([]*model.SectionNode{tt.node}); got != tt.want {
				t.Errorf("UsesUserContext = %v, want %v", got, tt.want)
			}
		})
	}
}
