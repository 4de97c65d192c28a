// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/testutil"
)

func TestGenerateStructureHash(t *testing.T) {
	a, err := GenerateStructureHash([]byte(`{"b":2,"a":1}`))
	if err != nil {
		t.Fatalf("GenerateStructureHash: %v", err)
	}
	b, err := GenerateStructureHash([]byte(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("GenerateStructureHash: %v", err)
	}
	if a != b {
		t.Error("key order must not change the hash")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16 hex digits", len(a))
	}

	c, err := GenerateStructureHash([]byte(`{"a":1,"b":3}`))
	if err != nil {
		t.Fatalf("GenerateStructureHash: %v", err)
	}
	if a == c {
		t.Error("a leaf change must change the hash")
	}

	if _, err := GenerateStructureHash([]byte("{broken")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// encodeShuffled writes v as JSON with object keys emitted in an order
// drawn from r, at every depth. Array order is preserved.
func encodeShuffled(v any, r *rand.Rand) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

		var sb strings.Builder
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteString(":")
			sb.WriteString(encodeShuffled(val[k], r))
		}
		sb.WriteString("}")
		return sb.String()
	case []any:
		var sb strings.Builder
		sb.WriteString("[")
		for i, item := range val {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(encodeShuffled(item, r))
		}
		sb.WriteString("]")
		return sb.String()
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

func TestGenerateStructureHash_KeyOrderAtAnyDepth(t *testing.T) {
	doc := map[string]any{
		"page": map[string]any{
			"keyword": "home",
			"url":     "/home",
			"sections": []any{
				map[string]any{
					"name":  "container",
					"style": "container",
					"children": []any{
						map[string]any{
							"name": "welcome",
							"translations": map[string]any{
								"2": map[string]any{"title": "Welcome", "text_md": "## Hello"},
								"3": map[string]any{"title": "Willkommen"},
							},
						},
					},
				},
				map[string]any{"name": "footer", "style": "markdown"},
			},
		},
	}

	want, err := GenerateStructureHash([]byte(encodeShuffled(doc, rand.New(rand.NewSource(1)))))
	if err != nil {
		t.Fatalf("GenerateStructureHash: %v", err)
	}
	for seed := int64(2); seed <= 16; seed++ {
		encoded := encodeShuffled(doc, rand.New(rand.NewSource(seed)))
		got, err := GenerateStructureHash([]byte(encoded))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if got != want {
			t.Fatalf("seed %d: hash changed on key reordering: %s != %s\n%s", seed, got, want, encoded)
		}
	}

	// Array element order is structural, not cosmetic.
	sections := doc["page"].(map[string]any)["sections"].([]any)
	sections[0], sections[1] = sections[1], sections[0]
	swapped, err := GenerateStructureHash([]byte(encodeShuffled(doc, rand.New(rand.NewSource(1)))))
	if err != nil {
		t.Fatalf("GenerateStructureHash: %v", err)
	}
	if swapped == want {
		t.Error("reordering array elements must change the hash")
	}
}

func TestChangeService_HasUnpublishedChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	changes := NewChangeService(f.db, testutil.TestLogger())
	versions := newVersionService(f)

	// No published version yet.
	if !changes.HasUnpublishedChanges(ctx, f.page.ID) {
		t.Error("page without a published version must report changes")
	}

	if _, err := versions.CreateAndPublish(ctx, f.page.ID, "", 0); err != nil {
		t.Fatalf("CreateAndPublish: %v", err)
	}
	if changes.HasUnpublishedChanges(ctx, f.page.ID) {
		t.Error("freshly published page must report no changes")
	}

	f.editDraft(t, "Welcome back")
	if !changes.HasUnpublishedChanges(ctx, f.page.ID) {
		t.Error("edited draft must report changes")
	}

	// Fails toward "assume changed" for unknown pages.
	if !changes.HasUnpublishedChanges(ctx, 9999) {
		t.Error("unknown page must report changes")
	}
}

func TestDiffService_CompareDraftWithVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	versions := newVersionService(f)
	diffs := NewDiffService(f.db)

	v, err := versions.CreateVersion(ctx, f.page.ID, "", 0, nil)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	f.editDraft(t, "Welcome back")

	result, err := diffs.CompareDraftWithVersion(ctx, f.page.ID, v.ID, FormatSummary)
	if err != nil {
		t.Fatalf("CompareDraftWithVersion: %v", err)
	}
	if !result.To.Draft || result.From.VersionID != v.ID {
		t.Errorf("version must be the from side: %+v", result)
	}

	summary := result.Diff.([]Change)
	if len(summary) != 1 {
		t.Fatalf("expected exactly one change, got %v", summary)
	}
	if summary[0].Type != ChangeValue ||
		summary[0].OldValue != "Welcome" || summary[0].NewValue != "Welcome back" {
		t.Errorf("change = %+v", summary[0])
	}
}

func TestDiffService_CompareVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	versions := newVersionService(f)
	diffs := NewDiffService(f.db)

	v1, err := versions.CreateVersion(ctx, f.page.ID, "", 0, nil)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	f.editDraft(t, "Welcome back")
	v2, err := versions.CreateVersion(ctx, f.page.ID, "", 0, nil)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	result, err := diffs.CompareVersions(ctx, v1.ID, v2.ID, FormatJSONPatch)
	if err != nil {
		t.Fatalf("CompareVersions: %v", err)
	}
	ops := result.Diff.([]PatchOp)
	if len(ops) != 1 || ops[0].Op != "replace" || ops[0].Value != "Welcome back" {
		t.Errorf("ops = %+v", ops)
	}

	// Identical snapshots diff empty.
	same, err := diffs.CompareVersions(ctx, v1.ID, v1.ID, FormatUnified)
	if err != nil {
		t.Fatalf("CompareVersions: %v", err)
	}
	if same.Diff.(string) != "" {
		t.Errorf("self-comparison must be empty, got %q", same.Diff)
	}

	if _, err := diffs.CompareVersions(ctx, v1.ID, 9999, FormatUnified); err != ErrVersionNotFound {
		t.Errorf("err = %v, want ErrVersionNotFound", err)
	}
}

func TestDiffService_CompareVersions_PageMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	versions := newVersionService(f)
	diffs := NewDiffService(f.db)

	other, err := f.queries.CreatePage(ctx, createOtherPageParams())
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	v1, err := versions.CreateVersion(ctx, f.page.ID, "", 0, nil)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	v2, err := versions.CreateVersion(ctx, other.ID, "", 0, nil)
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	if _, err := diffs.CompareVersions(ctx, v1.ID, v2.ID, FormatUnified); err != ErrVersionPageMismatch {
		t.Errorf("err = %v, want ErrVersionPageMismatch", err)
	}
}
