// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// DiffFormat selects the output format of a snapshot comparison.
type DiffFormat string

// Supported diff formats.
const (
	FormatUnified    DiffFormat = "unified"
	FormatSideBySide DiffFormat = "side_by_side"
	FormatJSONPatch  DiffFormat = "json_patch"
	FormatSummary    DiffFormat = "summary"
)

// ParseDiffFormat validates a format string, defaulting empty to unified.
func ParseDiffFormat(s string) (DiffFormat, error) {
	switch DiffFormat(s) {
	case "":
		return FormatUnified, nil
	case FormatUnified, FormatSideBySide, FormatJSONPatch, FormatSummary:
		return DiffFormat(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDiffFormat, s)
}

// ChangeType classifies one entry of a summary diff.
type ChangeType string

// Summary change types.
const (
	ChangeAddition ChangeType = "addition"
	ChangeRemoval  ChangeType = "removal"
	ChangeValue    ChangeType = "value_change"
)

// Change is one entry of a summary diff: a dotted path into the snapshot
// and what happened there.
type Change struct {
	Path     string     `json:"path"`
	Type     ChangeType `json:"type"`
	OldValue any        `json:"old_value,omitempty"`
	NewValue any        `json:"new_value,omitempty"`
}

// PatchOp is one RFC-6902 style operation derived from a summary change.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// SideBySideRow is one row of a side-by-side diff.
type SideBySideRow struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	Type  string `json:"type"` // equal, change, add, remove
}

// VersionRef identifies one side of a comparison: a stored version or the
// live draft.
type VersionRef struct {
	Draft         bool   `json:"draft,omitempty"`
	VersionID     int64  `json:"version_id,omitempty"`
	VersionNumber int64  `json:"version_number,omitempty"`
	VersionName   string `json:"version_name,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	PublishedAt   string `json:"published_at,omitempty"`
}

// DiffResult is the outcome of a comparison.
type DiffResult struct {
	From   VersionRef `json:"from"`
	To     VersionRef `json:"to"`
	Format DiffFormat `json:"format"`
	Diff   any        `json:"diff"`
}

// DiffService compares version snapshots and drafts.
type DiffService struct {
	queries *store.Queries
	builder *SnapshotBuilder
}

// NewDiffService creates a DiffService.
func NewDiffService(db *sql.DB) *DiffService {
	return &DiffService{queries: store.New(db), builder: NewSnapshotBuilder(db)}
}

// CompareVersions diffs two stored versions of the same page.
func (s *DiffService) CompareVersions(ctx context.Context, v1ID, v2ID int64, format DiffFormat) (*DiffResult, error) {
	v1, err := s.loadVersion(ctx, v1ID)
	if err != nil {
		return nil, err
	}
	v2, err := s.loadVersion(ctx, v2ID)
	if err != nil {
		return nil, err
	}
	if v1.PageID != v2.PageID {
		return nil, ErrVersionPageMismatch
	}

	diff, err := Compare([]byte(v1.Snapshot), []byte(v2.Snapshot), format)
	if err != nil {
		return nil, err
	}
	return &DiffResult{
		From:   versionRef(v1),
		To:     versionRef(v2),
		Format: format,
		Diff:   diff,
	}, nil
}

// CompareDraftWithVersion diffs the live draft against a stored version.
// The version is the "from" side: the diff reads as what publishing the
// draft would change.
func (s *DiffService) CompareDraftWithVersion(ctx context.Context, pageID, versionID int64, format DiffFormat) (*DiffResult, error) {
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.PageID != pageID {
		return nil, ErrVersionPageMismatch
	}

	draft, err := s.builder.BuildDraftSnapshot(ctx, pageID)
	if err != nil {
		return nil, err
	}
	draftRaw, err := draft.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding draft snapshot: %w", err)
	}

	diff, err := Compare([]byte(version.Snapshot), draftRaw, format)
	if err != nil {
		return nil, err
	}
	return &DiffResult{
		From:   versionRef(version),
		To:     VersionRef{Draft: true},
		Format: format,
		Diff:   diff,
	}, nil
}

func (s *DiffService) loadVersion(ctx context.Context, id int64) (model.PageVersion, error) {
	v, err := s.queries.GetPageVersion(ctx, id)
	if err == sql.ErrNoRows {
		return model.PageVersion{}, ErrVersionNotFound
	}
	if err != nil {
		return model.PageVersion{}, fmt.Errorf("loading version %d: %w", id, err)
	}
	return v, nil
}

func versionRef(v model.PageVersion) VersionRef {
	ref := VersionRef{
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		VersionName:   v.VersionName.String,
		CreatedAt:     v.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if v.PublishedAt.Valid {
		ref.PublishedAt = v.PublishedAt.Time.Format("2006-01-02 15:04:05")
	}
	return ref
}

// Compare diffs two JSON documents in the requested format. Both inputs
// are key-sorted before diffing so property order never shows up as a
// change.
func Compare(a, b []byte, format DiffFormat) (any, error) {
	valueA, textA, err := normalizeJSON(a)
	if err != nil {
		return nil, fmt.Errorf("normalizing left side: %w", err)
	}
	valueB, textB, err := normalizeJSON(b)
	if err != nil {
		return nil, fmt.Errorf("normalizing right side: %w", err)
	}

	switch format {
	case FormatUnified:
		return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(textA),
			B:        difflib.SplitLines(textB),
			FromFile: "a",
			ToFile:   "b",
			Context:  3,
		})
	case FormatSideBySide:
		return sideBySide(difflib.SplitLines(textA), difflib.SplitLines(textB)), nil
	case FormatSummary:
		return summarize(valueA, valueB), nil
	case FormatJSONPatch:
		return toPatch(summarize(valueA, valueB)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDiffFormat, format)
}

// normalizeJSON re-marshals a document through an untyped value, sorting
// all object keys, and pretty-prints it for the text formats.
func normalizeJSON(raw []byte) (any, string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, "", err
	}
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return v, string(text) + "\n", nil
}

func sideBySide(a, b []string) []SideBySideRow {
	var rows []SideBySideRow
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, SideBySideRow{Left: a[op.I1+k], Right: b[op.J1+k], Type: "equal"})
			}
		case 'r':
			left, right := op.I2-op.I1, op.J2-op.J1
			for k := 0; k < left || k < right; k++ {
				row := SideBySideRow{Type: "change"}
				if k < left {
					row.Left = a[op.I1+k]
				}
				if k < right {
					row.Right = b[op.J1+k]
				}
				rows = append(rows, row)
			}
		case 'd':
			for k := op.I1; k < op.I2; k++ {
				rows = append(rows, SideBySideRow{Left: a[k], Type: "remove"})
			}
		case 'i':
			for k := op.J1; k < op.J2; k++ {
				rows = append(rows, SideBySideRow{Right: b[k], Type: "add"})
			}
		}
	}
	return rows
}

// summarize walks both documents and produces a structured change list
// with dotted paths into the snapshot tree.
func summarize(a, b any) []Change {
	var changes []Change
	diffValues("", a, b, &changes)
	return changes
}

func diffValues(path string, a, b any, out *[]Change) {
	mapA, okA := a.(map[string]any)
	mapB, okB := b.(map[string]any)
	if okA && okB {
		keys := make([]string, 0, len(mapA)+len(mapB))
		seen := make(map[string]bool)
		for k := range mapA {
			keys = append(keys, k)
			seen[k] = true
		}
		for k := range mapB {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := joinPath(path, k)
			va, inA := mapA[k]
			vb, inB := mapB[k]
			switch {
			case inA && !inB:
				*out = append(*out, Change{Path: childPath, Type: ChangeRemoval, OldValue: va})
			case !inA && inB:
				*out = append(*out, Change{Path: childPath, Type: ChangeAddition, NewValue: vb})
			default:
				diffValues(childPath, va, vb, out)
			}
		}
		return
	}

	sliceA, okA := a.([]any)
	sliceB, okB := b.([]any)
	if okA && okB {
		common := len(sliceA)
		if len(sliceB) < common {
			common = len(sliceB)
		}
		for i := 0; i < common; i++ {
			diffValues(joinPath(path, strconv.Itoa(i)), sliceA[i], sliceB[i], out)
		}
		for i := common; i < len(sliceA); i++ {
			*out = append(*out, Change{Path: joinPath(path, strconv.Itoa(i)), Type: ChangeRemoval, OldValue: sliceA[i]})
		}
		for i := common; i < len(sliceB); i++ {
			*out = append(*out, Change{Path: joinPath(path, strconv.Itoa(i)), Type: ChangeAddition, NewValue: sliceB[i]})
		}
		return
	}

	if !reflect.DeepEqual(a, b) {
		*out = append(*out, Change{Path: path, Type: ChangeValue, OldValue: a, NewValue: b})
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// toPatch maps summary changes to RFC-6902 style operations, converting
// dotted paths to slash pointers.
func toPatch(changes []Change) []PatchOp {
	ops := make([]PatchOp, 0, len(changes))
	for _, c := range changes {
		pointer := "/" + strings.ReplaceAll(c.Path, ".", "/")
		switch c.Type {
		case ChangeAddition:
			ops = append(ops, PatchOp{Op: "add", Path: pointer, Value: c.NewValue})
		case ChangeRemoval:
			ops = append(ops, PatchOp{Op: "remove", Path: pointer})
		case ChangeValue:
			ops = append(ops, PatchOp{Op: "replace", Path: pointer, Value: c.NewValue})
		}
	}
	return ops
}
