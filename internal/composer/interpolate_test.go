// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"reflect"
	"testing"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

func TestInterpolateString(t *testing.T) {
	scope := Scope{
		"system": map[string]any{"user_name": "alice", "count": int64(3)},
		"tasks":  []map[string]any{{"title": "first"}},
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"simple substitution", "Hello {{system.user_name}}!", "Hello alice!"},
		{"numeric value", "count: {{system.count}}", "count: 3"},
		{"row list first row", "task: {{tasks.title}}", "task: first"},
		{"unresolved left verbatim", "Hi {{missing.key}}", "Hi {{missing.key}}"},
		{"mixed resolved and unresolved", "{{system.user_name}} {{nope}}", "alice {{nope}}"},
		{"empty string", "", ""},
		{"double braces without path", "{{}}", "{{}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterpolateString(tt.input, scope); got != tt.want {
				t.Errorf("InterpolateString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "text", "text"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"whole float", 3.0, "3"},
		{"fractional float", 3.14, "3.14"},
		{"object as JSON", map[string]any{"k": "v"}, `{"k":"v"}`},
		{"list as JSON", []any{1.0, 2.0}, "[1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.input); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInterpolateValue(t *testing.T) {
	scope := Scope{"system": map[string]any{"name": "alice"}}

	input := map[string]any{
		"title": "Hello {{system.name}}",
		"list":  []any{"{{system.name}}", 7},
		"count": 7,
	}
	want := map[string]any{
		"title": "Hello alice",
		"list":  []any{"alice", 7},
		"count": 7,
	}

	got := InterpolateValue(input, scope)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InterpolateValue = %v, want %v", got, want)
	}
}

func TestInterpolateDataSource(t *testing.T) {
	scope := Scope{"system": map[string]any{"user_name": "alice"}}

	ds := model.DataSource{
		Table:     "survey_{{system.user_name}}",
		Filter:    "author = '{{system.user_name}}'",
		Fields:    []string{"{{system.user_name}}_score"},
		MapFields: map[string]string{"raw": "{{system.user_name}}"},
	}

	out := InterpolateDataSource(ds, scope)
	if out.Table != "survey_alice" {
		t.Errorf("Table = %q", out.Table)
	}
	if out.Filter != "author = 'alice'" {
		t.Errorf("Filter = %q", out.Filter)
	}
	if out.Fields[0] != "alice_score" {
		t.Errorf("Fields[0] = %q", out.Fields[0])
	}
	if out.MapFields["raw"] != "alice" {
		t.Errorf("MapFields[raw] = %q", out.MapFields["raw"])
	}

	// The declaration itself must stay untouched.
	if ds.Table != "survey_{{system.user_name}}" || ds.Fields[0] != "{{system.user_name}}_score" {
		t.Error("interpolation mutated the input declaration")
	}
}
