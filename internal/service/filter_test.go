// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "testing"

func TestParseFilter_Empty(t *testing.T) {
	pred, err := ParseFilter("   ")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if pred != nil {
		t.Error("empty filter must yield a nil predicate")
	}
}

func TestParseFilter_Matching(t *testing.T) {
	row := map[string]any{
		"status":   "active",
		"score":    "42",
		"name":     "Alice Smith",
		"category": "health",
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"string equality", "status = 'active'", true},
		{"string equality miss", "status = 'archived'", false},
		{"double equals", `status == "active"`, true},
		{"not equal", "status != 'archived'", true},
		{"numeric comparison", "score > 40", true},
		{"numeric comparison miss", "score >= 43", false},
		{"numeric equality over strings", "score = 42.0", true},
		{"and both", "status = 'active' AND score > 40", true},
		{"and one fails", "status = 'active' AND score > 100", false},
		{"or rescue", "status = 'archived' OR score > 40", true},
		{"lowercase keywords", "status = 'archived' or score > 40", true},
		{"parens", "(status = 'archived' OR status = 'active') AND score < 50", true},
		{"like prefix", "name LIKE 'Alice%'", true},
		{"like contains", "name LIKE '%ice Sm%'", true},
		{"like case-insensitive", "name LIKE 'alice%'", true},
		{"like miss", "name LIKE 'Bob%'", false},
		{"missing field never matches", "missing = 'x'", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := ParseFilter(tt.expr)
			if err != nil {
				t.Fatalf("ParseFilter(%q): %v", tt.expr, err)
			}
			if got := pred(row); got != tt.want {
				t.Errorf("filter %q = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	exprs := []string{
		"status =",
		"= 'active'",
		"status ~ 'x'",
		"(status = 'x'",
		"status = 'unterminated",
		"status = 'a' extra",
		"name LIKE",
	}
	for _, expr := range exprs {
		if _, err := ParseFilter(expr); err == nil {
			t.Errorf("ParseFilter(%q) expected error", expr)
		}
	}
}
