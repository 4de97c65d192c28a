// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"testing"
)

func TestJSONLogicEvaluator_Evaluate(t *testing.T) {
	scope := Scope{
		"system": map[string]any{"user_name": "alice", "age": int64(30)},
		"tasks":  []map[string]any{{"done": "1"}},
	}
	e := &JSONLogicEvaluator{}

	tests := []struct {
		name       string
		expr       string
		wantPassed bool
		wantError  bool
	}{
		{"bare true", "true", true, false},
		{"bare false", "false", false, false},
		{"bare 1", "1", true, false},
		{"bare 0", "0", false, false},
		{"var truthy", `{"var":"system.user_name"}`, true, false},
		{"var missing is falsy", `{"var":"system.missing"}`, false, false},
		{"var with fallback", `{"var":["system.missing", true]}`, true, false},
		{"equality", `{"==":[{"var":"system.user_name"},"alice"]}`, true, false},
		{"loose numeric equality", `{"==":[{"var":"tasks.done"},1]}`, true, false},
		{"inequality", `{"!=":[{"var":"system.age"},30]}`, false, false},
		{"greater than", `{">":[{"var":"system.age"},18]}`, true, false},
		{"less or equal", `{"<=":[{"var":"system.age"},18]}`, false, false},
		{"and all pass", `{"and":[true,{">":[{"var":"system.age"},18]}]}`, true, false},
		{"and short circuit", `{"and":[false,true]}`, false, false},
		{"or one passes", `{"or":[false,{"==":[{"var":"system.user_name"},"alice"]}]}`, true, false},
		{"or none pass", `{"or":[false,false]}`, false, false},
		{"not", `{"!":true}`, false, false},
		{"in string", `{"in":["lic",{"var":"system.user_name"}]}`, true, false},
		{"in list", `{"in":["a",["a","b"]]}`, true, false},
		{"unknown operator includes", `{"frob":[1,2]}`, true, true},
		{"invalid JSON includes", "definitely not json", true, true},
		{"two-key operator object errors", `{"==":[1,1],"!=":[1,2]}`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(context.Background(), tt.expr, 1, "sec", scope)
			if out.Passed != tt.wantPassed {
				t.Errorf("Evaluate(%q).Passed = %v, want %v", tt.expr, out.Passed, tt.wantPassed)
			}
			if out.Trace == nil {
				t.Fatal("expected a trace for a non-empty condition")
			}
			if tt.wantError && out.Trace.Error == "" {
				t.Errorf("Evaluate(%q) expected a trace error", tt.expr)
			}
			if !tt.wantError && out.Trace.Error != "" {
				t.Errorf("Evaluate(%q) unexpected trace error: %s", tt.expr, out.Trace.Error)
			}
		})
	}
}

func TestJSONLogicEvaluator_EmptyCondition(t *testing.T) {
	e := &JSONLogicEvaluator{}
	out := e.Evaluate(context.Background(), "   ", 1, "sec", NewScope())
	if !out.Passed {
		t.Error("empty condition must pass")
	}
	if out.Trace != nil {
		t.Error("empty condition must not produce a trace")
	}
}
