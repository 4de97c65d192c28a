// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Trace records how a section's condition was decided. Traces are attached
// to live rendered output only; snapshots never persist them.
type Trace struct {
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
	Error      string `json:"error,omitempty"`
}

// Outcome is the result of evaluating a section condition.
type Outcome struct {
	Passed bool
	Trace  *Trace
}

// Evaluator decides whether a section is included in the rendered tree.
// An absent or empty condition always passes and produces no trace.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, userID int64, sectionName string, scope Scope) Outcome
}

// JSONLogicEvaluator evaluates conditions written as JSON-logic style
// expressions: {"and": [...]}, {"or": [...]}, {"!": ...}, comparison
// operators over {"var": "namespace.key"} scope references. An evaluation
// error includes the section rather than hiding it, with the error recorded
// in the trace for the editor.
type JSONLogicEvaluator struct{}

// Evaluate implements Evaluator.
func (e *JSONLogicEvaluator) Evaluate(_ context.Context, expr string, _ int64, _ string, scope Scope) Outcome {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Outcome{Passed: true}
	}

	trace := &Trace{Expression: expr}

	if !gjson.Valid(expr) {
		// Bare keywords predate the JSON-logic format.
		switch strings.ToLower(expr) {
		case "true", "1":
			trace.Passed = true
			return Outcome{Passed: true, Trace: trace}
		case "false", "0":
			return Outcome{Passed: false, Trace: trace}
		}
		trace.Error = fmt.Sprintf("condition is not valid JSON: %q", expr)
		trace.Passed = true
		return Outcome{Passed: true, Trace: trace}
	}

	v, err := evalLogic(gjson.Parse(expr), scope)
	if err != nil {
		trace.Error = err.Error()
		trace.Passed = true
		return Outcome{Passed: true, Trace: trace}
	}

	trace.Passed = truthy(v)
	return Outcome{Passed: trace.Passed, Trace: trace}
}

func evalLogic(r gjson.Result, scope Scope) (any, error) {
	switch r.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.Number:
		return r.Float(), nil
	case gjson.String:
		return r.String(), nil
	case gjson.Null:
		return nil, nil
	}

	if r.IsArray() {
		var out []any
		var err error
		r.ForEach(func(_, item gjson.Result) bool {
			var v any
			v, err = evalLogic(item, scope)
			if err != nil {
				return false
			}
			out = append(out, v)
			return true
		})
		return out, err
	}

	if !r.IsObject() {
		return nil, fmt.Errorf("unsupported condition node: %s", r.Raw)
	}

	var op string
	var args gjson.Result
	count := 0
	r.ForEach(func(key, value gjson.Result) bool {
		op = key.String()
		args = value
		count++
		return true
	})
	if count != 1 {
		return nil, fmt.Errorf("condition operator object must have exactly one key, got %d", count)
	}

	return applyOperator(op, args, scope)
}

func applyOperator(op string, args gjson.Result, scope Scope) (any, error) {
	switch op {
	case "var":
		return evalVar(args, scope)

	case "and":
		result := true
		var err error
		args.ForEach(func(_, item gjson.Result) bool {
			var v any
			v, err = evalLogic(item, scope)
			if err != nil || !truthy(v) {
				result = false
				return false
			}
			return true
		})
		return result, err

	case "or":
		result := false
		var err error
		args.ForEach(func(_, item gjson.Result) bool {
			var v any
			v, err = evalLogic(item, scope)
			if err != nil {
				return false
			}
			if truthy(v) {
				result = true
				return false
			}
			return true
		})
		return result, err

	case "!", "not":
		v, err := evalLogic(args, scope)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil

	case "==", "!=", ">", ">=", "<", "<=":
		return evalComparison(op, args, scope)

	case "in":
		operands, err := binaryOperands(op, args, scope)
		if err != nil {
			return nil, err
		}
		return evalIn(operands[0], operands[1]), nil
	}

	return nil, fmt.Errorf("unsupported condition operator %q", op)
}

func evalVar(args gjson.Result, scope Scope) (any, error) {
	path := args
	var fallback *gjson.Result
	if args.IsArray() {
		items := args.Array()
		if len(items) == 0 {
			return nil, fmt.Errorf("var requires a path")
		}
		path = items[0]
		if len(items) > 1 {
			fallback = &items[1]
		}
	}
	if v, ok := scope.Lookup(path.String()); ok {
		return v, nil
	}
	if fallback != nil {
		return evalLogic(*fallback, scope)
	}
	return nil, nil
}

func binaryOperands(op string, args gjson.Result, scope Scope) ([2]any, error) {
	items := args.Array()
	if len(items) != 2 {
		return [2]any{}, fmt.Errorf("%s requires exactly two operands, got %d", op, len(items))
	}
	var out [2]any
	for i, item := range items {
		v, err := evalLogic(item, scope)
		if err != nil {
			return [2]any{}, err
		}
		out[i] = v
	}
	return out, nil
}

func evalComparison(op string, args gjson.Result, scope Scope) (any, error) {
	operands, err := binaryOperands(op, args, scope)
	if err != nil {
		return nil, err
	}
	a, b := operands[0], operands[1]

	switch op {
	case "==":
		return looseEqual(a, b), nil
	case "!=":
		return !looseEqual(a, b), nil
	}

	af, aok := asNumber(a)
	bf, bok := asNumber(b)
	if aok && bok {
		switch op {
		case ">":
			return af > bf, nil
		case ">=":
			return af >= bf, nil
		case "<":
			return af < bf, nil
		case "<=":
			return af <= bf, nil
		}
	}

	as, bs := FormatValue(a), FormatValue(b)
	switch op {
	case ">":
		return as > bs, nil
	case ">=":
		return as >= bs, nil
	case "<":
		return as < bs, nil
	case "<=":
		return as <= bs, nil
	}
	return nil, fmt.Errorf("unsupported comparison %q", op)
}

// looseEqual compares with number coercion so that "3" == 3 holds, matching
// how retrieved row values (always strings) compare against literals.
func looseEqual(a, b any) bool {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			return af == bf
		}
	}
	return FormatValue(a) == FormatValue(b)
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func evalIn(needle, haystack any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, FormatValue(needle))
	case []any:
		for _, item := range h {
			if looseEqual(needle, item) {
				return true
			}
		}
	case []map[string]any:
		for _, item := range h {
			if looseEqual(needle, item) {
				return true
			}
		}
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case []map[string]any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
