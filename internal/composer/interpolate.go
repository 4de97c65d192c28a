// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

// placeholderPattern matches {{namespace.key}} with a dot path into the
// nested scope map.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_][A-Za-z0-9_.\-]*)\}\}`)

// InterpolateString substitutes every {{namespace.key}} placeholder in s
// with the string form of the scope value it resolves to. Unresolved
// placeholders are left verbatim: partially-available scopes degrade
// gracefully instead of erroring or stripping content.
func InterpolateString(s string, scope Scope) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := match[2 : len(match)-2]
		v, ok := scope.Lookup(path)
		if !ok {
			return match
		}
		return FormatValue(v)
	})
}

// FormatValue renders a scope value for substitution: booleans as
// true/false, nil as the empty string, objects and arrays as their
// canonical JSON text, everything else via its natural string form.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// InterpolateDataSource interpolates the string-valued fields of a
// declaration (table name, filter expression, field lists) against the
// scope available before the section's own data is known.
func InterpolateDataSource(ds model.DataSource, scope Scope) model.DataSource {
	out := ds
	out.Table = InterpolateString(ds.Table, scope)
	out.Filter = InterpolateString(ds.Filter, scope)
	if len(ds.Fields) > 0 {
		out.Fields = make([]string, len(ds.Fields))
		for i, f := range ds.Fields {
			out.Fields[i] = InterpolateString(f, scope)
		}
	}
	if len(ds.MapFields) > 0 {
		out.MapFields = make(map[string]string, len(ds.MapFields))
		for k, v := range ds.MapFields {
			out.MapFields[k] = InterpolateString(v, scope)
		}
	}
	return out
}

// InterpolateValue applies interpolation recursively through nested
// content objects and lists, leaving non-string leaves untouched.
func InterpolateValue(v any, scope Scope) any {
	switch t := v.(type) {
	case string:
		return InterpolateString(t, scope)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = InterpolateValue(e, scope)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = InterpolateValue(e, scope)
		}
		return out
	default:
		return v
	}
}

// interpolateFields applies interpolation to every resolved field of a
// section. Only content-bearing fields reach this point; structural
// metadata never does.
func interpolateFields(fields map[string]RenderedField, scope Scope) map[string]RenderedField {
	for name, f := range fields {
		f.Content = InterpolateString(f.Content, scope)
		fields[name] = f
	}
	return fields
}
