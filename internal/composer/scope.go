// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package composer implements the recursive page composition pipeline:
// section tree assembly, scoped variable interpolation, per-section data
// retrieval, conditional inclusion and scope inheritance down the tree.
package composer

import (
	"strconv"
	"strings"
)

// Reserved scope namespaces.
const (
	NamespaceSystem  = "system"
	NamespaceGlobals = "globals"
)

// Scope is a mapping of namespace -> value available to interpolation and
// condition evaluation. A namespace value is either a key/value map or a
// list of row maps produced by a data-source declaration.
type Scope map[string]any

// NewScope returns an empty scope.
func NewScope() Scope {
	return make(Scope)
}

// Merge returns a new scope combining s with local namespaces. A namespace
// the child produced itself wins over an inherited one of the same name;
// all other ancestor namespaces stay visible. Neither input is mutated.
func (s Scope) Merge(local Scope) Scope {
	merged := make(Scope, len(s)+len(local))
	for name, v := range s {
		merged[name] = v
	}
	for name, v := range local {
		merged[name] = v
	}
	return merged
}

// Lookup resolves a dot path into the scope. The first segment names the
// namespace; the rest walk nested maps. A list of row maps resolves field
// segments against its first row, or a specific row when the segment is a
// numeric index.
func (s Scope) Lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")

	current, ok := s[segments[0]]
	if !ok {
		return nil, false
	}

	for _, segment := range segments[1:] {
		switch node := current.(type) {
		case map[string]any:
			current, ok = node[segment]
			if !ok {
				return nil, false
			}
		case Scope:
			current, ok = node[segment]
			if !ok {
				return nil, false
			}
		case []map[string]any:
			current, ok = rowListValue(node, segment)
			if !ok {
				return nil, false
			}
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// rowListValue resolves one path segment against a list of retrieved rows:
// a numeric segment addresses a row, any other segment reads the field from
// the first row.
func rowListValue(rows []map[string]any, segment string) (any, bool) {
	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 || idx >= len(rows) {
			return nil, false
		}
		return rows[idx], true
	}
	if len(rows) == 0 {
		return nil, false
	}
	v, ok := rows[0][segment]
	return v, ok
}
