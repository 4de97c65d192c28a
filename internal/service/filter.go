// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate decides whether one data row matches a filter expression.
type Predicate func(row map[string]any) bool

// ParseFilter compiles a filter expression into a row predicate. The
// grammar supports comparisons (=, !=, >, >=, <, <=, LIKE with %
// wildcards), AND/OR combinators and parentheses. An empty expression
// yields a nil predicate, meaning every row matches.
func ParseFilter(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	tokens, err := tokenizeFilter(expr)
	if err != nil {
		return nil, err
	}
	p := &filterParser{tokens: tokens}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q in filter", p.tokens[p.pos].text)
	}
	return pred, nil
}

type filterToken struct {
	kind string // ident, string, number, op, lparen, rparen
	text string
}

func tokenizeFilter(expr string) ([]filterToken, error) {
	var tokens []filterToken
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, filterToken{kind: "lparen", text: "("})
			i++
		case c == ')':
			tokens = append(tokens, filterToken{kind: "rparen", text: ")"})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			var sb strings.Builder
			for j < len(expr) && expr[j] != quote {
				sb.WriteByte(expr[j])
				j++
			}
			if j >= len(expr) {
				return nil, fmt.Errorf("unterminated string in filter at offset %d", i)
			}
			tokens = append(tokens, filterToken{kind: "string", text: sb.String()})
			i = j + 1
		case c == '=' || c == '!' || c == '<' || c == '>':
			op := string(c)
			if i+1 < len(expr) && expr[i+1] == '=' {
				op += "="
				i++
			}
			if op == "!" {
				return nil, fmt.Errorf("invalid operator %q in filter", op)
			}
			tokens = append(tokens, filterToken{kind: "op", text: op})
			i++
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(expr) && expr[i+1] >= '0' && expr[i+1] <= '9':
			j := i + 1
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			tokens = append(tokens, filterToken{kind: "number", text: expr[i:j]})
			i = j
		case isFilterIdentByte(c):
			j := i
			for j < len(expr) && isFilterIdentByte(expr[j]) {
				j++
			}
			tokens = append(tokens, filterToken{kind: "ident", text: expr[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in filter at offset %d", c, i)
		}
	}
	return tokens, nil
}

func isFilterIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '.'
}

type filterParser struct {
	tokens []filterToken
	pos    int
}

func (p *filterParser) peek() (filterToken, bool) {
	if p.pos >= len(p.tokens) {
		return filterToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *filterParser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "ident" || !strings.EqualFold(t.text, "OR") {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(row map[string]any) bool { return l(row) || r(row) }
	}
}

func (p *filterParser) parseAnd() (Predicate, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "ident" || !strings.EqualFold(t.text, "AND") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(row map[string]any) bool { return l(row) && r(row) }
	}
}

func (p *filterParser) parseTerm() (Predicate, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("filter ended unexpectedly")
	}
	if t.kind == "lparen" {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		t, ok = p.peek()
		if !ok || t.kind != "rparen" {
			return nil, fmt.Errorf("missing closing parenthesis in filter")
		}
		p.pos++
		return inner, nil
	}
	return p.parseComparison()
}

func (p *filterParser) parseComparison() (Predicate, error) {
	field, ok := p.peek()
	if !ok || field.kind != "ident" {
		return nil, fmt.Errorf("expected field name in filter, got %q", field.text)
	}
	p.pos++

	op, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("expected operator after %q", field.text)
	}
	if op.kind == "ident" && strings.EqualFold(op.text, "LIKE") {
		p.pos++
		val, ok := p.peek()
		if !ok || val.kind != "string" && val.kind != "number" {
			return nil, fmt.Errorf("expected pattern after LIKE")
		}
		p.pos++
		name, matcher := field.text, likeMatcher(val.text)
		return func(row map[string]any) bool {
			v, present := row[name]
			return present && matcher(filterString(v))
		}, nil
	}
	if op.kind != "op" {
		return nil, fmt.Errorf("expected operator after %q, got %q", field.text, op.text)
	}
	p.pos++

	val, ok := p.peek()
	if !ok || val.kind != "string" && val.kind != "number" && val.kind != "ident" {
		return nil, fmt.Errorf("expected value after operator %q", op.text)
	}
	p.pos++

	name, operator, operand := field.text, op.text, val.text
	return func(row map[string]any) bool {
		v, present := row[name]
		if !present {
			return false
		}
		return compareFilterValue(filterString(v), operator, operand)
	}, nil
}

func compareFilterValue(actual, op, expected string) bool {
	an, aerr := strconv.ParseFloat(actual, 64)
	en, eerr := strconv.ParseFloat(expected, 64)
	numeric := aerr == nil && eerr == nil

	switch op {
	case "=", "==":
		if numeric {
			return an == en
		}
		return actual == expected
	case "!=":
		if numeric {
			return an != en
		}
		return actual != expected
	case ">":
		if numeric {
			return an > en
		}
		return actual > expected
	case ">=":
		if numeric {
			return an >= en
		}
		return actual >= expected
	case "<":
		if numeric {
			return an < en
		}
		return actual < expected
	case "<=":
		if numeric {
			return an <= en
		}
		return actual <= expected
	}
	return false
}

// likeMatcher compiles a SQL LIKE pattern, where % matches any run of
// characters, into a string matcher. Matching is case-insensitive.
func likeMatcher(pattern string) func(string) bool {
	parts := strings.Split(strings.ToLower(pattern), "%")
	return func(s string) bool {
		s = strings.ToLower(s)
		if len(parts) == 1 {
			return s == parts[0]
		}
		if !strings.HasPrefix(s, parts[0]) {
			return false
		}
		s = s[len(parts[0]):]
		for _, part := range parts[1 : len(parts)-1] {
			if part == "" {
				continue
			}
			idx := strings.Index(s, part)
			if idx < 0 {
				return false
			}
			s = s[idx+len(part):]
		}
		return strings.HasSuffix(s, parts[len(parts)-1])
	}
}

func filterString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
