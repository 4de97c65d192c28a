// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose utility functions including page
// keyword normalization with Unicode support.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	keywordRegex    = regexp.MustCompile(`[^a-z0-9_-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// SlugifyKeyword converts a string to a URL-safe page keyword. It lowers
// the case, strips accents, replaces spaces with hyphens and removes the
// remaining non-alphanumeric characters.
func SlugifyKeyword(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = strings.ReplaceAll(result, " ", "-")
	result = keywordRegex.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// IsValidKeyword checks if a string is a valid page keyword: lowercase
// letters, digits, underscores and single hyphens, not at the edges.
func IsValidKeyword(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	return !strings.Contains(s, "--")
}
