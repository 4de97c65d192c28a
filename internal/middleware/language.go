// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for language detection and
// request rate limiting.
package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// ContextKey is the type for middleware context keys.
type ContextKey string

// ContextKeyLanguage holds the resolved model.Language for the request.
const ContextKeyLanguage ContextKey = "language"

// Language resolves the request's content language. Priority order:
//
//  1. Query parameter ?lang=locale (explicit switch)
//  2. Accept-Language header, matched against configured locales
//  3. The default language
//
// The property language (id 1) is never selectable from the outside; it
// exists only for language-independent field storage.
func Language(db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			defaultLang, err := queries.GetDefaultLanguage(ctx)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			langs, err := queries.ListLanguages(ctx)
			if err != nil {
				next.ServeHTTP(w, r.WithContext(setLanguage(ctx, defaultLang)))
				return
			}

			selectable := make([]model.Language, 0, len(langs))
			for _, l := range langs {
				if l.ID != model.PropertyLanguageID {
					selectable = append(selectable, l)
				}
			}

			if queryLang := r.URL.Query().Get("lang"); queryLang != "" {
				for _, l := range selectable {
					if strings.EqualFold(l.Locale, queryLang) {
						next.ServeHTTP(w, r.WithContext(setLanguage(ctx, l)))
						return
					}
				}
			}

			if accept := r.Header.Get("Accept-Language"); accept != "" {
				if lang, ok := matchAcceptLanguage(accept, selectable); ok {
					next.ServeHTTP(w, r.WithContext(setLanguage(ctx, lang)))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(setLanguage(ctx, defaultLang)))
		})
	}
}

// matchAcceptLanguage matches an Accept-Language header against the
// configured locales using x/text's matcher, which handles quality values
// and region fallbacks (de-CH matches de).
func matchAcceptLanguage(accept string, langs []model.Language) (model.Language, bool) {
	tags := make([]language.Tag, 0, len(langs))
	indexed := make([]model.Language, 0, len(langs))
	for _, l := range langs {
		tag, err := language.Parse(normalizeLocale(l.Locale))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		indexed = append(indexed, l)
	}
	if len(tags) == 0 {
		return model.Language{}, false
	}

	preferred, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(preferred) == 0 {
		return model.Language{}, false
	}

	_, index, confidence := language.NewMatcher(tags).Match(preferred...)
	if confidence == language.No {
		return model.Language{}, false
	}
	return indexed[index], true
}

// normalizeLocale converts underscore locales (de_CH) to BCP 47 (de-CH).
func normalizeLocale(locale string) string {
	return strings.ReplaceAll(locale, "_", "-")
}

func setLanguage(ctx context.Context, lang model.Language) context.Context {
	return context.WithValue(ctx, ContextKeyLanguage, lang)
}

// GetLanguage retrieves the resolved language from the request context.
func GetLanguage(r *http.Request) (model.Language, bool) {
	lang, ok := r.Context().Value(ContextKeyLanguage).(model.Language)
	return lang, ok
}
