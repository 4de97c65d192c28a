// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
)

func scanLanguage(row *sql.Row) (model.Language, error) {
	var l model.Language
	err := row.Scan(&l.ID, &l.Locale, &l.Language, &l.IsDefault, &l.CreatedAt)
	return l, err
}

// GetLanguageByID fetches a language by id.
func (q *Queries) GetLanguageByID(ctx context.Context, id int64) (model.Language, error) {
	return scanLanguage(q.db.QueryRowContext(ctx,
		`SELECT id, locale, language, is_default, created_at FROM languages WHERE id = ?`, id))
}

// GetLanguageByLocale fetches a language by locale code.
func (q *Queries) GetLanguageByLocale(ctx context.Context, locale string) (model.Language, error) {
	return scanLanguage(q.db.QueryRowContext(ctx,
		`SELECT id, locale, language, is_default, created_at FROM languages WHERE locale = ?`, locale))
}

// GetDefaultLanguage fetches the project-wide default content language.
func (q *Queries) GetDefaultLanguage(ctx context.Context) (model.Language, error) {
	return scanLanguage(q.db.QueryRowContext(ctx,
		`SELECT id, locale, language, is_default, created_at FROM languages
		 WHERE is_default = 1 LIMIT 1`))
}

// ListLanguages returns all languages including the reserved property
// language.
func (q *Queries) ListLanguages(ctx context.Context) ([]model.Language, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, locale, language, is_default, created_at FROM languages ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.Locale, &l.Language, &l.IsDefault, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLanguageParams holds the fields for creating a language.
type CreateLanguageParams struct {
	Locale    string
	Language  string
	IsDefault bool
}

// CreateLanguage inserts a language and returns it.
func (q *Queries) CreateLanguage(ctx context.Context, arg CreateLanguageParams) (model.Language, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO languages (locale, language, is_default) VALUES (?, ?, ?)`,
		arg.Locale, arg.Language, arg.IsDefault)
	if err != nil {
		return model.Language{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Language{}, err
	}
	return q.GetLanguageByID(ctx, id)
}

// ListGlobals returns the admin-managed key/value pairs for one language.
func (q *Queries) ListGlobals(ctx context.Context, languageID int64) ([]model.Global, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, language_id, name, content, created_at FROM globals
		 WHERE language_id = ? ORDER BY name`, languageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Global
	for rows.Next() {
		var g model.Global
		if err := rows.Scan(&g.ID, &g.LanguageID, &g.Name, &g.Content, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpsertGlobal writes one global for one language.
func (q *Queries) UpsertGlobal(ctx context.Context, languageID int64, name, content string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO globals (language_id, name, content) VALUES (?, ?, ?)
		 ON CONFLICT (language_id, name) DO UPDATE SET content = excluded.content`,
		languageID, name, content)
	return err
}
