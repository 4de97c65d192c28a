// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"strings"
)

// FieldTranslationRow is one translated field value of one section in one
// language.
type FieldTranslationRow struct {
	SectionID  int64
	LanguageID int64
	FieldName  string
	Content    string
	Meta       string
}

// ListFieldTranslations fetches every translated field for the given
// section ids, across all languages. The translation resolver picks the
// working language (or keeps all of them, for version snapshots).
func (q *Queries) ListFieldTranslations(ctx context.Context, sectionIDs []int64) ([]FieldTranslationRow, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(sectionIDs))
	args := make([]any, len(sectionIDs))
	for i, id := range sectionIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT section_id, language_id, field_name, content, meta
		 FROM sections_fields_translation
		 WHERE section_id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FieldTranslationRow
	for rows.Next() {
		var r FieldTranslationRow
		if err := rows.Scan(&r.SectionID, &r.LanguageID, &r.FieldName, &r.Content, &r.Meta); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertFieldTranslationParams holds one field translation write.
type UpsertFieldTranslationParams struct {
	SectionID  int64
	LanguageID int64
	FieldName  string
	Content    string
	Meta       string
}

// UpsertFieldTranslation writes a field's content for one language.
func (q *Queries) UpsertFieldTranslation(ctx context.Context, arg UpsertFieldTranslationParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sections_fields_translation (section_id, language_id, field_name, content, meta)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (section_id, language_id, field_name)
		 DO UPDATE SET content = excluded.content, meta = excluded.meta`,
		arg.SectionID, arg.LanguageID, arg.FieldName, arg.Content, arg.Meta)
	return err
}

// DeleteFieldTranslation removes a field's content for one language,
// returning the field to the "not set" state (distinct from empty).
func (q *Queries) DeleteFieldTranslation(ctx context.Context, sectionID, languageID int64, fieldName string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM sections_fields_translation
		 WHERE section_id = ? AND language_id = ? AND field_name = ?`,
		sectionID, languageID, fieldName)
	return err
}
