// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// PropertyLanguageID is the reserved canonical language used for section
// property fields (structural names/labels that are never end-user
// translated). Property fields never fall back.
const PropertyLanguageID int64 = 1

// Language represents a content language in the CMS.
type Language struct {
	ID        int64     `json:"id"`
	Locale    string    `json:"locale"`   // en-GB, de-CH, ...
	Language  string    `json:"language"` // English, Deutsch, ...
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// IsProperty returns true for the reserved property language.
func (l *Language) IsProperty() bool {
	return l.ID == PropertyLanguageID
}

// Global is an admin-managed key/value pair, scoped per language, exposed
// to interpolation under the reserved "globals" namespace.
type Global struct {
	ID         int64     `json:"id"`
	LanguageID int64     `json:"language_id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
