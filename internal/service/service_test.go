// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/testutil"
)

// fixture is a migrated test database seeded with two content languages and
// one page holding a small section tree.
type fixture struct {
	db      *sql.DB
	queries *store.Queries
	page    model.Page
	en      model.Language
	de      model.Language
	rootID  int64
	childID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := testutil.TestDB(t)
	queries := store.New(db)

	en, err := queries.CreateLanguage(ctx, store.CreateLanguageParams{
		Locale: "en-GB", Language: "English", IsDefault: true,
	})
	if err != nil {
		t.Fatalf("CreateLanguage: %v", err)
	}
	de, err := queries.CreateLanguage(ctx, store.CreateLanguageParams{
		Locale: "de-CH", Language: "Deutsch",
	})
	if err != nil {
		t.Fatalf("CreateLanguage: %v", err)
	}

	page, err := queries.CreatePage(ctx, store.CreatePageParams{
		Keyword: "home", URL: "/home",
	})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	containerStyle, err := queries.GetStyleIDByName(ctx, "container")
	if err != nil {
		t.Fatalf("GetStyleIDByName: %v", err)
	}
	markdownStyle, err := queries.GetStyleIDByName(ctx, "markdown")
	if err != nil {
		t.Fatalf("GetStyleIDByName: %v", err)
	}

	rootID, err := queries.CreateSection(ctx, store.CreateSectionParams{
		Name: "home-container", StyleID: containerStyle,
	})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	if err := queries.AttachSectionToPage(ctx, page.ID, rootID, 10); err != nil {
		t.Fatalf("AttachSectionToPage: %v", err)
	}

	childID, err := queries.CreateSection(ctx, store.CreateSectionParams{
		Name: "home-welcome", StyleID: markdownStyle,
	})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	if err := queries.AttachSectionToParent(ctx, rootID, childID, 10); err != nil {
		t.Fatalf("AttachSectionToParent: %v", err)
	}

	translations := []store.UpsertFieldTranslationParams{
		{SectionID: childID, LanguageID: en.ID, FieldName: "title", Content: "Welcome"},
		{SectionID: childID, LanguageID: de.ID, FieldName: "title", Content: "Willkommen"},
		{SectionID: childID, LanguageID: en.ID, FieldName: "text_md", Content: "## Hello"},
		{SectionID: childID, LanguageID: model.PropertyLanguageID, FieldName: "icon", Content: "house"},
	}
	for _, tr := range translations {
		if err := queries.UpsertFieldTranslation(ctx, tr); err != nil {
			t.Fatalf("UpsertFieldTranslation: %v", err)
		}
	}

	return &fixture{
		db:      db,
		queries: queries,
		page:    page,
		en:      en,
		de:      de,
		rootID:  rootID,
		childID: childID,
	}
}

func createOtherPageParams() store.CreatePageParams {
	return store.CreatePageParams{Keyword: "other", URL: "/other"}
}

// editDraft changes the child section's title so the draft diverges from any
// snapshot taken before the call.
func (f *fixture) editDraft(t *testing.T, content string) {
	t.Helper()
	err := f.queries.UpsertFieldTranslation(context.Background(), store.UpsertFieldTranslationParams{
		SectionID: f.childID, LanguageID: f.en.ID, FieldName: "title", Content: content,
	})
	if err != nil {
		t.Fatalf("UpsertFieldTranslation: %v", err)
	}
}
