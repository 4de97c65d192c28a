package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/util"
)

// Seed creates initial data: content languages, globals and a small demo
// page with a section tree. Skipped when content languages already exist.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	langs, err := queries.ListLanguages(ctx)
	if err != nil {
		return fmt.Errorf("listing languages: %w", err)
	}
	for _, l := range langs {
		if l.ID != model.PropertyLanguageID {
			slog.Info("content languages already exist, skipping seed")
			return nil
		}
	}

	en, err := queries.CreateLanguage(ctx, CreateLanguageParams{
		Locale: "en-GB", Language: "English", IsDefault: true,
	})
	if err != nil {
		return fmt.Errorf("creating default language: %w", err)
	}
	de, err := queries.CreateLanguage(ctx, CreateLanguageParams{
		Locale: "de-CH", Language: "Deutsch",
	})
	if err != nil {
		return fmt.Errorf("creating language: %w", err)
	}

	if err := queries.UpsertGlobal(ctx, en.ID, "platform_name", "SelfHelp"); err != nil {
		return fmt.Errorf("creating global: %w", err)
	}
	if err := queries.UpsertGlobal(ctx, de.ID, "platform_name", "SelfHelp"); err != nil {
		return fmt.Errorf("creating global: %w", err)
	}

	page, err := queries.CreatePage(ctx, CreatePageParams{
		Keyword:     util.SlugifyKeyword("home"),
		URL:         "/home",
		NavPosition: util.NullInt64FromValue(10),
	})
	if err != nil {
		return fmt.Errorf("creating demo page: %w", err)
	}

	containerStyle, err := queries.GetStyleIDByName(ctx, "container")
	if err != nil {
		return fmt.Errorf("resolving style: %w", err)
	}
	markdownStyle, err := queries.GetStyleIDByName(ctx, "markdown")
	if err != nil {
		return fmt.Errorf("resolving style: %w", err)
	}

	rootID, err := queries.CreateSection(ctx, CreateSectionParams{
		Name:    "home-container",
		StyleID: containerStyle,
	})
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}
	if err := queries.AttachSectionToPage(ctx, page.ID, rootID, 10); err != nil {
		return fmt.Errorf("attaching section: %w", err)
	}

	welcomeID, err := queries.CreateSection(ctx, CreateSectionParams{
		Name:    "home-welcome",
		StyleID: markdownStyle,
	})
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}
	if err := queries.AttachSectionToParent(ctx, rootID, welcomeID, 10); err != nil {
		return fmt.Errorf("attaching section: %w", err)
	}

	translations := []UpsertFieldTranslationParams{
		{SectionID: welcomeID, LanguageID: en.ID, FieldName: "title", Content: "Welcome, {{system.user_name}}"},
		{SectionID: welcomeID, LanguageID: de.ID, FieldName: "title", Content: "Willkommen, {{system.user_name}}"},
		{SectionID: welcomeID, LanguageID: en.ID, FieldName: "text_md", Content: "## {{globals.platform_name}}\n\nToday is {{system.date}}."},
		{SectionID: welcomeID, LanguageID: de.ID, FieldName: "text_md", Content: "## {{globals.platform_name}}\n\nHeute ist {{system.date}}."},
		{SectionID: welcomeID, LanguageID: model.PropertyLanguageID, FieldName: "icon", Content: "house"},
	}
	for _, tr := range translations {
		if err := queries.UpsertFieldTranslation(ctx, tr); err != nil {
			return fmt.Errorf("seeding translation: %w", err)
		}
	}

	slog.Info("seeded demo content",
		"page_id", page.ID,
		"languages", []string{en.Locale, de.Locale},
	)
	return nil
}
