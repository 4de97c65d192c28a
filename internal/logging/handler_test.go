package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func TestEventLogHandler_Handle_ErrorLevel(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Error("version publish failed", "category", "version", "page_id", 7)

	events, err := store.New(db).ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", e.Level, model.EventLevelError)
	}
	if e.Category != model.EventCategoryVersion {
		t.Errorf("Category = %q, want %q", e.Category, model.EventCategoryVersion)
	}
	if e.Message != "version publish failed" {
		t.Errorf("Message = %q", e.Message)
	}
}

func TestEventLogHandler_Handle_InfoNotLogged(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Info("page rendered", "category", "render")

	events, err := store.New(db).ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestEventLogHandler_Handle_VersionAuditAtInfo(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Info("page version published", "category", "version", "page_id", 7)

	events, err := store.New(db).ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Level != model.EventLevelInfo || events[0].Category != model.EventCategoryVersion {
		t.Errorf("event = %+v", events[0])
	}
}

func TestExtractCategory_Fallback(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"version retention applied", model.EventCategoryVersion},
		{"render pipeline slow", model.EventCategoryRender},
		{"page not found", model.EventCategoryPage},
		{"cache backend unreachable", model.EventCategoryCache},
		{"something else entirely", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			var r slog.Record
			r.Message = tt.message
			if got := extractCategory(r); got != tt.want {
				t.Errorf("extractCategory(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}
