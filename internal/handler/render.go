// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/middleware"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/service"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// RenderHandler serves composed pages.
type RenderHandler struct {
	queries         *store.Queries
	renders         *service.RenderService
	versions        *service.VersionService
	logger          *slog.Logger
	defaultTimezone string
}

// NewRenderHandler creates a RenderHandler.
func NewRenderHandler(db *sql.DB, renders *service.RenderService, versions *service.VersionService,
	defaultTimezone string, logger *slog.Logger) *RenderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderHandler{
		queries:         store.New(db),
		renders:         renders,
		versions:        versions,
		logger:          logger,
		defaultTimezone: defaultTimezone,
	}
}

// requestContext builds the per-request identity from headers. Identity
// comes from the authenticating reverse proxy; this service trusts it.
func (h *RenderHandler) requestContext(r *http.Request) service.RequestContext {
	rc := service.RequestContext{
		UserName: r.Header.Get("X-User-Name"),
		Timezone: h.defaultTimezone,
		Debug:    r.URL.Query().Get("debug") == "1",
	}
	if id, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64); err == nil {
		rc.UserID = id
	}
	if tz := r.Header.Get("X-Timezone"); tz != "" {
		rc.Timezone = tz
	}
	return rc
}

// RenderPage handles GET /api/pages/{keyword}. A page with a published
// version serves that version's snapshot; an unpublished page serves the
// live draft.
func (h *RenderHandler) RenderPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyword := chi.URLParam(r, "keyword")

	page, err := h.queries.GetPageByKeyword(ctx, keyword)
	if err == sql.ErrNoRows {
		writeJSONError(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		h.logger.Error("loading page failed", "category", "render", "keyword", keyword, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	lang, ok := middleware.GetLanguage(r)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "no language configured")
		return
	}
	rc := h.requestContext(r)

	var rendered *service.RenderedPage
	if page.IsPublished() {
		version, err := h.versions.GetVersion(ctx, page.PublishedVersionID.Int64)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rendered, err = h.renders.RenderVersion(ctx, &version, lang.ID, rc)
		if err != nil {
			h.logger.Error("rendering version failed", "category", "render",
				"page_id", page.ID, "version_id", version.ID, "error", err)
			writeServiceError(w, err)
			return
		}
	} else {
		rendered, err = h.renders.RenderPage(ctx, page.ID, lang.ID, rc)
		if err != nil {
			h.logger.Error("rendering draft failed", "category", "render",
				"page_id", page.ID, "error", err)
			writeServiceError(w, err)
			return
		}
	}

	writeJSONSuccess(w, map[string]any{"page": rendered})
}

// PreviewDraft handles GET /api/admin/pages/{id}/preview: the live draft,
// regardless of the published state.
func (h *RenderHandler) PreviewDraft(w http.ResponseWriter, r *http.Request) {
	pageID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	lang, ok := middleware.GetLanguage(r)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "no language configured")
		return
	}

	rendered, err := h.renders.RenderPage(r.Context(), pageID, lang.ID, h.requestContext(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"page": rendered})
}

// PreviewVersion handles GET /api/admin/pages/{id}/versions/{vid}/preview.
func (h *RenderHandler) PreviewVersion(w http.ResponseWriter, r *http.Request) {
	pageID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	versionID, err := strconv.ParseInt(chi.URLParam(r, "vid"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	lang, ok := middleware.GetLanguage(r)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "no language configured")
		return
	}

	version, err := h.versions.GetVersion(r.Context(), versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if version.PageID != pageID {
		writeServiceError(w, service.ErrVersionPageMismatch)
		return
	}

	rendered, err := h.renders.RenderVersion(r.Context(), &version, lang.ID, h.requestContext(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"page": rendered})
}
