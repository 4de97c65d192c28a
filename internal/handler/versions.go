// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/model"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/service"
)

// VersionHandler serves the version lifecycle API.
type VersionHandler struct {
	versions *service.VersionService
	changes  *service.ChangeService
	diffs    *service.DiffService
	logger   *slog.Logger
}

// NewVersionHandler creates a VersionHandler.
func NewVersionHandler(versions *service.VersionService, changes *service.ChangeService,
	diffs *service.DiffService, logger *slog.Logger) *VersionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionHandler{
		versions: versions,
		changes:  changes,
		diffs:    diffs,
		logger:   logger,
	}
}

// VersionResponse represents a page version in API responses. The
// snapshot payload is never included; previews render it instead.
type VersionResponse struct {
	ID            int64           `json:"id"`
	UUID          string          `json:"uuid"`
	PageID        int64           `json:"page_id"`
	VersionNumber int64           `json:"version_number"`
	VersionName   string          `json:"version_name,omitempty"`
	CreatedBy     *int64          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

func versionToResponse(v model.PageVersion) VersionResponse {
	resp := VersionResponse{
		ID:            v.ID,
		UUID:          v.UUID,
		PageID:        v.PageID,
		VersionNumber: v.VersionNumber,
		VersionName:   v.VersionName.String,
		CreatedAt:     v.CreatedAt,
	}
	if v.CreatedBy.Valid {
		resp.CreatedBy = &v.CreatedBy.Int64
	}
	if v.PublishedAt.Valid {
		resp.PublishedAt = &v.PublishedAt.Time
	}
	if v.Metadata.Valid {
		resp.Metadata = json.RawMessage(v.Metadata.String)
	}
	return resp
}

func pageIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// ListVersions handles GET /api/admin/pages/{id}/versions.
func (h *VersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	versions, err := h.versions.GetPageVersions(r.Context(), pageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = versionToResponse(v)
	}
	writeJSONSuccess(w, map[string]any{"versions": out})
}

// CreateVersionRequest is the request body for creating a version.
type CreateVersionRequest struct {
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Publish  bool           `json:"publish,omitempty"`
}

// CreateVersion handles POST /api/admin/pages/{id}/versions.
func (h *VersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	var req CreateVersionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var createdBy int64
	if id, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64); err == nil {
		createdBy = id
	}

	version, err := h.versions.CreateVersion(r.Context(), pageID, req.Name, createdBy, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Publish {
		version, err = h.versions.PublishVersion(r.Context(), pageID, version.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	writeJSONSuccessStatus(w, http.StatusCreated, map[string]any{"version": versionToResponse(version)})
}

// PublishVersion handles POST /api/admin/pages/{id}/versions/{vid}/publish.
func (h *VersionHandler) PublishVersion(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	versionID, err := strconv.ParseInt(chi.URLParam(r, "vid"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	version, err := h.versions.PublishVersion(r.Context(), pageID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"version": versionToResponse(version)})
}

// UnpublishPage handles POST /api/admin/pages/{id}/unpublish.
func (h *VersionHandler) UnpublishPage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	if err := h.versions.UnpublishPage(r.Context(), pageID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// DeleteVersion handles DELETE /api/admin/pages/{id}/versions/{vid}.
func (h *VersionHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	versionID, err := strconv.ParseInt(chi.URLParam(r, "vid"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	if err := h.versions.DeleteVersion(r.Context(), versionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// Changes handles GET /api/admin/pages/{id}/changes.
func (h *VersionHandler) Changes(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	writeJSONSuccess(w, map[string]any{
		"has_unpublished_changes": h.changes.HasUnpublishedChanges(r.Context(), pageID),
	})
}

// CompareVersions handles
// GET /api/admin/pages/{id}/versions/{vid}/compare/{v2}?format=.
func (h *VersionHandler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	v1, err1 := strconv.ParseInt(chi.URLParam(r, "vid"), 10, 64)
	v2, err2 := strconv.ParseInt(chi.URLParam(r, "v2"), 10, 64)
	if err1 != nil || err2 != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	format, err := service.ParseDiffFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.diffs.CompareVersions(r.Context(), v1, v2, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"comparison": result})
}

// CompareDraft handles
// GET /api/admin/pages/{id}/versions/{vid}/compare-draft?format=.
func (h *VersionHandler) CompareDraft(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	versionID, err := strconv.ParseInt(chi.URLParam(r, "vid"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	format, err := service.ParseDiffFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.diffs.CompareDraftWithVersion(r.Context(), pageID, versionID, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"comparison": result})
}
