// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the business logic layer: page composition,
// version lifecycle, change detection and diffing.
package service

import "errors"

// Service-level errors. Handlers map these to client-visible status codes:
// not-found errors to 404, invalid-state errors to 409.
var (
	ErrPageNotFound        = errors.New("page not found")
	ErrVersionNotFound     = errors.New("version not found")
	ErrLanguageNotFound    = errors.New("language not found")
	ErrVersionPageMismatch = errors.New("version does not belong to this page")
	ErrVersionPublished    = errors.New("version is currently published and cannot be deleted")
	ErrUnknownDiffFormat   = errors.New("unknown diff format")
)
