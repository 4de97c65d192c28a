// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/composer"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
)

// retrieveTimeout bounds one data-source retrieval. A slow table must not
// stall the whole composition pass.
const retrieveTimeout = 5 * time.Second

// DataService serves data-source retrievals against the generic data
// tables. It implements composer.Retriever.
type DataService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewDataService creates a DataService.
func NewDataService(db *sql.DB, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{queries: store.New(db), logger: logger}
}

// Retrieve loads the rows of one data table, applies the declaration's
// filter and projects the requested fields. Each row carries the
// bookkeeping keys record_id, timestamp and user_id alongside its cell
// values.
func (s *DataService) Retrieve(ctx context.Context, req composer.RetrieveRequest) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, retrieveTimeout)
	defer cancel()

	tableID, err := s.queries.GetDataTableID(ctx, req.Table)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("data table %q not found", req.Table)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving data table %q: %w", req.Table, err)
	}

	predicate, err := ParseFilter(req.Filter)
	if err != nil {
		return nil, fmt.Errorf("parsing filter for table %q: %w", req.Table, err)
	}

	rows, err := s.queries.ListDataRows(ctx, tableID, req.ExcludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("loading rows of table %q: %w", req.Table, err)
	}

	loc := time.UTC
	if req.Timezone != "" {
		if l, err := time.LoadLocation(req.Timezone); err == nil {
			loc = l
		}
	}

	var out []map[string]any
	for _, row := range rows {
		if req.CurrentUser && (!row.UserID.Valid || row.UserID.Int64 != req.UserID) {
			continue
		}

		record := make(map[string]any, len(row.Values)+3)
		record["record_id"] = row.ID
		record["timestamp"] = row.CreatedAt.In(loc).Format("2006-01-02 15:04:05")
		if row.UserID.Valid {
			record["user_id"] = row.UserID.Int64
		} else {
			record["user_id"] = nil
		}
		for k, v := range row.Values {
			record[k] = v
		}

		if predicate != nil && !predicate(record) {
			continue
		}
		out = append(out, projectFields(record, req.Fields))
	}
	return out, nil
}

// projectFields narrows a record to the requested field list. An empty
// list keeps every key. Requested fields missing from the record are
// simply absent from the projection.
func projectFields(record map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return record
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := record[f]; ok {
			out[f] = v
		}
	}
	return out
}
