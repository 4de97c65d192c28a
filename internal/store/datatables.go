// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// DataRow is one row of a generic data table, fully materialized: cell
// values keyed by column name plus the row's bookkeeping columns.
type DataRow struct {
	ID        int64
	UserID    sql.NullInt64
	Deleted   bool
	CreatedAt time.Time
	Values    map[string]string
}

// GetDataTableID resolves a data table name to its id.
func (q *Queries) GetDataTableID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `SELECT id FROM data_tables WHERE name = ?`, name).Scan(&id)
	return id, err
}

// ListDataRows returns the materialized rows of a data table, oldest first.
func (q *Queries) ListDataRows(ctx context.Context, tableID int64, excludeDeleted bool) ([]DataRow, error) {
	query := `
		SELECT r.id, r.user_id, r.deleted, r.created_at, c.name, dc.value
		FROM data_rows r
		LEFT JOIN data_cells dc ON dc.row_id = r.id
		LEFT JOIN data_cols c ON c.id = dc.col_id
		WHERE r.table_id = ?`
	if excludeDeleted {
		query += ` AND r.deleted = 0`
	}
	query += ` ORDER BY r.id`

	rows, err := q.db.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DataRow
	var current *DataRow
	for rows.Next() {
		var (
			id        int64
			userID    sql.NullInt64
			deleted   bool
			createdAt time.Time
			colName   sql.NullString
			value     sql.NullString
		)
		if err := rows.Scan(&id, &userID, &deleted, &createdAt, &colName, &value); err != nil {
			return nil, err
		}
		if current == nil || current.ID != id {
			out = append(out, DataRow{
				ID:        id,
				UserID:    userID,
				Deleted:   deleted,
				CreatedAt: createdAt,
				Values:    make(map[string]string),
			})
			current = &out[len(out)-1]
		}
		if colName.Valid {
			current.Values[colName.String] = value.String
		}
	}
	return out, rows.Err()
}

// CreateDataTable inserts a data table and returns its id.
func (q *Queries) CreateDataTable(ctx context.Context, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO data_tables (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertDataRow inserts one row with its cell values, creating columns on
// first use, and returns the row id.
func (q *Queries) InsertDataRow(ctx context.Context, tableID int64, userID sql.NullInt64, values map[string]string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO data_rows (table_id, user_id) VALUES (?, ?)`, tableID, userID)
	if err != nil {
		return 0, err
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for col, value := range values {
		var colID int64
		err := q.db.QueryRowContext(ctx,
			`SELECT id FROM data_cols WHERE table_id = ? AND name = ?`, tableID, col).Scan(&colID)
		if err == sql.ErrNoRows {
			colRes, insErr := q.db.ExecContext(ctx,
				`INSERT INTO data_cols (table_id, name) VALUES (?, ?)`, tableID, col)
			if insErr != nil {
				return 0, insErr
			}
			colID, err = colRes.LastInsertId()
		}
		if err != nil {
			return 0, err
		}
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO data_cells (row_id, col_id, value) VALUES (?, ?, ?)`, rowID, colID, value); err != nil {
			return 0, err
		}
	}
	return rowID, nil
}

// MarkDataRowDeleted soft-deletes one data row.
func (q *Queries) MarkDataRowDeleted(ctx context.Context, rowID int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE data_rows SET deleted = 1 WHERE id = ?`, rowID)
	return err
}
