// Copyright 2025 Pipeflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracestore persists spans to a local SQLite database so traces
// survive process restarts and can be inspected offline.
package tracestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Span is the stored representation of one span.
type Span struct {
	TraceID       string
	SpanID        string
	ParentID      string
	Name          string
	Kind          string
	StartTime     time.Time
	EndTime       time.Time
	StatusCode    int
	StatusMessage string
	Attributes    map[string]any
}

// Duration returns the span's execution time.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Store is a SQLite-backed span store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations. The
// special path ":memory:" creates an in-memory store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// WAL mode lets concurrent readers run alongside the writer.
	connStr := path
	if path != ":memory:" {
		connStr += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to trace database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating trace database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spans (
			trace_id TEXT NOT NULL,
			span_id TEXT NOT NULL,
			parent_id TEXT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			status_code INTEGER NOT NULL,
			status_message TEXT,
			attributes TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (trace_id, span_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_trace_id ON spans(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_start_time ON spans(start_time)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores a batch of spans in one transaction.
func (s *Store) Insert(ctx context.Context, spans []*Span) error {
	if len(spans) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO spans
		(trace_id, span_id, parent_id, name, kind, start_time, end_time,
		 status_code, status_message, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, span := range spans {
		var attrs []byte
		if len(span.Attributes) > 0 {
			attrs, err = json.Marshal(span.Attributes)
			if err != nil {
				return fmt.Errorf("encoding attributes for span %s: %w", span.SpanID, err)
			}
		}

		var endTime any
		if !span.EndTime.IsZero() {
			endTime = span.EndTime.UnixNano()
		}

		if _, err := stmt.ExecContext(ctx,
			span.TraceID, span.SpanID, nullIfEmpty(span.ParentID),
			span.Name, span.Kind,
			span.StartTime.UnixNano(), endTime,
			span.StatusCode, span.StatusMessage,
			string(attrs), now,
		); err != nil {
			return fmt.Errorf("inserting span %s: %w", span.SpanID, err)
		}
	}

	return tx.Commit()
}

// TraceSpans returns all spans of one trace ordered by start time.
func (s *Store) TraceSpans(ctx context.Context, traceID string) ([]*Span, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		trace_id, span_id, parent_id, name, kind, start_time, end_time,
		status_code, status_message, attributes
		FROM spans WHERE trace_id = ? ORDER BY start_time`, traceID)
	if err != nil {
		return nil, fmt.Errorf("querying spans: %w", err)
	}
	defer rows.Close()

	var spans []*Span
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			return nil, err
		}
		spans = append(spans, span)
	}
	return spans, rows.Err()
}

// RecentTraces returns the IDs of the most recently started traces.
func (s *Store) RecentTraces(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT trace_id, MIN(start_time) AS first
		FROM spans GROUP BY trace_id ORDER BY first DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying traces: %w", err)
	}
	defer rows.Close()

	var traceIDs []string
	for rows.Next() {
		var traceID string
		var first int64
		if err := rows.Scan(&traceID, &first); err != nil {
			return nil, err
		}
		traceIDs = append(traceIDs, traceID)
	}
	return traceIDs, rows.Err()
}

// DeleteOlderThan removes spans that started before the cutoff and returns
// how many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM spans WHERE start_time < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("deleting old spans: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanSpan(rows *sql.Rows) (*Span, error) {
	var span Span
	var parentID, statusMessage, attrs sql.NullString
	var startTime int64
	var endTime sql.NullInt64

	if err := rows.Scan(&span.TraceID, &span.SpanID, &parentID, &span.Name,
		&span.Kind, &startTime, &endTime, &span.StatusCode, &statusMessage,
		&attrs); err != nil {
		return nil, fmt.Errorf("scanning span: %w", err)
	}

	span.ParentID = parentID.String
	span.StatusMessage = statusMessage.String
	span.StartTime = time.Unix(0, startTime)
	if endTime.Valid {
		span.EndTime = time.Unix(0, endTime.Int64)
	}
	if attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &span.Attributes); err != nil {
			return nil, fmt.Errorf("decoding attributes: %w", err)
		}
	}
	return &span, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
