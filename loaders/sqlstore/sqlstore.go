// Package sqlstore provides a kestrel.Loader[string, []byte] backed by a
// single SQLite table, via mattn/go-sqlite3.
//
// It is a reference Loader for kestrel's examples and tests: Load reads a
// row's value and updated_at, Store upserts it. Nothing about kestrel's
// coordination engine depends on this package; it exists to give the
// Loader contract a concrete, persistent implementation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrel-cache/kestrel"
)

// Store is a kestrel.Loader[string, []byte] backed by a SQLite table.
type Store struct {
	db    *sql.DB
	table string
}

// Open opens (creating if necessary) a SQLite-backed Store at dsn, using
// table as the backing table name.
func Open(dsn, table string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at_nanos INTEGER NOT NULL
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: create table: %w", err)
	}

	return &Store{db: db, table: table}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements kestrel.Loader.
func (s *Store) Load(ctx context.Context, key string) (kestrel.LoadResult[[]byte], error) {
	query := fmt.Sprintf("SELECT value, updated_at_nanos FROM %s WHERE key = ?", s.table)
	row := s.db.QueryRowContext(ctx, query, key)

	var value []byte
	var updatedAt int64
	if err := row.Scan(&value, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return kestrel.LoadResult[[]byte]{}, fmt.Errorf("sqlstore: no row for key %q", key)
		}
		return kestrel.LoadResult[[]byte]{}, err
	}

	return kestrel.LoadResult[[]byte]{Timestamp: updatedAt, Value: value}, nil
}

// Store implements kestrel.Loader.
func (s *Store) Store(ctx context.Context, key string, value []byte) (kestrel.LoadResult[[]byte], error) {
	now := time.Now().UnixNano()
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at_nanos) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_nanos = excluded.updated_at_nanos`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, value, now); err != nil {
		return kestrel.LoadResult[[]byte]{}, err
	}
	return kestrel.LoadResult[[]byte]{Timestamp: now, Value: value}, nil
}
