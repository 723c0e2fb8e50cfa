// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dictionaries (
	position  INTEGER PRIMARY KEY,
	id        INTEGER NOT NULL,
	name      TEXT NOT NULL UNIQUE,
	available INTEGER NOT NULL
);`

const dictDirKey = "dict_dir"

// SQLiteStore stores the catalog in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %q: %w", filepath.Dir(cleanPath), err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements [Store.Load].
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, dictDirKey).Scan(&snap.DictDir)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get dict dir: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, available FROM dictionaries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		var available int64
		if err := rows.Scan(&e.ID, &e.Name, &available); err != nil {
			return nil, fmt.Errorf("scan dictionary: %w", err)
		}
		e.Available = available != 0
		snap.Dicts = append(snap.Dicts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}
	return snap, nil
}

// Save implements [Store.Save]. The snapshot is written in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		dictDirKey, snap.DictDir,
	); err != nil {
		return fmt.Errorf("put dict dir: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dictionaries`); err != nil {
		return fmt.Errorf("clear dictionaries: %w", err)
	}
	for i, e := range snap.Dicts {
		var available int64
		if e.Available {
			available = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dictionaries (position, id, name, available) VALUES (?, ?, ?, ?)`,
			i, e.ID, e.Name, available,
		); err != nil {
			return fmt.Errorf("put dictionary %q: %w", e.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements [Store.Close].
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
