// Copyright 2025 The A2A Authors
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

package wishlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/a2aproject/a2a-orchestrator/log"
)

// Dialect selects SQL syntax differences between supported databases.
type Dialect string

// Supported dialects, named after their database/sql drivers.
const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

var schemas = map[Dialect]string{
	DialectMySQL: `
		CREATE TABLE IF NOT EXISTS wishlist_entry (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			owner VARCHAR(64) NOT NULL,
			added_at BIGINT NOT NULL,
			entry_json LONGTEXT NOT NULL,
			INDEX wishlist_owner (owner)
		)`,
	DialectSQLite: `
		CREATE TABLE IF NOT EXISTS wishlist_entry (
			id TEXT NOT NULL PRIMARY KEY,
			owner TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			entry_json TEXT NOT NULL
		)`,
}

// SQL is a [Store] backed by a relational database.
type SQL struct {
	db *sql.DB
}

var _ Store = (*SQL)(nil)

// NewSQL creates a [SQL] store and makes sure the wishlist table exists.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	schema, ok := schemas[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create wishlist table: %w", err)
	}
	return &SQL{db: db}, nil
}

// Add implements [Store].
func (s *SQL) Add(ctx context.Context, owner string, entry Entry) error {
	if err := validate(owner, entry); err != nil {
		return err
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal wishlist entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO wishlist_entry (id, owner, added_at, entry_json) VALUES (?, ?, ?, ?)",
		entry.ID, owner, entry.AddedAt.UnixNano(), string(entryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save wishlist entry: %w", err)
	}
	return nil
}

// List implements [Store].
func (s *SQL) List(ctx context.Context, owner string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT entry_json FROM wishlist_entry WHERE owner = ? ORDER BY added_at, id", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error(ctx, "failed to close rows", err)
		}
	}()

	var entries []Entry
	for rows.Next() {
		var entryJSON string
		if err := rows.Scan(&entryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist entry: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal([]byte(entryJSON), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal wishlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist: %w", err)
	}
	return entries, nil
}
