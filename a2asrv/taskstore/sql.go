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

package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// Dialect selects SQL syntax differences between supported databases.
type Dialect string

const (
	// DialectMySQL is used with the "mysql" driver from github.com/go-sql-driver/mysql.
	DialectMySQL Dialect = "mysql"
	// DialectSQLite is used with the "sqlite" driver from modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"
)

var schemas = map[Dialect]string{
	DialectMySQL: `
		CREATE TABLE IF NOT EXISTS task (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			context_id VARCHAR(64) NOT NULL,
			state VARCHAR(32) NOT NULL,
			last_updated BIGINT NOT NULL,
			task_json LONGTEXT NOT NULL
		)`,
	DialectSQLite: `
		CREATE TABLE IF NOT EXISTS task (
			id TEXT NOT NULL PRIMARY KEY,
			context_id TEXT NOT NULL,
			state TEXT NOT NULL,
			last_updated INTEGER NOT NULL,
			task_json TEXT NOT NULL
		)`,
}

var upserts = map[Dialect]string{
	DialectMySQL: `
		INSERT INTO task (id, context_id, state, last_updated, task_json)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			context_id = VALUES(context_id),
			state = VALUES(state),
			last_updated = VALUES(last_updated),
			task_json = VALUES(task_json)`,
	DialectSQLite: `
		INSERT INTO task (id, context_id, state, last_updated, task_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			context_id = excluded.context_id,
			state = excluded.state,
			last_updated = excluded.last_updated,
			task_json = excluded.task_json`,
}

// SQL is an implementation of [Store] backed by a relational database.
// Tasks are stored as JSON documents alongside a few indexed columns.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ Store = (*SQL)(nil)

// NewSQL creates a [SQL] store and makes sure the task table exists.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	schema, ok := schemas[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create task table: %w", err)
	}
	return &SQL{db: db, dialect: dialect, now: time.Now}, nil
}

// Save implements [Store] interface.
func (s *SQL) Save(ctx context.Context, task *a2a.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = s.db.ExecContext(ctx, upserts[s.dialect],
		string(task.ID), task.ContextID, string(task.Status.State), s.now().UnixNano(), string(taskJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// Get implements [Store] interface.
func (s *SQL) Get(ctx context.Context, taskID a2a.TaskID) (*a2a.Task, bool, error) {
	var taskJSON string
	err := s.db.QueryRowContext(ctx, "SELECT task_json FROM task WHERE id = ?", string(taskID)).Scan(&taskJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query task: %w", err)
	}

	var task a2a.Task
	if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, true, nil
}

// List implements [Store] interface.
func (s *SQL) List(ctx context.Context) ([]*a2a.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT task_json FROM task ORDER BY last_updated DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error(ctx, "failed to close rows", err)
		}
	}()

	var result []*a2a.Task
	for rows.Next() {
		var taskJSON string
		if err := rows.Scan(&taskJSON); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		var task a2a.Task
		if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task: %w", err)
		}
		result = append(result, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return result, nil
}
