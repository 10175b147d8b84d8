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

// Package taskstore defines the task persistence contract and its implementations.
//
// Stores provide last-write-wins semantics. The server stack never lets two executions
// write the same task concurrently, so conflicting writers to a single task ID are not
// detected: the last Save wins and intermediate states may be lost.
package taskstore

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-orchestrator/a2a"
)

// Store is an interface the server stack uses for storing and retrieving tasks.
// Implementations must be safe for concurrent use across different task IDs.
type Store interface {
	// Get returns the stored task. A missing task is reported with found equal to false and
	// is not an error: callers create a new task in this case.
	Get(ctx context.Context, taskID a2a.TaskID) (task *a2a.Task, found bool, err error)

	// Save stores the task replacing any previous state.
	Save(ctx context.Context, task *a2a.Task) error

	// List returns all the stored tasks, most recently updated first.
	List(ctx context.Context) ([]*a2a.Task, error)
}

func validateTask(task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task is required: %w", a2a.ErrInvalidParams)
	}
	if task.ID == "" {
		return fmt.Errorf("task ID is required: %w", a2a.ErrInvalidParams)
	}
	if task.Status.State == a2a.TaskStateUnknown {
		return fmt.Errorf("task %s state is required: %w", task.ID, a2a.ErrInvalidParams)
	}
	return nil
}
