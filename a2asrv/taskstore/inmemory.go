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
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/internal/utils"
)

type storedTask struct {
	task        *a2a.Task
	lastUpdated time.Time
}

// InMemoryStoreConfig is a configuration for [InMemory] store.
type InMemoryStoreConfig struct {
	TimeProvider func() time.Time
}

// InMemory is an implementation of [Store] which stores tasks in memory.
// This means that store contents do not survive server restarts.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[a2a.TaskID]*storedTask

	config InMemoryStoreConfig
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty [InMemory] store.
func NewInMemory(config *InMemoryStoreConfig) *InMemory {
	m := &InMemory{tasks: make(map[a2a.TaskID]*storedTask)}
	if config != nil {
		m.config = *config
	}
	if m.config.TimeProvider == nil {
		m.config.TimeProvider = time.Now
	}
	return m
}

// Save implements [Store] interface.
func (s *InMemory) Save(ctx context.Context, task *a2a.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	copy, err := utils.DeepCopy(task)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = &storedTask{task: copy, lastUpdated: s.config.TimeProvider()}
	return nil
}

// Get implements [Store] interface.
func (s *InMemory) Get(ctx context.Context, taskID a2a.TaskID) (*a2a.Task, bool, error) {
	s.mu.RLock()
	stored, ok := s.tasks[taskID]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	task, err := utils.DeepCopy(stored.task)
	if err != nil {
		return nil, false, fmt.Errorf("task copy failed: %w", err)
	}
	return task, true, nil
}

// List implements [Store] interface.
func (s *InMemory) List(ctx context.Context) ([]*a2a.Task, error) {
	s.mu.RLock()
	stored := make([]*storedTask, 0, len(s.tasks))
	for _, st := range s.tasks {
		stored = append(stored, st)
	}
	s.mu.RUnlock()

	slices.SortFunc(stored, func(a, b *storedTask) int {
		if timeCmp := b.lastUpdated.Compare(a.lastUpdated); timeCmp != 0 {
			return timeCmp
		}
		return strings.Compare(string(b.task.ID), string(a.task.ID))
	})

	result := make([]*a2a.Task, 0, len(stored))
	for _, st := range stored {
		task, err := utils.DeepCopy(st.task)
		if err != nil {
			return nil, fmt.Errorf("task copy failed: %w", err)
		}
		result = append(result, task)
	}
	return result, nil
}
