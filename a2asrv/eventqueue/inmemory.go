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

package eventqueue

import (
	"context"
	"sync"

	"github.com/a2aproject/a2a-orchestrator/a2a"
)

// QueueOption is a functional option for configuring in-memory queues.
type QueueOption func(*inMemoryQueue)

// WithQueueLimit bounds the number of buffered events. A write to a full queue fails
// with [ErrQueueFull] instead of blocking. Zero or a negative value means no limit.
func WithQueueLimit(limit int) QueueOption {
	return func(q *inMemoryQueue) {
		q.limit = limit
	}
}

type inMemoryQueue struct {
	mu     sync.Mutex
	events []a2a.Event
	limit  int
	closed bool

	// notify has a buffer of one and signals a reader that events were added
	notify chan struct{}
	done   chan struct{}
}

var _ Queue = (*inMemoryQueue)(nil)

// NewInMemory creates an unbounded in-memory [Queue].
func NewInMemory(opts ...QueueOption) Queue {
	q := &inMemoryQueue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *inMemoryQueue) Write(ctx context.Context, event a2a.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.limit > 0 && len(q.events) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.events = append(q.events, event)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *inMemoryQueue) Read(ctx context.Context) (a2a.Event, error) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			event := q.events[0]
			q.events[0] = nil
			q.events = q.events[1:]
			q.mu.Unlock()
			return event, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-q.done:
		}
	}
}

func (q *inMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// inMemoryManager implements Manager interface.
type inMemoryManager struct {
	mu     sync.Mutex
	queues map[a2a.TaskID]Queue
	opts   []QueueOption
}

var _ Manager = (*inMemoryManager)(nil)

// NewInMemoryManager creates a new in-memory eventqueue manager. Provided options are applied
// to every queue created by the manager.
func NewInMemoryManager(opts ...QueueOption) Manager {
	return &inMemoryManager{
		queues: make(map[a2a.TaskID]Queue),
		opts:   opts,
	}
}

func (m *inMemoryManager) GetOrCreate(ctx context.Context, taskID a2a.TaskID) (Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[taskID]; ok {
		return q, nil
	}
	q := NewInMemory(m.opts...)
	m.queues[taskID] = q
	return q, nil
}

func (m *inMemoryManager) Get(ctx context.Context, taskID a2a.TaskID) (Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[taskID]
	return q, ok
}

func (m *inMemoryManager) Destroy(ctx context.Context, taskID a2a.TaskID) error {
	m.mu.Lock()
	q, ok := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return q.Close()
}
