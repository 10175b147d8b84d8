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

// Package eventqueue provides ordered channels of task events which decouple
// agent executors producing events from consumers streaming them to callers.
package eventqueue

import (
	"context"
	"errors"

	"github.com/a2aproject/a2a-orchestrator/a2a"
)

var (
	// ErrQueueClosed indicates that the event queue has been closed.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueFull indicates that a bounded queue reached its limit and the event was rejected.
	ErrQueueFull = errors.New("queue is full")
)

// Reader defines the interface for reading events from a queue.
type Reader interface {
	// Read dequeues the oldest event or blocks if the queue is empty.
	// After the queue is closed remaining events can still be read, then [ErrQueueClosed] is returned.
	Read(ctx context.Context) (a2a.Event, error)
}

// Writer defines the interface for writing events to a queue.
// [a2asrv.AgentExecutor] implementations report their progress through a Writer.
type Writer interface {
	// Write enqueues an event. It never blocks waiting for a consumer.
	Write(ctx context.Context, event a2a.Event) error
}

// Queue is a FIFO channel of events for a single task execution.
type Queue interface {
	Reader
	Writer

	// Close prevents further writes. Readers are allowed to drain buffered events.
	Close() error
}

// Manager manages event queues on a per-task basis.
type Manager interface {
	// GetOrCreate returns the queue associated with the task or creates a new one.
	GetOrCreate(ctx context.Context, taskID a2a.TaskID) (Queue, error)

	// Get returns the queue associated with the task if it exists.
	Get(ctx context.Context, taskID a2a.TaskID) (Queue, bool)

	// Destroy closes the queue associated with the task and forgets about it.
	Destroy(ctx context.Context, taskID a2a.TaskID) error
}

// WriterFunc is a function type which implements [Writer].
type WriterFunc func(ctx context.Context, event a2a.Event) error

// Write implements Writer.
func (fn WriterFunc) Write(ctx context.Context, event a2a.Event) error {
	return fn(ctx, event)
}
