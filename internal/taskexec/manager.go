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

// Package taskexec runs agent executions and cancelations in detached goroutines and
// applies the produced events to tasks.
package taskexec

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/taskstore"
	"github.com/a2aproject/a2a-orchestrator/internal/taskupdate"
	"github.com/a2aproject/a2a-orchestrator/log"
)

var (
	// ErrExecutionInProgress is returned when a caller attempts to start an execution for
	// a Task concurrently with another execution.
	ErrExecutionInProgress = errors.New("task execution is already in progress")
	// ErrCancelationInProgress is returned when a caller attempts to start an execution for
	// a Task concurrently with its cancelation.
	ErrCancelationInProgress = errors.New("task cancelation is in progress")
)

// Producer writes the events of an execution or a cancelation.
type Producer func(ctx context.Context, w eventqueue.Writer) error

// Factory prepares tasks for executions and cancelations.
type Factory interface {
	// CreateExecutor loads or creates the task the message belongs to, stores it with the message
	// appended to its history and returns the producer of the execution events.
	CreateExecutor(ctx context.Context, tid a2a.TaskID, req *a2a.SendMessageRequest, streaming bool) (*a2a.Task, Producer, error)

	// CreateCanceler loads the task and returns the producer of the cancelation events.
	// A nil producer means the task doesn't need to be canceled and is returned as is.
	CreateCanceler(ctx context.Context, req *a2a.CancelTaskRequest) (*a2a.Task, Producer, error)
}

// Config contains execution Manager configuration parameters.
type Config struct {
	// QueueManager provides queues through which processed events reach subscribers.
	QueueManager eventqueue.Manager
	// TaskStore is used for persisting task state after every processed event.
	TaskStore taskstore.Store
	// Factory prepares tasks and creates event producers.
	Factory Factory
	// AgentID is the sender of status messages synthesized for failed executions.
	AgentID a2a.AgentID
	// PanicHandler converts a panic of an agent to an error. A default error is used if nil.
	PanicHandler PanicHandlerFn
}

// Manager provides an API for executing and canceling tasks in a way that ensures
// concurrent calls don't interfere with one another in unexpected ways.
// The following guarantees are provided:
//   - If a Task is being canceled, a concurrent Execution can't be started.
//   - If a Task is being canceled, a concurrent cancelation will await the existing cancelation.
//   - If a Task is being executed, a concurrent cancelation writes to the execution event pipe
//     and resolves to the execution result.
//   - If a Task is being executed, a concurrent execution will be rejected.
//
// Both cancelations and executions are started in detached context and run until completion.
// The type is suitable only for single-process execution management.
type Manager struct {
	queueManager eventqueue.Manager
	store        taskstore.Store
	factory      Factory
	agentID      a2a.AgentID
	panicHandler PanicHandlerFn

	mu           sync.Mutex
	executions   map[a2a.TaskID]*execution
	cancelations map[a2a.TaskID]*promise
}

type execution struct {
	tid    a2a.TaskID
	pipe   eventqueue.Queue
	result *promise
	once   sync.Once
}

// NewManager is a [Manager] constructor function.
func NewManager(cfg Config) *Manager {
	manager := &Manager{
		queueManager: cfg.QueueManager,
		store:        cfg.TaskStore,
		factory:      cfg.Factory,
		agentID:      cfg.AgentID,
		panicHandler: cfg.PanicHandler,
		executions:   make(map[a2a.TaskID]*execution),
		cancelations: make(map[a2a.TaskID]*promise),
	}
	if manager.queueManager == nil {
		manager.queueManager = eventqueue.NewInMemoryManager()
	}
	if manager.store == nil {
		manager.store = taskstore.NewInMemory(nil)
	}
	return manager
}

// Execute creates the execution producer using [Factory] and starts it together with the event
// processing in a detached context. There can only be a single active execution per TaskID.
func (m *Manager) Execute(ctx context.Context, req *a2a.SendMessageRequest, streaming bool) (*Subscription, error) {
	if req == nil || req.Message == nil {
		return nil, fmt.Errorf("message is required: %w", a2a.ErrInvalidParams)
	}

	tid := req.Message.TaskID
	if tid == "" {
		tid = a2a.NewTaskID()
	}

	execution, err := m.createExecution(tid)
	if err != nil {
		return nil, err
	}

	task, producer, err := m.factory.CreateExecutor(ctx, tid, req, streaming)
	if err != nil {
		m.finishExecution(ctx, execution, nil, err)
		return nil, err
	}

	queue, err := m.queueManager.GetOrCreate(ctx, tid)
	if err != nil {
		m.finishExecution(ctx, execution, nil, err)
		return nil, fmt.Errorf("failed to create a queue: %w", err)
	}

	go m.handleExecution(context.WithoutCancel(ctx), execution, task, producer, queue)

	return &Subscription{tid: tid, queue: queue, result: execution.result}, nil
}

func (m *Manager) createExecution(tid a2a.TaskID) (*execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.executions[tid]; ok {
		return nil, ErrExecutionInProgress
	}
	if _, ok := m.cancelations[tid]; ok {
		return nil, ErrCancelationInProgress
	}

	execution := &execution{tid: tid, pipe: eventqueue.NewInMemory(), result: newPromise()}
	m.executions[tid] = execution
	return execution, nil
}

// Cancel uses the canceler created by [Factory] to signal task cancelation and waits for it to take effect.
// If there's a cancelation in progress we wait for its result instead of starting a new one.
// If there's an active execution the canceler writes to the same event pipe and the cancelation
// resolves to the execution result.
// If there's no active execution the canceler events are applied to the stored task.
func (m *Manager) Cancel(ctx context.Context, req *a2a.CancelTaskRequest) (*a2a.Task, error) {
	task, canceler, err := m.factory.CreateCanceler(ctx, req)
	if err != nil {
		return nil, err
	}
	if canceler == nil {
		return task, nil
	}
	tid := task.ID

	m.mu.Lock()
	execution := m.executions[tid]
	cancel, cancelInProgress := m.cancelations[tid]
	if cancel == nil {
		cancel = newPromise()
		m.cancelations[tid] = cancel
	}
	m.mu.Unlock()

	if !cancelInProgress {
		detachedCtx := context.WithoutCancel(ctx)
		if execution != nil {
			go m.handleCancelWithConcurrentRun(detachedCtx, tid, cancel, execution, canceler)
		} else {
			go m.handleCancel(detachedCtx, task, cancel, canceler)
		}
	}

	return cancel.wait(ctx)
}

func (m *Manager) handleExecution(ctx context.Context, execution *execution, task *a2a.Task, producer Producer, broadcast eventqueue.Writer) {
	ctx = log.With(ctx, "task_id", string(execution.tid))
	updater := taskupdate.NewManager(m.store, m.agentID, task)
	consumer := &eventConsumer{
		pipe:      execution.pipe,
		updater:   updater,
		broadcast: broadcast,
		onFinal: func(task *a2a.Task) {
			m.finishExecution(ctx, execution, task, nil)
		},
	}

	_, err := runProducerConsumer(
		ctx,
		func(ctx context.Context) error {
			defer closeQueue(ctx, execution.pipe)
			return producer(ctx, execution.pipe)
		},
		consumer.consume,
		m.panicHandler,
	)
	if err == nil {
		return
	}

	log.Error(ctx, "execution failed", err)
	events, failErr := updater.SetTaskFailed(ctx, err)
	if failErr != nil {
		m.finishExecution(ctx, execution, nil, failErr)
		return
	}
	consumer.publish(ctx, events)
	m.finishExecution(ctx, execution, updater.Task(), nil)
}

func (m *Manager) finishExecution(ctx context.Context, execution *execution, task *a2a.Task, err error) {
	execution.once.Do(func() {
		m.mu.Lock()
		delete(m.executions, execution.tid)
		m.mu.Unlock()

		if err := m.queueManager.Destroy(ctx, execution.tid); err != nil {
			log.Error(ctx, "failed to destroy a queue", err)
		}
		execution.result.resolve(task, err)
	})
}

func (m *Manager) handleCancel(ctx context.Context, task *a2a.Task, cancel *promise, canceler Producer) {
	defer m.finishCancelation(task.ID)

	pipe := eventqueue.NewInMemory()
	consumer := &eventConsumer{pipe: pipe, updater: taskupdate.NewManager(m.store, m.agentID, task)}
	result, err := runProducerConsumer(
		ctx,
		func(ctx context.Context) error {
			defer closeQueue(ctx, pipe)
			return canceler(ctx, pipe)
		},
		consumer.consume,
		m.panicHandler,
	)
	cancel.resolve(result, err)
}

// Sends a cancelation request on the pipe which is being used by an active execution.
// Then waits for the execution to complete and resolves cancelation to the same result.
func (m *Manager) handleCancelWithConcurrentRun(ctx context.Context, tid a2a.TaskID, cancel *promise, run *execution, canceler Producer) {
	defer m.finishCancelation(tid)

	err := callSafe("task canceler", m.panicHandler, func() error {
		return canceler(ctx, run.pipe)
	})
	if err != nil {
		cancel.resolve(nil, err)
		return
	}

	cancel.resolve(run.result.wait(ctx))
}

func (m *Manager) finishCancelation(tid a2a.TaskID) {
	m.mu.Lock()
	delete(m.cancelations, tid)
	m.mu.Unlock()
}

func closeQueue(ctx context.Context, q eventqueue.Queue) {
	if err := q.Close(); err != nil {
		log.Warn(ctx, "failed to close event pipe", "error", err)
	}
}

// Subscription provides access to the events of an execution after they were applied to the task.
type Subscription struct {
	tid      a2a.TaskID
	queue    eventqueue.Reader
	result   *promise
	consumed bool
}

// TaskID returns the ID of the executed task.
func (s *Subscription) TaskID() a2a.TaskID {
	return s.tid
}

// Events returns a sequence of processed events. The sequence ends after a final event.
// It can only be consumed once.
func (s *Subscription) Events(ctx context.Context) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		if s.consumed {
			yield(nil, fmt.Errorf("subscription already consumed"))
			return
		}
		s.consumed = true

		for {
			event, err := s.queue.Read(ctx)
			if errors.Is(err, eventqueue.ErrQueueClosed) {
				break
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(event, nil) {
				return
			}
			if a2a.IsFinal(event) {
				return
			}
		}

		// the queue gets closed without a final event only if the task state couldn't be stored
		if _, err := s.result.wait(ctx); err != nil {
			yield(nil, err)
		}
	}
}

// Wait blocks until the execution produces a final event and returns the resulting task state.
func (s *Subscription) Wait(ctx context.Context) (*a2a.Task, error) {
	return s.result.wait(ctx)
}
