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

package a2asrv

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/taskstore"
	"github.com/a2aproject/a2a-orchestrator/internal/taskexec"
	"github.com/a2aproject/a2a-orchestrator/internal/utils"
)

// ExecutorContext provides information about the request which triggered an agent invocation.
// It should be used as a [a2a.TaskInfoProvider] argument for event constructor functions:
//
//	a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateWorking, nil)
//	a2a.NewArtifactEvent(execCtx, "search_results", parts...)
//	a2a.NewArtifactUpdateEvent(execCtx, artifactID, parts...)
type ExecutorContext struct {
	// TaskID is the ID of the task the agent is working on.
	TaskID a2a.TaskID
	// ContextID is the ID of the interactions group the task belongs to.
	ContextID string
	// Message is the message which triggered the invocation. It is nil for cancelations.
	Message *a2a.Message
	// Task is a snapshot of the stored task. The history already contains Message.
	Task *a2a.Task
	// Metadata of the request.
	Metadata map[string]any
}

// TaskInfo implements [a2a.TaskInfoProvider].
func (ec *ExecutorContext) TaskInfo() a2a.TaskInfo {
	return a2a.TaskInfo{TaskID: ec.TaskID, ContextID: ec.ContextID}
}

// AgentExecutor implementations translate agent outputs to A2A events and write them to the provided queue.
//
// The server stops processing events after a final [a2a.TaskStatusUpdateEvent]: one with a terminal
// state or one in working state with Final set, which means the agent is waiting for more input.
// A working status is stamped on the task before the first event of an execution if the agent
// doesn't emit it itself.
//
// In general, the executor should not return an error after the first event was written,
// but an [a2a.TaskStatusUpdateEvent] with a failed state. A returned error, a panic or returning
// without a final event all move the task to failed state.
type AgentExecutor interface {
	// Execute handles a non-streaming request. Artifacts are expected to be emitted whole.
	// Every invocation runs in a dedicated goroutine.
	Execute(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error

	// Stream handles a streaming request. Artifacts can be emitted in chunks.
	// Every invocation runs in a dedicated goroutine.
	Stream(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error

	// Cancel is called when a client requests the agent to stop working on a task.
	// The simplest implementation emits a final [a2a.TaskStatusUpdateEvent] with [a2a.TaskStateCanceled].
	// Cancel is not called for tasks in a terminal state.
	Cancel(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error
}

type factory struct {
	taskStore taskstore.Store
	agent     AgentExecutor
	agentID   a2a.AgentID
}

var _ taskexec.Factory = (*factory)(nil)

// CreateExecutor implements taskexec.Factory.
func (f *factory) CreateExecutor(ctx context.Context, tid a2a.TaskID, req *a2a.SendMessageRequest, streaming bool) (*a2a.Task, taskexec.Producer, error) {
	task, err := f.loadTask(ctx, tid, req.Message)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := utils.DeepCopy(task)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to copy task: %w", err)
	}
	execCtx := &ExecutorContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Message:   req.Message,
		Task:      snapshot,
		Metadata:  req.Metadata,
	}

	producer := func(ctx context.Context, q eventqueue.Writer) error {
		if streaming {
			return f.agent.Stream(ctx, execCtx, q)
		}
		return f.agent.Execute(ctx, execCtx, q)
	}
	return task, producer, nil
}

// loadTask returns the stored task with the message appended to its history or a new submitted task.
func (f *factory) loadTask(ctx context.Context, tid a2a.TaskID, msg *a2a.Message) (*a2a.Task, error) {
	if msg.Receiver == "" {
		msg.Receiver = f.agentID
	}
	if msg.Timestamp == nil {
		now := time.Now()
		msg.Timestamp = &now
	}

	task, ok, err := f.taskStore.Get(ctx, tid)
	if err != nil {
		return nil, fmt.Errorf("task loading failed: %w", err)
	}

	if !ok {
		contextID := msg.ContextID
		if contextID == "" {
			contextID = a2a.NewContextID()
		}
		msg.TaskID, msg.ContextID = tid, contextID
		task = a2a.NewSubmittedTask(msg, msg)
		if err := f.taskStore.Save(ctx, task); err != nil {
			return nil, fmt.Errorf("failed to save a new task: %w", err)
		}
		return task, nil
	}

	if msg.ContextID != "" && msg.ContextID != task.ContextID {
		return nil, fmt.Errorf("message contextID different from task contextID: %w", a2a.ErrInvalidParams)
	}
	if task.Status.State.Terminal() {
		return nil, fmt.Errorf("task in a terminal state %q: %w", task.Status.State, a2a.ErrInvalidParams)
	}

	msg.TaskID, msg.ContextID = task.ID, task.ContextID
	updateHistory := !slices.ContainsFunc(task.History, func(m *a2a.Message) bool {
		return m.ID == msg.ID
	})
	if updateHistory {
		task.History = append(task.History, msg)
		if err := f.taskStore.Save(ctx, task); err != nil {
			return nil, fmt.Errorf("task message history update failed: %w", err)
		}
	}
	return task, nil
}

// CreateCanceler implements taskexec.Factory.
func (f *factory) CreateCanceler(ctx context.Context, req *a2a.CancelTaskRequest) (*a2a.Task, taskexec.Producer, error) {
	task, ok, err := f.taskStore.Get(ctx, req.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load a task: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("task %s: %w", req.ID, a2a.ErrTaskNotFound)
	}
	if task.Status.State.Terminal() {
		return task, nil, nil
	}

	snapshot, err := utils.DeepCopy(task)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to copy task: %w", err)
	}
	execCtx := &ExecutorContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Task:      snapshot,
		Metadata:  req.Metadata,
	}
	producer := func(ctx context.Context, q eventqueue.Writer) error {
		return f.agent.Cancel(ctx, execCtx, q)
	}
	return task, producer, nil
}
