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
	"errors"
	"fmt"
	"sync"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
)

// ErrFinalEventPublished is returned by [TaskUpdater] for events written after a final event.
var ErrFinalEventPublished = errors.New("final event was already published")

// TaskUpdater helps agents publish events related to a single task. All messages it creates are
// sent by the agent and addressed to the sender of the message which triggered the invocation.
// After a final event was published all further updates fail with [ErrFinalEventPublished].
type TaskUpdater struct {
	execCtx *ExecutorContext
	agentID a2a.AgentID
	queue   eventqueue.Writer

	mu    sync.Mutex
	final bool
}

// NewTaskUpdater creates a [TaskUpdater] writing events to the provided queue.
func NewTaskUpdater(execCtx *ExecutorContext, agentID a2a.AgentID, q eventqueue.Writer) *TaskUpdater {
	return &TaskUpdater{execCtx: execCtx, agentID: agentID, queue: q}
}

// NewMessage creates an agent message in the context of the task.
func (u *TaskUpdater) NewMessage(text string) *a2a.Message {
	msg := a2a.NewAgentMessage(u.execCtx, u.agentID, text)
	if u.execCtx.Message != nil {
		msg.Receiver = u.execCtx.Message.Sender
	}
	if msg.Receiver == "" {
		msg.Receiver = a2a.AgentUser
	}
	return msg
}

// Publish writes the event to the queue.
func (u *TaskUpdater) Publish(ctx context.Context, event a2a.Event) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.final {
		return ErrFinalEventPublished
	}
	if err := u.queue.Write(ctx, event); err != nil {
		return fmt.Errorf("failed to publish an event: %w", err)
	}
	u.final = a2a.IsFinal(event)
	return nil
}

// IsFinal reports whether a final event was published.
func (u *TaskUpdater) IsFinal() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.final
}

// StartWork moves the task to working state.
func (u *TaskUpdater) StartWork(ctx context.Context) error {
	return u.Publish(ctx, a2a.NewStatusUpdateEvent(u.execCtx, a2a.TaskStateWorking, nil))
}

// Complete moves the task to completed state. An empty text means no status message.
func (u *TaskUpdater) Complete(ctx context.Context, text string) error {
	return u.Publish(ctx, a2a.NewStatusUpdateEvent(u.execCtx, a2a.TaskStateCompleted, u.optionalMessage(text)))
}

// Fail moves the task to failed state with the cause text as the status message.
func (u *TaskUpdater) Fail(ctx context.Context, cause error) error {
	return u.Publish(ctx, a2a.NewStatusUpdateEvent(u.execCtx, a2a.TaskStateFailed, u.NewMessage(cause.Error())))
}

// Cancel moves the task to canceled state.
func (u *TaskUpdater) Cancel(ctx context.Context) error {
	return u.Publish(ctx, a2a.NewStatusUpdateEvent(u.execCtx, a2a.TaskStateCanceled, nil))
}

// RequireInput asks the caller a question and ends the invocation. The task stays in working state.
// A non-empty attribute is recorded under [a2a.MetaAwaitingAttribute] on both the event and the message.
func (u *TaskUpdater) RequireInput(ctx context.Context, question string, attribute string) error {
	msg := u.NewMessage(question)
	event := a2a.NewStatusUpdateEvent(u.execCtx, a2a.TaskStateWorking, msg)
	event.Final = true
	if attribute != "" {
		msg.Metadata = map[string]any{a2a.MetaAwaitingAttribute: attribute}
		event.SetMeta(a2a.MetaAwaitingAttribute, attribute)
	}
	return u.Publish(ctx, event)
}

// AddArtifact publishes a new artifact and returns its ID which can be used for appending chunks.
func (u *TaskUpdater) AddArtifact(ctx context.Context, name string, parts ...a2a.Part) (a2a.ArtifactID, error) {
	event := a2a.NewArtifactEvent(u.execCtx, name, parts...)
	if err := u.Publish(ctx, event); err != nil {
		return "", err
	}
	return event.Artifact.ID, nil
}

// AppendArtifact appends parts to an artifact created with [TaskUpdater.AddArtifact].
func (u *TaskUpdater) AppendArtifact(ctx context.Context, id a2a.ArtifactID, parts ...a2a.Part) error {
	return u.Publish(ctx, a2a.NewArtifactUpdateEvent(u.execCtx, id, parts...))
}

func (u *TaskUpdater) optionalMessage(text string) *a2a.Message {
	if text == "" {
		return nil
	}
	return u.NewMessage(text)
}
