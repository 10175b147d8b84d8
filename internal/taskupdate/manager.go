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

// Package taskupdate applies agent events to a task and persists the result.
package taskupdate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/taskstore"
	"github.com/a2aproject/a2a-orchestrator/internal/utils"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// ErrTaskTerminal is returned for events which arrive after the task reached a terminal state.
// Such events are discarded.
var ErrTaskTerminal = errors.New("task is in a terminal state")

// Manager is used for processing [a2a.Event] related to an [a2a.Task]. It updates
// the Task accordingly and uses [taskstore.Store] to store the new state.
type Manager struct {
	taskInfo a2a.TaskInfo
	sender   a2a.AgentID
	task     *a2a.Task
	store    taskstore.Store
}

// NewManager is a [Manager] constructor function. The sender is used as the author of
// status messages the manager synthesizes.
func NewManager(store taskstore.Store, sender a2a.AgentID, task *a2a.Task) *Manager {
	return &Manager{
		taskInfo: task.TaskInfo(),
		sender:   sender,
		task:     task,
		store:    store,
	}
}

// Task returns the last stored state of the task.
func (mgr *Manager) Task() *a2a.Task {
	return mgr.task
}

// SetTaskFailed moves the task to failed state with the cause text as the status message.
// It returns the events which need to be delivered to subscribers.
func (mgr *Manager) SetTaskFailed(ctx context.Context, cause error) ([]a2a.Event, error) {
	msg := a2a.NewAgentMessage(mgr.taskInfo, mgr.sender, cause.Error())
	event := a2a.NewStatusUpdateEvent(mgr.taskInfo, a2a.TaskStateFailed, msg)

	events, err := mgr.Process(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to store failed task state: %w: %w", err, cause)
	}

	log.Info(ctx, "task moved to failed state", "cause", cause.Error())
	return events, nil
}

// Process validates the event associated with the managed [a2a.Task] and integrates the new state into it.
// The returned slice contains the event itself, preceded by a working status update if the event
// is the first one an agent produced for a submitted task.
func (mgr *Manager) Process(ctx context.Context, event a2a.Event) ([]a2a.Event, error) {
	if err := mgr.validate(event); err != nil {
		return nil, err
	}

	if state := mgr.task.Status.State; state.Terminal() {
		return nil, fmt.Errorf("%T discarded, task moved to %q: %w", event, state, ErrTaskTerminal)
	}

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	var result []a2a.Event
	if mgr.task.Status.State == a2a.TaskStateSubmitted && !isWorkingUpdate(event) {
		working := a2a.NewStatusUpdateEvent(mgr.taskInfo, a2a.TaskStateWorking, nil)
		if err := mgr.updateStatus(ctx, working); err != nil {
			return nil, err
		}
		result = append(result, working)
	}

	switch v := event.(type) {
	case *a2a.TaskArtifactUpdateEvent:
		if err := mgr.updateArtifact(ctx, v); err != nil {
			return nil, err
		}
	case *a2a.TaskStatusUpdateEvent:
		if err := mgr.updateStatus(ctx, v); err != nil {
			return nil, err
		}
	}

	return append(result, event), nil
}

func (mgr *Manager) updateArtifact(ctx context.Context, event *a2a.TaskArtifactUpdateEvent) error {
	task, err := utils.DeepCopy(mgr.task)
	if err != nil {
		return fmt.Errorf("failed to copy task: %w", err)
	}

	// The copy is required because the event will be passed to subscriber goroutines, while
	// the artifact might be modified in our goroutine by other TaskArtifactUpdateEvent-s.
	artifact, err := utils.DeepCopy(event.Artifact)
	if err != nil {
		return fmt.Errorf("failed to copy artifact: %w", err)
	}

	updateIdx := slices.IndexFunc(task.Artifacts, func(a *a2a.Artifact) bool {
		return a.ID == artifact.ID
	})

	switch {
	case updateIdx < 0 && event.Append:
		return fmt.Errorf("no artifact %s found for update: %w", artifact.ID, a2a.ErrInvalidAgentResponse)

	case updateIdx < 0:
		task.Artifacts = append(task.Artifacts, artifact)

	case !event.Append:
		task.Artifacts[updateIdx] = artifact

	default:
		toUpdate := task.Artifacts[updateIdx]
		toUpdate.Parts = append(toUpdate.Parts, artifact.Parts...)
		if toUpdate.Metadata == nil && artifact.Metadata != nil {
			toUpdate.Metadata = make(map[string]any, len(artifact.Metadata))
		}
		for k, v := range artifact.Metadata {
			toUpdate.Metadata[k] = v
		}
	}

	return mgr.saveTask(ctx, task)
}

func (mgr *Manager) updateStatus(ctx context.Context, event *a2a.TaskStatusUpdateEvent) error {
	task, err := utils.DeepCopy(mgr.task)
	if err != nil {
		return fmt.Errorf("failed to copy task: %w", err)
	}

	status := event.Status
	if status.Timestamp == nil {
		now := time.Now()
		status.Timestamp = &now
	}
	if status.Message != nil {
		msg, err := utils.DeepCopy(status.Message)
		if err != nil {
			return fmt.Errorf("failed to copy status message: %w", err)
		}
		if msg.TaskID == "" {
			msg.TaskID = task.ID
		}
		if msg.ContextID == "" {
			msg.ContextID = task.ContextID
		}
		if last := task.LastMessage(); last == nil || last.ID != msg.ID {
			task.History = append(task.History, msg)
		}
		status.Message = msg
	}
	task.Status = status

	if added := task.Context.Merge(a2a.ContextFactsFrom(event)); len(added) > 0 {
		log.Debug(ctx, "task context updated", "keys", added)
	}

	return mgr.saveTask(ctx, task)
}

func (mgr *Manager) saveTask(ctx context.Context, task *a2a.Task) error {
	if err := mgr.store.Save(ctx, task); err != nil {
		return fmt.Errorf("failed to save task state: %w", err)
	}
	mgr.task = task
	return nil
}

func (mgr *Manager) validate(provider a2a.TaskInfoProvider) error {
	info := provider.TaskInfo()
	if mgr.taskInfo.TaskID != info.TaskID {
		return fmt.Errorf("task IDs don't match: %s != %s: %w", info.TaskID, mgr.taskInfo.TaskID, a2a.ErrInvalidAgentResponse)
	}
	if mgr.taskInfo.ContextID != info.ContextID {
		return fmt.Errorf("context IDs don't match: %s != %s: %w", info.ContextID, mgr.taskInfo.ContextID, a2a.ErrInvalidAgentResponse)
	}
	return nil
}

func validateEvent(event a2a.Event) error {
	switch v := event.(type) {
	case *a2a.TaskArtifactUpdateEvent:
		if v.Artifact == nil || len(v.Artifact.Parts) == 0 {
			return fmt.Errorf("artifact cannot be empty: %w", a2a.ErrInvalidAgentResponse)
		}
	case *a2a.TaskStatusUpdateEvent:
		if v.Status.State == a2a.TaskStateUnknown || v.Status.State == a2a.TaskStateSubmitted {
			return fmt.Errorf("agent can't report %q state: %w", v.Status.State, a2a.ErrInvalidAgentResponse)
		}
	default:
		return fmt.Errorf("unexpected event type %T: %w", v, a2a.ErrInvalidAgentResponse)
	}
	return nil
}

func isWorkingUpdate(event a2a.Event) bool {
	v, ok := event.(*a2a.TaskStatusUpdateEvent)
	return ok && v.Status.State == a2a.TaskStateWorking
}
