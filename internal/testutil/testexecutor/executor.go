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

// Package testexecutor provides mock implementations for agent executor for testing.
package testexecutor

import (
	"context"
	"sync"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
)

// ExecuteFn is the signature shared by all [a2asrv.AgentExecutor] methods.
type ExecuteFn func(context.Context, *a2asrv.ExecutorContext, eventqueue.Writer) error

// TestAgentExecutor is a mock of [a2asrv.AgentExecutor]. Stream falls back to ExecuteFn
// when StreamFn is not set. Without CancelFn, Cancel emits a canceled status.
type TestAgentExecutor struct {
	ExecuteFn ExecuteFn
	StreamFn  ExecuteFn
	CancelFn  ExecuteFn

	mu       sync.Mutex
	received []*a2a.Message
}

var _ a2asrv.AgentExecutor = (*TestAgentExecutor)(nil)

// FromFunction creates a [TestAgentExecutor] from a function.
func FromFunction(fn ExecuteFn) *TestAgentExecutor {
	return &TestAgentExecutor{ExecuteFn: fn}
}

// FromEventGenerator creates a [TestAgentExecutor] that writes events from a generator.
func FromEventGenerator(generator func(execCtx *a2asrv.ExecutorContext) []a2a.Event) *TestAgentExecutor {
	return FromFunction(func(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
		for _, ev := range generator(execCtx) {
			if err := q.Write(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// Replying creates a [TestAgentExecutor] which completes every task with the provided text.
func Replying(agentID a2a.AgentID, text string) *TestAgentExecutor {
	return FromFunction(func(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
		return a2asrv.NewTaskUpdater(execCtx, agentID, q).Complete(ctx, text)
	})
}

// Received returns the messages the executor was invoked with.
func (e *TestAgentExecutor) Received() []*a2a.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*a2a.Message(nil), e.received...)
}

func (e *TestAgentExecutor) record(execCtx *a2asrv.ExecutorContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.received = append(e.received, execCtx.Message)
}

// Execute implements [a2asrv.AgentExecutor] interface.
func (e *TestAgentExecutor) Execute(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	e.record(execCtx)
	if e.ExecuteFn != nil {
		return e.ExecuteFn(ctx, execCtx, q)
	}
	return nil
}

// Stream implements [a2asrv.AgentExecutor] interface.
func (e *TestAgentExecutor) Stream(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	if e.StreamFn == nil {
		return e.Execute(ctx, execCtx, q)
	}
	e.record(execCtx)
	return e.StreamFn(ctx, execCtx, q)
}

// Cancel implements [a2asrv.AgentExecutor] interface.
func (e *TestAgentExecutor) Cancel(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	if e.CancelFn != nil {
		return e.CancelFn(ctx, execCtx, q)
	}
	return q.Write(ctx, a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateCanceled, nil))
}
