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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/internal/testutil"
	"github.com/a2aproject/a2a-orchestrator/internal/utils"
	"github.com/a2aproject/a2a-orchestrator/log"
	"github.com/google/go-cmp/cmp"
)

const testAgentID a2a.AgentID = "test-agent"

type mockAgentExecutor struct {
	ExecuteFunc func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error
	StreamFunc  func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error
	CancelFunc  func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error
}

var _ AgentExecutor = (*mockAgentExecutor)(nil)

func (m *mockAgentExecutor) Execute(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, execCtx, q)
	}
	return NewTaskUpdater(execCtx, testAgentID, q).Complete(ctx, "done")
}

func (m *mockAgentExecutor) Stream(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, execCtx, q)
	}
	return m.Execute(ctx, execCtx, q)
}

func (m *mockAgentExecutor) Cancel(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, execCtx, q)
	}
	return NewTaskUpdater(execCtx, testAgentID, q).Cancel(ctx)
}

func newUserMessage(t *testing.T, text string) *a2a.Message {
	t.Helper()
	msg, err := a2a.NewMessage(a2a.AgentUser, testAgentID, text)
	if err != nil {
		t.Fatalf("a2a.NewMessage() error = %v", err)
	}
	return msg
}

func newStoredTask(t *testing.T, state a2a.TaskState, texts ...string) *a2a.Task {
	t.Helper()
	info := a2a.TaskInfo{TaskID: a2a.NewTaskID(), ContextID: a2a.NewContextID()}
	task := a2a.NewSubmittedTask(info, nil)
	for _, text := range texts {
		msg := newUserMessage(t, text)
		msg.TaskID, msg.ContextID = info.TaskID, info.ContextID
		task.History = append(task.History, msg)
	}
	task.Status.State = state
	return task
}

func collectEvents(t *testing.T, h RequestHandler, req *a2a.SendMessageRequest) ([]a2a.Event, error) {
	t.Helper()
	var events []a2a.Event
	for event, err := range h.SendStreamingMessage(t.Context(), req) {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

func eventStates(events []a2a.Event) []string {
	var states []string
	for _, event := range events {
		switch v := event.(type) {
		case *a2a.TaskStatusUpdateEvent:
			states = append(states, string(v.Status.State))
		case *a2a.TaskArtifactUpdateEvent:
			states = append(states, "artifact:"+v.Artifact.Name)
		}
	}
	return states
}

func TestRequestHandler_SendMessage(t *testing.T) {
	store := testutil.NewTestTaskStore()
	executor := &mockAgentExecutor{
		ExecuteFunc: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
			updater := NewTaskUpdater(execCtx, testAgentID, q)
			if _, err := updater.AddArtifact(ctx, "echo", a2a.NewTextPart(execCtx.Message.Text())); err != nil {
				return err
			}
			return updater.Complete(ctx, "echoed")
		},
	}
	handler := NewHandler(executor, WithTaskStore(store), WithAgentID(testAgentID))

	msg := newUserMessage(t, "hello")
	task, err := handler.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: msg})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("SendMessage() state = %q, want %q", task.Status.State, a2a.TaskStateCompleted)
	}
	if got := task.ResponseText(); got != "echoed" {
		t.Errorf("task.ResponseText() = %q, want %q", got, "echoed")
	}
	var history []string
	for _, m := range task.History {
		history = append(history, fmt.Sprintf("%s->%s: %s", m.Sender, m.Receiver, m.Text()))
	}
	wantHistory := []string{"user->test-agent: hello", "test-agent->user: echoed"}
	if diff := cmp.Diff(wantHistory, history); diff != "" {
		t.Errorf("task.History mismatch (-want +got):\n%s", diff)
	}
	if len(task.Artifacts) != 1 || task.Artifacts[0].Name != "echo" {
		t.Errorf("task.Artifacts = %v, want a single echo artifact", task.Artifacts)
	}
	if diff := cmp.Diff(task, store.MustGet(t, task.ID)); diff != "" {
		t.Errorf("stored task mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestHandler_SendMessageValidation(t *testing.T) {
	handler := NewHandler(&mockAgentExecutor{})

	testCases := []struct {
		name string
		req  *a2a.SendMessageRequest
	}{
		{name: "nil request"},
		{name: "nil message", req: &a2a.SendMessageRequest{}},
		{name: "no parts", req: &a2a.SendMessageRequest{Message: &a2a.Message{ID: "m1", Role: a2a.MessageRoleUser}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := handler.SendMessage(t.Context(), tc.req); !errors.Is(err, a2a.ErrInvalidParams) {
				t.Errorf("SendMessage() error = %v, want %v", err, a2a.ErrInvalidParams)
			}
			if _, err := collectEvents(t, handler, tc.req); !errors.Is(err, a2a.ErrInvalidParams) {
				t.Errorf("SendStreamingMessage() error = %v, want %v", err, a2a.ErrInvalidParams)
			}
		})
	}
}

func TestRequestHandler_SendMessageDefaults(t *testing.T) {
	var got *a2a.Message
	executor := &mockAgentExecutor{
		ExecuteFunc: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
			got = execCtx.Message
			return NewTaskUpdater(execCtx, testAgentID, q).Complete(ctx, "")
		},
	}
	handler := NewHandler(executor, WithAgentID(testAgentID))

	req := &a2a.SendMessageRequest{Message: &a2a.Message{Parts: a2a.ContentParts{a2a.NewTextPart("hi")}}}
	task, err := handler.SendMessage(t.Context(), req)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if got.ID == "" || got.Timestamp == nil {
		t.Errorf("execCtx.Message = %+v, want ID and Timestamp set", got)
	}
	if got.Role != a2a.MessageRoleUser || got.Sender != a2a.AgentUser || got.Receiver != testAgentID {
		t.Errorf("execCtx.Message role, sender, receiver = %q, %q, %q, want user, user, %s", got.Role, got.Sender, got.Receiver, testAgentID)
	}
	if got.TaskID != task.ID || got.ContextID != task.ContextID {
		t.Errorf("execCtx.Message task info = %v, want %v", got.TaskInfo(), task.TaskInfo())
	}
	if req.Message.ID != "" {
		t.Errorf("request message was modified: %+v", req.Message)
	}
}

func TestRequestHandler_FollowUpMessage(t *testing.T) {
	var snapshots []*a2a.Task
	executor := &mockAgentExecutor{
		ExecuteFunc: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
			snapshots = append(snapshots, execCtx.Task)
			updater := NewTaskUpdater(execCtx, testAgentID, q)
			if len(execCtx.Task.History) == 1 {
				return updater.RequireInput(ctx, "What is your budget?", "budget")
			}
			return updater.Complete(ctx, "Found it")
		},
	}
	handler := NewHandler(executor, WithAgentID(testAgentID))

	first, err := handler.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: newUserMessage(t, "buy a laptop")})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if first.Status.State != a2a.TaskStateWorking {
		t.Fatalf("SendMessage() state = %q, want %q", first.Status.State, a2a.TaskStateWorking)
	}
	if got := first.Status.Message.Metadata[a2a.MetaAwaitingAttribute]; got != "budget" {
		t.Errorf("status message %s = %v, want budget", a2a.MetaAwaitingAttribute, got)
	}

	reply := newUserMessage(t, "1000")
	reply.TaskID = first.ID
	second, err := handler.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: reply})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if second.ID != first.ID || second.Status.State != a2a.TaskStateCompleted {
		t.Errorf("SendMessage() = (%s, %q), want (%s, %q)", second.ID, second.Status.State, first.ID, a2a.TaskStateCompleted)
	}
	if len(second.History) != 4 {
		t.Errorf("len(task.History) = %d, want 4", len(second.History))
	}
	if len(snapshots) != 2 || len(snapshots[1].History) != 3 {
		t.Errorf("second execution snapshot history = %d messages, want 3", len(snapshots[1].History))
	}
}

func TestRequestHandler_SendMessageToExistingTaskRejected(t *testing.T) {
	completed := newStoredTask(t, a2a.TaskStateCompleted, "hello")
	working := newStoredTask(t, a2a.TaskStateWorking, "hello")
	store := testutil.NewTestTaskStore().WithTasks(t, completed, working)
	handler := NewHandler(&mockAgentExecutor{}, WithTaskStore(store))

	testCases := []struct {
		name      string
		taskID    a2a.TaskID
		contextID string
	}{
		{name: "terminal task", taskID: completed.ID},
		{name: "context mismatch", taskID: working.ID, contextID: "other-context"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := newUserMessage(t, "more")
			msg.TaskID, msg.ContextID = tc.taskID, tc.contextID
			_, err := handler.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: msg})
			if !errors.Is(err, a2a.ErrInvalidParams) {
				t.Errorf("SendMessage() error = %v, want %v", err, a2a.ErrInvalidParams)
			}
			if got := store.MustGet(t, tc.taskID); len(got.History) != 1 {
				t.Errorf("len(task.History) = %d, want 1", len(got.History))
			}
		})
	}
}

func TestRequestHandler_SendStreamingMessage(t *testing.T) {
	executor := &mockAgentExecutor{
		StreamFunc: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
			updater := NewTaskUpdater(execCtx, testAgentID, q)
			id, err := updater.AddArtifact(ctx, "results", a2a.NewTextPart("first"))
			if err != nil {
				return err
			}
			if err := updater.AppendArtifact(ctx, id, a2a.NewTextPart("second")); err != nil {
				return err
			}
			return updater.Complete(ctx, "done")
		},
	}
	handler := NewHandler(executor)

	events, err := collectEvents(t, handler, &a2a.SendMessageRequest{Message: newUserMessage(t, "hello")})
	if err != nil {
		t.Fatalf("SendStreamingMessage() error = %v", err)
	}

	want := []string{"working", "artifact:results", "artifact:results", "completed"}
	if diff := cmp.Diff(want, eventStates(events)); diff != "" {
		t.Errorf("SendStreamingMessage() events mismatch (-want +got):\n%s", diff)
	}
	if !a2a.IsFinal(events[len(events)-1]) {
		t.Errorf("last event = %v, want final", events[len(events)-1])
	}
	for _, event := range events {
		if event.TaskInfo().TaskID != events[0].TaskInfo().TaskID {
			t.Errorf("event %v belongs to a different task", event)
		}
	}
}

func TestRequestHandler_SendStreamingMessageCapabilityCheck(t *testing.T) {
	handler := NewHandler(&mockAgentExecutor{}, WithCapabilityChecks(&a2a.AgentCapabilities{Streaming: false}))

	_, err := collectEvents(t, handler, &a2a.SendMessageRequest{Message: newUserMessage(t, "hello")})
	if !errors.Is(err, a2a.ErrUnsupportedOperation) {
		t.Errorf("SendStreamingMessage() error = %v, want %v", err, a2a.ErrUnsupportedOperation)
	}
}

func TestRequestHandler_AgentFailures(t *testing.T) {
	testCases := []struct {
		name     string
		execute  func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error
		wantText string
	}{
		{
			name: "error before events",
			execute: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
				return errors.New("model unavailable")
			},
			wantText: "model unavailable",
		},
		{
			name: "error after artifact",
			execute: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
				if _, err := NewTaskUpdater(execCtx, testAgentID, q).AddArtifact(ctx, "partial", a2a.NewTextPart("x")); err != nil {
					return err
				}
				return errors.New("search failed")
			},
			wantText: "search failed",
		},
		{
			name: "panic",
			execute: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
				panic("boom")
			},
			wantText: "event producer panic: boom",
		},
		{
			name: "explicit failure",
			execute: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
				return NewTaskUpdater(execCtx, testAgentID, q).Fail(ctx, errors.New("invalid JSON"))
			},
			wantText: "invalid JSON",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(&mockAgentExecutor{ExecuteFunc: tc.execute}, WithAgentID(testAgentID))

			events, err := collectEvents(t, handler, &a2a.SendMessageRequest{Message: newUserMessage(t, "hello")})
			if err != nil {
				t.Fatalf("SendStreamingMessage() error = %v", err)
			}
			last, ok := events[len(events)-1].(*a2a.TaskStatusUpdateEvent)
			if !ok || last.Status.State != a2a.TaskStateFailed || !last.Final {
				t.Fatalf("last event = %v, want a final failed status", events[len(events)-1])
			}
			if got := last.Status.Message.Text(); got != tc.wantText {
				t.Errorf("failed status message = %q, want %q", got, tc.wantText)
			}

			task, err := handler.GetTask(t.Context(), &a2a.GetTaskRequest{ID: last.TaskID})
			if err != nil {
				t.Fatalf("GetTask() error = %v", err)
			}
			if task.Status.State != a2a.TaskStateFailed {
				t.Errorf("stored task state = %q, want %q", task.Status.State, a2a.TaskStateFailed)
			}
		})
	}
}

func TestRequestHandler_GetTask(t *testing.T) {
	task := newStoredTask(t, a2a.TaskStateWorking, "one", "two", "three")
	store := testutil.NewTestTaskStore().WithTasks(t, task)
	handler := NewHandler(&mockAgentExecutor{}, WithTaskStore(store))

	testCases := []struct {
		name          string
		historyLength *int
		wantHistory   []string
	}{
		{name: "full history", wantHistory: []string{"one", "two", "three"}},
		{name: "zero length", historyLength: utils.Ptr(0), wantHistory: []string{}},
		{name: "trimmed", historyLength: utils.Ptr(2), wantHistory: []string{"two", "three"}},
		{name: "longer than history", historyLength: utils.Ptr(10), wantHistory: []string{"one", "two", "three"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := handler.GetTask(t.Context(), &a2a.GetTaskRequest{ID: task.ID, HistoryLength: tc.historyLength})
			if err != nil {
				t.Fatalf("GetTask() error = %v", err)
			}
			history := []string{}
			for _, m := range got.History {
				history = append(history, m.Text())
			}
			if diff := cmp.Diff(tc.wantHistory, history); diff != "" {
				t.Errorf("GetTask() history mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if stored := store.MustGet(t, task.ID); len(stored.History) != 3 {
		t.Errorf("stored history was trimmed to %d messages", len(stored.History))
	}
}

func TestRequestHandler_GetTaskErrors(t *testing.T) {
	storeErr := errors.New("db down")
	testCases := []struct {
		name    string
		store   *testutil.TestTaskStore
		req     *a2a.GetTaskRequest
		wantErr error
	}{
		{name: "missing id", store: testutil.NewTestTaskStore(), req: &a2a.GetTaskRequest{}, wantErr: a2a.ErrInvalidParams},
		{name: "not found", store: testutil.NewTestTaskStore(), req: &a2a.GetTaskRequest{ID: "missing"}, wantErr: a2a.ErrTaskNotFound},
		{name: "store error", store: testutil.NewTestTaskStore().SetGetOverride(nil, false, storeErr), req: &a2a.GetTaskRequest{ID: "t1"}, wantErr: storeErr},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(&mockAgentExecutor{}, WithTaskStore(tc.store))
			if _, err := handler.GetTask(t.Context(), tc.req); !errors.Is(err, tc.wantErr) {
				t.Errorf("GetTask() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRequestHandler_CancelTask(t *testing.T) {
	working := newStoredTask(t, a2a.TaskStateWorking, "hello")
	completed := newStoredTask(t, a2a.TaskStateCompleted, "hello")
	store := testutil.NewTestTaskStore().WithTasks(t, working, completed)
	handler := NewHandler(&mockAgentExecutor{}, WithTaskStore(store))

	testCases := []struct {
		name      string
		id        a2a.TaskID
		wantState a2a.TaskState
		wantErr   error
	}{
		{name: "working task", id: working.ID, wantState: a2a.TaskStateCanceled},
		{name: "terminal task is returned as is", id: completed.ID, wantState: a2a.TaskStateCompleted},
		{name: "unknown task", id: "missing", wantErr: a2a.ErrTaskNotFound},
		{name: "missing id", wantErr: a2a.ErrInvalidParams},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			task, err := handler.CancelTask(t.Context(), &a2a.CancelTaskRequest{ID: tc.id})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("CancelTask() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CancelTask() error = %v", err)
			}
			if task.Status.State != tc.wantState {
				t.Errorf("CancelTask() state = %q, want %q", task.Status.State, tc.wantState)
			}
			if stored := store.MustGet(t, tc.id); stored.Status.State != tc.wantState {
				t.Errorf("stored state = %q, want %q", stored.Status.State, tc.wantState)
			}
		})
	}
}

func TestRequestHandler_CancelRunningExecution(t *testing.T) {
	started := make(chan struct{})
	executor := &mockAgentExecutor{
		StreamFunc: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
			if err := NewTaskUpdater(execCtx, testAgentID, q).StartWork(ctx); err != nil {
				return err
			}
			close(started)
			time.Sleep(50 * time.Millisecond)
			return NewTaskUpdater(execCtx, testAgentID, q).Complete(ctx, "too late")
		},
	}
	handler := NewHandler(executor)

	var states []string
	var canceled *a2a.Task
	for event, err := range handler.SendStreamingMessage(t.Context(), &a2a.SendMessageRequest{Message: newUserMessage(t, "hello")}) {
		if err != nil {
			t.Fatalf("SendStreamingMessage() error = %v", err)
		}
		states = append(states, eventStates([]a2a.Event{event})...)
		if canceled != nil {
			continue
		}
		<-started
		canceled, err = handler.CancelTask(t.Context(), &a2a.CancelTaskRequest{ID: event.TaskInfo().TaskID})
		if err != nil {
			t.Fatalf("CancelTask() error = %v", err)
		}
	}

	if canceled == nil || canceled.Status.State != a2a.TaskStateCanceled {
		t.Errorf("CancelTask() = %v, want a canceled task", canceled)
	}
	if diff := cmp.Diff([]string{"working", "canceled"}, states); diff != "" {
		t.Errorf("SendStreamingMessage() events mismatch (-want +got):\n%s", diff)
	}
}

// syncBuffer is written by execution goroutines while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func TestRequestHandler_LogAttributes(t *testing.T) {
	var buf syncBuffer
	executor := &mockAgentExecutor{ExecuteFunc: func(ctx context.Context, execCtx *ExecutorContext, q eventqueue.Writer) error {
		log.Info(ctx, "executing")
		updater := NewTaskUpdater(execCtx, testAgentID, q)
		if len(execCtx.Task.History) == 1 {
			return updater.RequireInput(ctx, "What is your budget?", "budget")
		}
		return updater.Complete(ctx, "Found it")
	}}
	h := NewHandler(executor, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	msg := newUserMessage(t, "buy a laptop")
	first, err := h.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: msg})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	attrs := loggedAttrs(t, buf.String(), "executing")
	for _, key := range []string{"task_id", "context_id"} {
		if v, ok := attrs[key]; ok {
			t.Errorf("new task logged %s = %q, want it omitted", key, v)
		}
	}
	if attrs["message_id"] != msg.ID {
		t.Errorf("message_id = %v, want %s", attrs["message_id"], msg.ID)
	}

	buf.Reset()
	reply := newUserMessage(t, "1000")
	reply.TaskID, reply.ContextID = first.ID, first.ContextID
	if _, err := h.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: reply}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	attrs = loggedAttrs(t, buf.String(), "executing")
	if attrs["task_id"] != string(first.ID) || attrs["context_id"] != first.ContextID {
		t.Errorf("follow-up logged (%v, %v), want (%s, %s)", attrs["task_id"], attrs["context_id"], first.ID, first.ContextID)
	}
}

// loggedAttrs returns the a2a group of the first JSON log record with the message.
func loggedAttrs(t *testing.T, output, msg string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("json.Unmarshal(%q) error = %v", line, err)
		}
		if record["msg"] != msg {
			continue
		}
		attrs, ok := record["a2a"].(map[string]any)
		if !ok {
			t.Fatalf("record %v has no a2a group", record)
		}
		return attrs
	}
	t.Fatalf("no %q record in %q", msg, output)
	return nil
}
