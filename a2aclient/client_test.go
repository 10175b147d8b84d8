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

package a2aclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/internal/jsonrpc"
	"github.com/a2aproject/a2a-orchestrator/internal/sse"
	"github.com/a2aproject/a2a-orchestrator/internal/testutil/testexecutor"
	"github.com/google/go-cmp/cmp"
)

const testAgentID a2a.AgentID = "test-agent"

func newAgentServer(t *testing.T, executor a2asrv.AgentExecutor, wrap func(http.Handler) http.Handler) string {
	t.Helper()
	handler := a2asrv.NewHandler(executor, a2asrv.WithAgentID(testAgentID))
	mux := http.NewServeMux()
	mux.Handle("/", a2asrv.NewJSONRPCHandler(handler))
	mux.Handle(a2asrv.ChatPath, a2asrv.NewChatHandler(handler, testAgentID))
	var h http.Handler = mux
	if wrap != nil {
		h = wrap(mux)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func mustNewMessage(t *testing.T, content string) *a2a.Message {
	t.Helper()
	msg, err := a2a.NewMessage(a2a.AgentUser, testAgentID, content)
	if err != nil {
		t.Fatalf("a2a.NewMessage() error = %v", err)
	}
	return msg
}

func countingFailures(failures int32, status int, counter *atomic.Int32) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if counter.Add(1) <= failures {
				w.WriteHeader(status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestClient_SendMessage(t *testing.T) {
	url := newAgentServer(t, testexecutor.Replying(testAgentID, "hello back"), nil)
	client := NewClient(url)

	task, err := client.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})
	if err != nil {
		t.Fatalf("client.SendMessage() error = %v", err)
	}
	if task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("client.SendMessage() state = %q, want %q", task.Status.State, a2a.TaskStateCompleted)
	}
	if got := task.ResponseText(); got != "hello back" {
		t.Errorf("task.ResponseText() = %q, want %q", got, "hello back")
	}

	got, err := client.GetTask(t.Context(), &a2a.GetTaskRequest{ID: task.ID})
	if err != nil {
		t.Fatalf("client.GetTask() error = %v", err)
	}
	if got.ID != task.ID || len(got.History) == 0 {
		t.Errorf("client.GetTask() = %+v, want task %s with history", got, task.ID)
	}
}

func TestClient_SendStreamingMessage(t *testing.T) {
	executor := testexecutor.FromFunction(func(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
		updater := a2asrv.NewTaskUpdater(execCtx, testAgentID, q)
		if err := updater.StartWork(ctx); err != nil {
			return err
		}
		if _, err := updater.AddArtifact(ctx, "result", a2a.NewTextPart("partial")); err != nil {
			return err
		}
		return updater.Complete(ctx, "done")
	})
	client := NewClient(newAgentServer(t, executor, nil))

	var kinds []string
	for event, err := range client.SendStreamingMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "go")}) {
		if err != nil {
			t.Fatalf("client.SendStreamingMessage() error = %v", err)
		}
		switch v := event.(type) {
		case *a2a.TaskStatusUpdateEvent:
			kinds = append(kinds, string(v.Status.State))
		case *a2a.TaskArtifactUpdateEvent:
			kinds = append(kinds, "artifact:"+v.Artifact.Name)
		}
	}

	want := []string{"working", "artifact:result", "completed"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("client.SendStreamingMessage() wrong events (-want +got) diff = %s", diff)
	}
}

func TestClient_ProtocolErrors(t *testing.T) {
	client := NewClient(newAgentServer(t, testexecutor.Replying(testAgentID, "ok"), nil))

	if _, err := client.GetTask(t.Context(), &a2a.GetTaskRequest{ID: "missing"}); !errors.Is(err, a2a.ErrTaskNotFound) {
		t.Errorf("client.GetTask() error = %v, want %v", err, a2a.ErrTaskNotFound)
	}
	if _, err := client.CancelTask(t.Context(), &a2a.CancelTaskRequest{ID: "missing"}); !errors.Is(err, a2a.ErrTaskNotFound) {
		t.Errorf("client.CancelTask() error = %v, want %v", err, a2a.ErrTaskNotFound)
	}
}

func TestClient_ProtocolErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req jsonrpc.ClientRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := jsonrpc.ClientResponse{JSONRPC: "2.0", ID: req.ID, Error: &jsonrpc.Error{Code: -32001, Message: "task not found"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, WithRetryPolicy(3, time.Millisecond))
	_, err := client.GetTask(t.Context(), &a2a.GetTaskRequest{ID: "missing"})
	if !errors.Is(err, a2a.ErrTaskNotFound) {
		t.Fatalf("client.GetTask() error = %v, want %v", err, a2a.ErrTaskNotFound)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestClient_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	url := newAgentServer(t, testexecutor.Replying(testAgentID, "ok"), countingFailures(1, http.StatusServiceUnavailable, &calls))
	client := NewClient(url, WithRetryPolicy(2, time.Millisecond))

	task, err := client.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})
	if err != nil {
		t.Fatalf("client.SendMessage() error = %v", err)
	}
	if task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("client.SendMessage() state = %q, want %q", task.Status.State, a2a.TaskStateCompleted)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestClient_CommunicationFailure(t *testing.T) {
	var calls atomic.Int32
	url := newAgentServer(t, testexecutor.Replying(testAgentID, "ok"), countingFailures(100, http.StatusBadGateway, &calls))
	client := NewClient(url, WithRetryPolicy(2, time.Millisecond))

	_, err := client.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})
	if !errors.Is(err, a2a.ErrAgentCommunication) {
		t.Fatalf("client.SendMessage() error = %v, want %v", err, a2a.ErrAgentCommunication)
	}
	if !strings.Contains(err.Error(), "communication error") {
		t.Errorf("client.SendMessage() error = %q, want it to mention a communication error", err.Error())
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestClient_StreamingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, WithRetryPolicy(2, time.Millisecond))
	var events []a2a.Event
	var errs []error
	for event, err := range client.SendStreamingMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, event)
	}

	if len(events) != 0 {
		t.Errorf("client.SendStreamingMessage() produced %d events, want none", len(events))
	}
	if len(errs) != 1 || !errors.Is(errs[0], a2a.ErrAgentCommunication) {
		t.Fatalf("client.SendStreamingMessage() errors = %v, want a single %v", errs, a2a.ErrAgentCommunication)
	}
}

func collectStream(ctx context.Context, client *Client, req *a2a.SendMessageRequest) ([]a2a.Event, []error) {
	var events []a2a.Event
	var errs []error
	for event, err := range client.SendStreamingMessage(ctx, req) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, event)
	}
	return events, errs
}

func mustMarshalFrame(t *testing.T, event a2a.Event) []byte {
	t.Helper()
	result, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	frame, err := json.Marshal(jsonrpc.ClientResponse{JSONRPC: jsonrpc.Version, ID: "1", Result: result})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return frame
}

func TestClient_UnresponsiveAgent(t *testing.T) {
	testCases := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
		opts    []Option
		wantErr string
	}{
		{
			name: "no response headers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			opts:    []Option{WithConnectTimeout(50 * time.Millisecond)},
			wantErr: "timeout awaiting response headers",
		},
		{
			name: "silent stream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				sseWriter, err := sse.NewWriter(w)
				if err != nil {
					return
				}
				sseWriter.WriteHeaders()
				w.(http.Flusher).Flush()
				<-r.Context().Done()
			},
			opts:    []Option{WithStreamIdleTimeout(50 * time.Millisecond)},
			wantErr: "no data for 50ms",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tc.handler(w, r)
			}))
			t.Cleanup(srv.Close)

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			client := NewClient(srv.URL, append(tc.opts, WithRetryPolicy(2, time.Millisecond))...)
			events, errs := collectStream(ctx, client, &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})

			if len(events) != 0 {
				t.Errorf("client.SendStreamingMessage() produced %d events, want none", len(events))
			}
			if len(errs) != 1 || !errors.Is(errs[0], a2a.ErrAgentCommunication) {
				t.Fatalf("client.SendStreamingMessage() errors = %v, want a single %v", errs, a2a.ErrAgentCommunication)
			}
			if !strings.Contains(errs[0].Error(), tc.wantErr) {
				t.Errorf("client.SendStreamingMessage() error = %q, want it to contain %q", errs[0].Error(), tc.wantErr)
			}
			if got := calls.Load(); got != 2 {
				t.Errorf("server called %d times, want 2", got)
			}
		})
	}
}

func TestClient_SendMessageUnresponsiveAgent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, WithConnectTimeout(50*time.Millisecond), WithRetryPolicy(2, time.Millisecond))
	_, err := client.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})
	if !errors.Is(err, a2a.ErrAgentCommunication) {
		t.Fatalf("client.SendMessage() error = %v, want %v", err, a2a.ErrAgentCommunication)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestClient_StreamBrokenAfterFirstEvent(t *testing.T) {
	working := a2a.NewStatusUpdateEvent(a2a.TaskInfo{TaskID: "task-1", ContextID: "ctx-1"}, a2a.TaskStateWorking, nil)
	frame := mustMarshalFrame(t, working)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		sseWriter, err := sse.NewWriter(w)
		if err != nil {
			return
		}
		sseWriter.WriteHeaders()
		if err := sseWriter.WriteData(r.Context(), frame); err != nil {
			return
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, WithRetryPolicy(3, time.Millisecond))
	events, errs := collectStream(t.Context(), client, &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})

	if len(events) != 1 {
		t.Errorf("client.SendStreamingMessage() produced %d events, want 1", len(events))
	}
	if len(errs) != 1 || !errors.Is(errs[0], a2a.ErrAgentCommunication) {
		t.Fatalf("client.SendStreamingMessage() errors = %v, want a single %v", errs, a2a.ErrAgentCommunication)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestClient_RetryDelayRespectsContext(t *testing.T) {
	var calls atomic.Int32
	url := newAgentServer(t, testexecutor.Replying(testAgentID, "ok"), countingFailures(100, http.StatusBadGateway, &calls))
	client := NewClient(url, WithRetryPolicy(2, time.Hour))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SendMessage(ctx, &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("client.SendMessage() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestClient_Chat(t *testing.T) {
	client := NewClient(newAgentServer(t, testexecutor.Replying(testAgentID, "hi there"), nil))

	resp, err := client.Chat(t.Context(), &a2a.ChatRequest{Content: "hi"})
	if err != nil {
		t.Fatalf("client.Chat() error = %v", err)
	}
	if resp.Response != "hi there" || resp.State != a2a.TaskStateCompleted || resp.TaskID == "" {
		t.Errorf("client.Chat() = %+v, want a completed reply %q", resp, "hi there")
	}

	if _, err := client.Chat(t.Context(), &a2a.ChatRequest{}); !errors.Is(err, a2a.ErrInvalidParams) {
		t.Errorf("client.Chat() with empty content error = %v, want %v", err, a2a.ErrInvalidParams)
	}
}

func TestClient_Headers(t *testing.T) {
	var got atomic.Value
	url := newAgentServer(t, testexecutor.Replying(testAgentID, "ok"), func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got.Store(r.Header.Get("X-Trace"))
			next.ServeHTTP(w, r)
		})
	})

	client := NewClient(url, WithHeader("X-Trace", "abc"))
	if _, err := client.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: mustNewMessage(t, "hello")}); err != nil {
		t.Fatalf("client.SendMessage() error = %v", err)
	}
	if v, _ := got.Load().(string); v != "abc" {
		t.Errorf("X-Trace header = %q, want %q", v, "abc")
	}
}

func TestNewFromCard(t *testing.T) {
	if _, err := NewFromCard(&a2a.AgentCard{Name: "no-url", Version: "0.1.0"}); !errors.Is(err, a2a.ErrInvalidParams) {
		t.Errorf("NewFromCard() error = %v, want %v", err, a2a.ErrInvalidParams)
	}

	card := &a2a.AgentCard{Name: "shopping", Version: "0.1.0", URL: "http://localhost:8002"}
	client, err := NewFromCard(card)
	if err != nil {
		t.Fatalf("NewFromCard() error = %v", err)
	}
	if client.Card() != card || client.URL() != card.URL {
		t.Errorf("NewFromCard() = (%v, %s), want card %v", client.Card(), client.URL(), card)
	}
}
