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

package shopping

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/llm"
	"github.com/a2aproject/a2a-orchestrator/search"
)

func newTestHandler(opts ...Option) a2asrv.RequestHandler {
	agent := New(search.NewStatic(search.DemoCatalog()...), opts...)
	return a2asrv.NewHandler(agent, a2asrv.WithAgentID(AgentID))
}

func mustSend(t *testing.T, h a2asrv.RequestHandler, taskID a2a.TaskID, text string) *a2a.Task {
	t.Helper()
	msg, err := a2a.NewMessage(a2a.AgentUser, AgentID, text)
	if err != nil {
		t.Fatalf("a2a.NewMessage() error = %v", err)
	}
	msg.TaskID = taskID
	task, err := h.SendMessage(t.Context(), &a2a.SendMessageRequest{Message: msg})
	if err != nil {
		t.Fatalf("SendMessage(%q) error = %v", text, err)
	}
	return task
}

func awaitedAttribute(task *a2a.Task) string {
	if task.Status.Message == nil {
		return ""
	}
	attr, _ := task.Status.Message.Metadata[a2a.MetaAwaitingAttribute].(string)
	return attr
}

func resultsOf(t *testing.T, task *a2a.Task) []search.Result {
	t.Helper()
	var results []search.Result
	for _, artifact := range task.Artifacts {
		if artifact.Name != ArtifactName {
			continue
		}
		for _, p := range artifact.Parts {
			data, ok := p.(a2a.DataPart)
			if !ok {
				t.Fatalf("artifact part is %T, want a data part", p)
			}
			raw, err := json.Marshal(data.Data)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			var r search.Result
			if err := json.Unmarshal(raw, &r); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}
			results = append(results, r)
		}
	}
	return results
}

func TestExecutor_AsksForMissingBudget(t *testing.T) {
	h := newTestHandler()

	task := mustSend(t, h, "", "I want to buy a laptop")

	if task.Status.State != a2a.TaskStateWorking {
		t.Fatalf("task state = %q, want working", task.Status.State)
	}
	if got := awaitedAttribute(task); got != AttrBudget {
		t.Errorf("awaited attribute = %q, want %q", got, AttrBudget)
	}
	if got := task.Status.Message.Text(); got != "What is your budget?" {
		t.Errorf("question = %q, want the budget question", got)
	}
	if diff := cmp.Diff(a2a.TaskContext{AttrProduct: "laptop"}, task.Context); diff != "" {
		t.Errorf("task context mismatch (-want +got):\n%s", diff)
	}
	if len(task.Artifacts) != 0 {
		t.Errorf("task has %d artifacts before the search, want 0", len(task.Artifacts))
	}
}

func TestExecutor_MultiTurn(t *testing.T) {
	h := newTestHandler()

	task := mustSend(t, h, "", "Hi, I need something new")
	if got := awaitedAttribute(task); got != AttrProduct {
		t.Fatalf("awaited attribute = %q, want %q", got, AttrProduct)
	}

	task = mustSend(t, h, task.ID, "a laptop")
	if got := awaitedAttribute(task); got != AttrBudget {
		t.Fatalf("awaited attribute = %q, want %q", got, AttrBudget)
	}

	task = mustSend(t, h, task.ID, "3000")
	if task.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("task state = %q, want completed", task.Status.State)
	}
	results := resultsOf(t, task)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 laptops within budget", len(results))
	}
	for _, r := range results {
		if r.Price == nil || *r.Price > 3000 {
			t.Errorf("result %q price = %v, want at most 3000", r.Name, r.Price)
		}
	}
	if debug := task.Status.Message.Debug; debug == nil || debug.ToolUsed != "search" {
		t.Errorf("summary debug = %+v, want toolUsed search", debug)
	}
	if len(task.History) != 6 {
		t.Errorf("history length = %d, want 6 (3 user messages, 2 questions, the summary)", len(task.History))
	}
}

func TestExecutor_DoesNotAskTwice(t *testing.T) {
	h := newTestHandler()

	task := mustSend(t, h, "", "I want to buy a laptop")
	task = mustSend(t, h, task.ID, "not sure yet")

	if task.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("task state = %q, want completed after the question was answered", task.Status.State)
	}
	if got := task.Context.String(AttrBudget); got != "not sure yet" {
		t.Errorf("budget = %q, want the verbatim answer", got)
	}
	if got := len(resultsOf(t, task)); got != search.DefaultLimit {
		t.Errorf("got %d results, want %d", got, search.DefaultLimit)
	}
}

func TestExecutor_CompleteRequest(t *testing.T) {
	h := newTestHandler()
	msg, err := a2a.NewMessage(a2a.AgentUser, AgentID, "I'm looking for a laptop under 3000.")
	if err != nil {
		t.Fatalf("a2a.NewMessage() error = %v", err)
	}

	var artifacts []*a2a.TaskArtifactUpdateEvent
	var last a2a.Event
	for event, err := range h.SendStreamingMessage(t.Context(), &a2a.SendMessageRequest{Message: msg}) {
		if err != nil {
			t.Fatalf("SendStreamingMessage() error = %v", err)
		}
		if a, ok := event.(*a2a.TaskArtifactUpdateEvent); ok {
			artifacts = append(artifacts, a)
		}
		last = event
	}

	if len(artifacts) != 3 {
		t.Fatalf("got %d artifact events, want one per result", len(artifacts))
	}
	for i, a := range artifacts {
		if a.Append != (i > 0) {
			t.Errorf("artifacts[%d].Append = %v, want %v", i, a.Append, i > 0)
		}
		if a.Artifact.ID != artifacts[0].Artifact.ID {
			t.Errorf("artifacts[%d] ID = %s, want %s", i, a.Artifact.ID, artifacts[0].Artifact.ID)
		}
		if a.LastChunk != (i == len(artifacts)-1) {
			t.Errorf("artifacts[%d].LastChunk = %v", i, a.LastChunk)
		}
	}
	status, ok := last.(*a2a.TaskStatusUpdateEvent)
	if !ok || status.Status.State != a2a.TaskStateCompleted {
		t.Errorf("last event = %v, want a completed status", last)
	}
}

func TestExecutor_CompletionExtractor(t *testing.T) {
	h := newTestHandler(WithCompleter(llm.Static("```json\n{\"product\": \"gaming mouse\", \"budget\": null}\n```")))

	task := mustSend(t, h, "", "something for my desk setup")

	if got := task.Context.String(AttrProduct); got != "gaming mouse" {
		t.Errorf("product = %q, want gaming mouse", got)
	}
	if got := awaitedAttribute(task); got != AttrBudget {
		t.Errorf("awaited attribute = %q, want %q", got, AttrBudget)
	}
}

func TestExecutor_SearchFailure(t *testing.T) {
	failing := search.SearcherFunc(func(context.Context, string, int) ([]search.Result, error) {
		return nil, errors.New("backend unavailable")
	})
	h := a2asrv.NewHandler(New(failing), a2asrv.WithAgentID(AgentID))

	task := mustSend(t, h, "", "laptop under 2000")

	if task.Status.State != a2a.TaskStateFailed {
		t.Fatalf("task state = %q, want failed", task.Status.State)
	}
	if got := task.Status.Message.Text(); got != "product search failed: backend unavailable" {
		t.Errorf("failure message = %q", got)
	}
}

func TestExecutor_NumbersWithoutBudgetCue(t *testing.T) {
	testCases := []struct {
		text        string
		wantProduct string
	}{
		{text: "I want to buy an iPhone 15", wantProduct: "iphone"},
		{text: "I want to buy 2 laptops", wantProduct: "laptop"},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			h := newTestHandler()

			task := mustSend(t, h, "", tc.text)

			if got := awaitedAttribute(task); got != AttrBudget {
				t.Fatalf("awaited attribute = %q, want %q", got, AttrBudget)
			}
			if diff := cmp.Diff(a2a.TaskContext{AttrProduct: tc.wantProduct}, task.Context); diff != "" {
				t.Errorf("task context mismatch (-want +got):\n%s", diff)
			}

			task = mustSend(t, h, task.ID, "4 000")
			if task.Status.State != a2a.TaskStateCompleted {
				t.Fatalf("task state = %q, want completed", task.Status.State)
			}
			if got, _ := budgetOf(task.Context); got != 4000 {
				t.Errorf("budget = %v, want 4000", got)
			}
		})
	}
}

func TestParseBudget(t *testing.T) {
	testCases := []struct {
		text   string
		bare   bool
		want   float64
		wantOK bool
	}{
		{text: "under 3000 zł", want: 3000, wantOK: true},
		{text: "around 3 000", want: 3000, wantOK: true},
		{text: "2500,50 PLN", want: 2500.5, wantOK: true},
		{text: "max 4k", want: 4000, wantOK: true},
		{text: "my budget is 1200", want: 1200, wantOK: true},
		{text: "laptop do 2500 zł", want: 2500, wantOK: true},
		{text: "$800 headphones", want: 800, wantOK: true},
		{text: "iPhone 15 for 4000 zł", want: 4000, wantOK: true},
		{text: "iPhone 15", wantOK: false},
		{text: "2 laptops", wantOK: false},
		{text: "cheap please", wantOK: false},
		{text: "3000", bare: true, want: 3000, wantOK: true},
		{text: "1 500", bare: true, want: 1500, wantOK: true},
		{text: "not sure yet", bare: true, wantOK: false},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := parseBudget(tc.text, tc.bare)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("parseBudget(%q, %v) = (%v, %v), want (%v, %v)", tc.text, tc.bare, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestCard(t *testing.T) {
	if err := Card("http://localhost:8002").Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
