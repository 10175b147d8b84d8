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

package anthropic

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a2aproject/a2a-orchestrator/llm"
)

func newTestServer(t *testing.T, blocks []map[string]any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         string(DefaultModel),
			"content":       blocks,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 3, "output_tokens": 2},
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCompleter_Complete(t *testing.T) {
	url := newTestServer(t, []map[string]any{
		{"type": "text", "text": `{"intent":`},
		{"type": "text", "text": `"general"}`},
	})
	c := New(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = url
	})

	got, err := c.Complete(t.Context(), "classify")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if want := `{"intent":"general"}`; got != want {
		t.Errorf("Complete() = %q, want %q", got, want)
	}
}

func TestCompleter_EmptyCompletion(t *testing.T) {
	c := New(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = newTestServer(t, []map[string]any{})
	})

	if _, err := c.Complete(t.Context(), "classify"); !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Errorf("Complete() error = %v, want %v", err, llm.ErrEmptyCompletion)
	}
}
