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

package sse

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	w.WriteHeaders()
	if err := w.WriteData(t.Context(), []byte(`{"result":1}`)); err != nil {
		t.Fatalf("WriteData() error = %v", err)
	}
	if err := w.WriteKeepAlive(t.Context()); err != nil {
		t.Fatalf("WriteKeepAlive() error = %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != ContentEventStream {
		t.Fatalf("Content-Type = %q, want %q", got, ContentEventStream)
	}
	want := "data: {\"result\":1}\r\n\r\n: keep-alive\r\n\r\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestParseDataStream(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "crlf frames",
			input: "data: {\"a\":1}\r\n\r\ndata: {\"a\":2}\r\n\r\n",
			want:  []string{`{"a":1}`, `{"a":2}`},
		},
		{
			name:  "lf frames with ids and comments",
			input: "id: 1\ndata: {\"a\":1}\n\n: keep-alive\n\nid: 2\ndata:{\"a\":2}\n\n",
			want:  []string{`{"a":1}`, `{"a":2}`},
		},
		{
			name:  "empty stream",
			input: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for data, err := range ParseDataStream(strings.NewReader(tc.input)) {
				if err != nil {
					t.Fatalf("ParseDataStream() error = %v", err)
				}
				got = append(got, string(data))
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ParseDataStream() wrong result (+got,-want) diff = %s", diff)
			}
		})
	}
}
