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

// Package llm defines the text completion collaborator used by agents and helpers
// shared by its implementations.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/a2aproject/a2a-orchestrator/internal/metrics"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// ErrEmptyCompletion is returned when a model produces no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc is a function type implementing [Completer].
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements [Completer].
func (fn CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return fn(ctx, prompt)
}

// Static returns a Completer which answers every prompt with text.
func Static(text string) Completer {
	return CompleterFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

// Instrumented wraps a Completer to log calls and record their duration under the provider label.
func Instrumented(c Completer, provider string, m *metrics.Metrics) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		text, err := c.Complete(ctx, prompt)
		m.ObserveCompletion(provider, time.Since(start), err)
		if err != nil {
			log.Warn(ctx, "completion failed", "provider", provider, "error", err)
			return "", err
		}
		log.Debug(ctx, "completion finished", "provider", provider, "duration", time.Since(start), "length", len(text))
		return text, nil
	})
}

// StripCodeFence removes a markdown code fence models often wrap structured answers in.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
