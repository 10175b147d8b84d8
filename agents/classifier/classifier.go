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

// Package classifier implements an agent which recognizes the intent of a user message.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/llm"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// AgentID identifies the classifier agent.
const AgentID a2a.AgentID = "classifier"

// ArtifactName is the name of the artifact holding the [Classification].
const ArtifactName = "classifier_response"

// Supported intents.
const (
	IntentShopping = "shopping"
	IntentGeneral  = "general"
	IntentWishlist = "wishlist"
)

// ErrMalformedResponse is returned when a completion can't be decoded into a [Classification].
var ErrMalformedResponse = errors.New("malformed classifier response")

// Classification is the structured result of analyzing a user message.
type Classification struct {
	Intent      string   `json:"intent"`
	Needs       []string `json:"needs"`
	Confidence  float64  `json:"confidence"`
	MissingInfo []string `json:"missing_info"`
}

// Validate checks the intent is known and the confidence is a probability.
func (c *Classification) Validate() error {
	if !slices.Contains([]string{IntentShopping, IntentGeneral, IntentWishlist}, c.Intent) {
		return fmt.Errorf("unknown intent %q", c.Intent)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %v is out of range", c.Confidence)
	}
	return nil
}

const promptTemplate = `Analyze the user message and determine their intent and needs.
Respond only with JSON in the following format:
{"intent": "shopping|general|wishlist", "needs": ["list", "of", "needs"], "confidence": 0.95, "missing_info": ["information", "to", "ask", "about"]}

Examples:
Message: Hello
{"intent": "general", "needs": [], "confidence": 0.98, "missing_info": []}
Message: I want to buy a laptop
{"intent": "shopping", "needs": ["laptop"], "confidence": 0.9, "missing_info": ["budget"]}

` + messageMarker

const messageMarker = "Message: "

// Prompt returns the completion prompt for a user message.
func Prompt(text string) string {
	return promptTemplate + text
}

// Option configures an [Executor].
type Option func(*Executor)

// WithHandoff makes the classifier hand shopping and wishlist requests off to the target agent
// instead of completing the task.
func WithHandoff(target a2a.AgentID) Option {
	return func(e *Executor) {
		e.handoffTo = target
	}
}

// Executor is an [a2asrv.AgentExecutor] which classifies the latest message with a single completion.
type Executor struct {
	completer llm.Completer
	handoffTo a2a.AgentID
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

// New creates a classifier. A nil completer means [Heuristic] is used.
func New(completer llm.Completer, opts ...Option) *Executor {
	if completer == nil {
		completer = Heuristic()
	}
	e := &Executor{completer: completer}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute implements [a2asrv.AgentExecutor].
func (e *Executor) Execute(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return e.run(ctx, execCtx, q)
}

// Stream implements [a2asrv.AgentExecutor]. The classification is a single artifact, so streaming
// produces the same events as Execute.
func (e *Executor) Stream(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return e.run(ctx, execCtx, q)
}

// Cancel implements [a2asrv.AgentExecutor].
func (e *Executor) Cancel(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return a2asrv.NewTaskUpdater(execCtx, AgentID, q).Cancel(ctx)
}

func (e *Executor) run(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	updater := a2asrv.NewTaskUpdater(execCtx, AgentID, q)
	if err := updater.StartWork(ctx); err != nil {
		return err
	}

	text := execCtx.Message.Text()
	completion, err := e.completer.Complete(ctx, Prompt(text))
	if err != nil {
		log.Warn(ctx, "classification completion failed", "error", err)
		return updater.Fail(ctx, fmt.Errorf("classification failed: %w", err))
	}

	result, err := Parse(completion)
	if err != nil {
		log.Warn(ctx, "malformed classification", "error", err, "payload", completion)
		return updater.Fail(ctx, err)
	}
	log.Info(ctx, "message classified", "intent", result.Intent, "confidence", result.Confidence)

	if _, err := updater.AddArtifact(ctx, ArtifactName, a2a.NewDataPart(result)); err != nil {
		return err
	}

	if e.handoffTo != "" && (result.Intent == IntentShopping || result.Intent == IntentWishlist) {
		msg := updater.NewMessage(fmt.Sprintf("Detected a %s request, forwarding to the %s agent.", result.Intent, e.handoffTo))
		msg.Debug = &a2a.DebugInfo{Sender: AgentID, Receiver: msg.Receiver, AgentUsed: AgentID, ToolUsed: "llm"}
		event := a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateWorking, msg)
		event.Final = true
		event.SetHandoff(a2a.Handoff{To: e.handoffTo, Content: text})
		event.SetContextFacts(map[string]any{"intent": result.Intent})
		return updater.Publish(ctx, event)
	}

	msg := updater.NewMessage(summary(result))
	msg.Debug = &a2a.DebugInfo{Sender: AgentID, Receiver: msg.Receiver, AgentUsed: AgentID, ToolUsed: "llm"}
	return updater.Publish(ctx, a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateCompleted, msg))
}

func summary(c *Classification) string {
	if len(c.Needs) == 0 {
		return fmt.Sprintf("Intent: %s (confidence %.2f).", c.Intent, c.Confidence)
	}
	return fmt.Sprintf("Intent: %s (confidence %.2f), needs: %s.", c.Intent, c.Confidence, strings.Join(c.Needs, ", "))
}

// Parse decodes a completion into a validated [Classification]. Code fences and minor syntax
// errors are tolerated, unknown fields and wrong types are not.
func Parse(completion string) (*Classification, error) {
	payload := llm.StripCodeFence(completion)
	result, err := decode(payload)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedResponse, completion)
		}
		if result, err = decode(repaired); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedResponse, completion)
		}
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w: %q", ErrMalformedResponse, err, completion)
	}
	if result.Needs == nil {
		result.Needs = []string{}
	}
	if result.MissingInfo == nil {
		result.MissingInfo = []string{}
	}
	return result, nil
}

func decode(payload string) (*Classification, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	var result Classification
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after the classification")
	}
	return &result, nil
}

// FromArtifact extracts the [Classification] from a classifier_response artifact.
func FromArtifact(artifact *a2a.Artifact) (*Classification, error) {
	if artifact == nil || artifact.Name != ArtifactName {
		return nil, fmt.Errorf("not a %s artifact", ArtifactName)
	}
	for _, p := range artifact.Parts {
		data, ok := p.(a2a.DataPart)
		if !ok {
			continue
		}
		raw, err := json.Marshal(data.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode artifact data: %w", err)
		}
		return Parse(string(raw))
	}
	return nil, fmt.Errorf("%s artifact has no data part", ArtifactName)
}
