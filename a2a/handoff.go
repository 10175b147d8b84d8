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

package a2a

import (
	"maps"
	"slices"
)

// Status update metadata keys used for agent-to-agent coordination.
const (
	// MetaForwardTo holds the identifier of the agent a task should be handed off to.
	MetaForwardTo = "forward_to"
	// MetaForwardContent holds the content of the message sent to the next agent.
	MetaForwardContent = "forward_content"
	// MetaContextFacts holds facts which should be merged into [Task.Context].
	MetaContextFacts = "context"
	// MetaAwaitingAttribute holds the name of the attribute an agent asked the user about.
	MetaAwaitingAttribute = "awaiting_attribute"
)

// Handoff is an instruction to route the task to another agent with new content.
type Handoff struct {
	To      AgentID
	Content string
}

// SetHandoff attaches a forwarding instruction to the event.
func (e *TaskStatusUpdateEvent) SetHandoff(h Handoff) {
	e.SetMeta(MetaForwardTo, string(h.To))
	e.SetMeta(MetaForwardContent, h.Content)
}

// HandoffFrom extracts a forwarding instruction from the event. Both the target and the content
// must be present for the instruction to be valid.
func HandoffFrom(e *TaskStatusUpdateEvent) (Handoff, bool) {
	if e == nil || e.Metadata == nil {
		return Handoff{}, false
	}
	to, _ := e.Metadata[MetaForwardTo].(string)
	content, _ := e.Metadata[MetaForwardContent].(string)
	if to == "" || content == "" {
		return Handoff{}, false
	}
	return Handoff{To: AgentID(to), Content: content}, true
}

// SetContextFacts attaches facts which should be merged into the task context.
func (e *TaskStatusUpdateEvent) SetContextFacts(facts map[string]any) {
	if len(facts) == 0 {
		return
	}
	e.SetMeta(MetaContextFacts, maps.Clone(facts))
}

// ContextFactsFrom returns the facts attached to the event.
func ContextFactsFrom(e *TaskStatusUpdateEvent) map[string]any {
	if e == nil || e.Metadata == nil {
		return nil
	}
	facts, _ := e.Metadata[MetaContextFacts].(map[string]any)
	return facts
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
