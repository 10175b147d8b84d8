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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskInfoProvider provides information about the Task.
type TaskInfoProvider interface {
	// TaskInfo returns information about the task.
	TaskInfo() TaskInfo
}

// TaskInfo represents information about the Task and the group of interactions it belongs to.
type TaskInfo struct {
	// TaskID is an id of the task.
	TaskID TaskID
	// ContextID is an id of the interactions group the task belong to.
	ContextID string
}

// TaskInfo implements TaskInfoProvider so that the struct can be passed to core type constructor functions.
func (ti TaskInfo) TaskInfo() TaskInfo {
	return ti
}

// Event is a closed set of types which can be sent over a streaming connection:
// [*TaskStatusUpdateEvent] and [*TaskArtifactUpdateEvent].
type Event interface {
	TaskInfoProvider

	isEvent()
}

func (*TaskStatusUpdateEvent) isEvent()   {}
func (*TaskArtifactUpdateEvent) isEvent() {}

// UnmarshalEvent decodes a kind-tagged event payload.
func UnmarshalEvent(data []byte) (Event, error) {
	type typedEvent struct {
		Kind string `json:"kind"`
	}

	var te typedEvent
	if err := json.Unmarshal(data, &te); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch te.Kind {
	case kindStatusUpdate:
		var statusUpdate TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &statusUpdate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal TaskStatusUpdateEvent: %w", err)
		}
		return &statusUpdate, nil
	case kindArtifactUpdate:
		var artifactUpdate TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &artifactUpdate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal TaskArtifactUpdateEvent: %w", err)
		}
		return &artifactUpdate, nil
	default:
		return nil, fmt.Errorf("unknown event kind: %q", te.Kind)
	}
}

const (
	kindMessage        = "message"
	kindTask           = "task"
	kindStatusUpdate   = "status-update"
	kindArtifactUpdate = "artifact-update"
	kindText           = "text"
	kindData           = "data"
)

// MessageRole represents a set of possible values that identify the message sender.
type MessageRole string

const (
	// MessageRoleUser indicates a message sent by a user or a calling agent.
	MessageRoleUser MessageRole = "user"
	// MessageRoleAgent indicates a message produced by an agent.
	MessageRoleAgent MessageRole = "agent"
)

// DebugInfo records which agent and tool produced or handled a message.
type DebugInfo struct {
	Sender    AgentID `json:"sender,omitempty"`
	Receiver  AgentID `json:"receiver,omitempty"`
	AgentUsed AgentID `json:"agentUsed,omitempty"`
	ToolUsed  string  `json:"toolUsed,omitempty"`
}

// Message represents a single communication turn between a sender and a receiver.
// Messages are never modified after they were added to a Task history.
type Message struct {
	// ID is a unique identifier for the message, typically a UUID, generated by the sender.
	ID string `json:"messageId"`

	// ContextID is the context identifier for this message, used to group related interactions.
	ContextID string `json:"contextId,omitempty"`

	// TaskID is the identifier of the task this message is part of. Can be omitted for the
	// first message of a new task.
	TaskID TaskID `json:"taskId,omitempty"`

	// Role identifies the sender of the message.
	Role MessageRole `json:"role"`

	// Parts is an array of content parts that form the message body.
	Parts ContentParts `json:"parts"`

	// Sender is the identifier of the participant which created the message.
	Sender AgentID `json:"sender,omitempty"`

	// Receiver is the identifier of the participant the message is addressed to.
	Receiver AgentID `json:"receiver,omitempty"`

	// Timestamp is assigned when the message is constructed.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Debug is optional information about the agents involved in producing the message.
	Debug *DebugInfo `json:"debug,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a text message addressed from sender to receiver.
// Sender, receiver and content are required.
func NewMessage(sender, receiver AgentID, content string) (*Message, error) {
	if sender == "" || receiver == "" {
		return nil, NewError(ErrValidation, "message sender and receiver are required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, NewError(ErrValidation, "message content is required")
	}
	role := MessageRoleAgent
	if sender == AgentUser {
		role = MessageRoleUser
	}
	now := time.Now()
	return &Message{
		ID:        NewMessageID(),
		Role:      role,
		Parts:     ContentParts{TextPart{Text: content}},
		Sender:    sender,
		Receiver:  receiver,
		Timestamp: &now,
	}, nil
}

// NewAgentMessage creates a message sent by an agent in the context of the provided task.
func NewAgentMessage(info TaskInfoProvider, sender AgentID, content string) *Message {
	ti := info.TaskInfo()
	now := time.Now()
	return &Message{
		ID:        NewMessageID(),
		ContextID: ti.ContextID,
		TaskID:    ti.TaskID,
		Role:      MessageRoleAgent,
		Parts:     ContentParts{TextPart{Text: content}},
		Sender:    sender,
		Timestamp: &now,
	}
}

// NewMessageID generates a new random message identifier.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Text returns the concatenation of all the text parts of the message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var texts []string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// TaskInfo implements TaskInfoProvider.
func (m *Message) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: m.TaskID, ContextID: m.ContextID}
}

// Validate checks that the message can be processed by an agent.
func (m *Message) Validate() error {
	if m == nil {
		return NewError(ErrValidation, "message is required")
	}
	if len(m.Parts) == 0 {
		return NewError(ErrValidation, "message must contain at least one part")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	type wrapped Message
	type withKind struct {
		Kind string `json:"kind"`
		wrapped
	}
	return json.Marshal(withKind{Kind: kindMessage, wrapped: wrapped(m)})
}

// TaskID is a unique identifier for the task, generated by the server for a new task
// or supplied by a caller.
type TaskID string

// NewTaskID generates a new random task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.Must(uuid.NewV7()).String())
}

// NewContextID generates a new random context identifier.
func NewContextID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// TaskState defines a set of possible task states.
type TaskState string

const (
	// TaskStateUnknown represents a missing TaskState value.
	TaskStateUnknown TaskState = ""
	// TaskStateSubmitted means the task has been received but no agent acted on it yet.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking means an agent is processing the task or waits for more information.
	TaskStateWorking TaskState = "working"
	// TaskStateCompleted means the task has been successfully completed.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed means the task failed due to an error during execution.
	TaskStateFailed TaskState = "failed"
	// TaskStateCanceled means the task has been canceled by the user.
	TaskStateCanceled TaskState = "canceled"
)

// Terminal returns true for states in which a Task becomes immutable.
func (ts TaskState) Terminal() bool {
	return ts == TaskStateCompleted || ts == TaskStateFailed || ts == TaskStateCanceled
}

// Task represents a single, stateful operation or conversation between a client and agents.
type Task struct {
	// ID is a unique identifier for the task.
	ID TaskID `json:"id"`

	// ContextID is an identifier for grouping related interactions.
	ContextID string `json:"contextId"`

	// Status is the current status of the task.
	Status TaskStatus `json:"status"`

	// History is the append-only sequence of messages exchanged while working on the task.
	History []*Message `json:"history,omitempty"`

	// Artifacts is a collection of outputs generated by agents during the task.
	Artifacts []*Artifact `json:"artifacts,omitempty"`

	// Context holds structured facts accumulated across turns of the conversation.
	Context TaskContext `json:"context,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSubmittedTask creates a Task in submitted state with the initial message in its history.
func NewSubmittedTask(info TaskInfoProvider, initialMessage *Message) *Task {
	ti := info.TaskInfo()
	now := time.Now()
	task := &Task{
		ID:        ti.TaskID,
		ContextID: ti.ContextID,
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: &now},
	}
	if initialMessage != nil {
		task.History = []*Message{initialMessage}
	}
	return task
}

// TaskInfo implements TaskInfoProvider.
func (t *Task) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: t.ID, ContextID: t.ContextID}
}

// LastMessage returns the most recent message in the task history or nil if there's none.
func (t *Task) LastMessage() *Message {
	if len(t.History) == 0 {
		return nil
	}
	return t.History[len(t.History)-1]
}

// ResponseText returns the text an agent replied with: the status message text if there's one,
// otherwise the contents of the last artifact with data parts encoded as JSON.
func (t *Task) ResponseText() string {
	if text := t.Status.Message.Text(); text != "" {
		return text
	}
	if len(t.Artifacts) == 0 {
		return ""
	}
	var texts []string
	for _, p := range t.Artifacts[len(t.Artifacts)-1].Parts {
		switch v := p.(type) {
		case TextPart:
			texts = append(texts, v.Text)
		case DataPart:
			if b, err := json.Marshal(v.Data); err == nil {
				texts = append(texts, string(b))
			}
		}
	}
	return strings.Join(texts, "\n")
}

// MarshalJSON implements json.Marshaler.
func (t Task) MarshalJSON() ([]byte, error) {
	type wrapped Task
	type withKind struct {
		Kind string `json:"kind"`
		wrapped
	}
	return json.Marshal(withKind{Kind: kindTask, wrapped: wrapped(t)})
}

// TaskStatus represents the status of a task at a specific point in time.
type TaskStatus struct {
	// State is the current state of the task's lifecycle.
	State TaskState `json:"state"`

	// Message is an optional, human-readable message providing more details about the current status.
	Message *Message `json:"message,omitempty"`

	// Timestamp is the date and time the status was recorded.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ArtifactID is a unique identifier for the artifact within the scope of the task.
type ArtifactID string

// NewArtifactID generates a new random artifact identifier.
func NewArtifactID() ArtifactID {
	return ArtifactID(uuid.Must(uuid.NewV7()).String())
}

// Artifact represents a file, data structure, or other resource generated by an agent during a task.
type Artifact struct {
	// ID is a unique identifier for the artifact within the scope of the task.
	ID ArtifactID `json:"artifactId"`

	// Name is a machine-friendly name for the artifact.
	Name string `json:"name,omitempty"`

	// Description is an optional, human-readable description of the artifact.
	Description string `json:"description,omitempty"`

	// Parts is an array of content parts that make up the artifact.
	Parts ContentParts `json:"parts"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent is sent by an agent when an artifact is generated or updated.
type TaskArtifactUpdateEvent struct {
	// TaskID is the ID of the task this artifact belongs to.
	TaskID TaskID `json:"taskId"`

	// ContextID is the context ID associated with the task.
	ContextID string `json:"contextId"`

	// Artifact is the artifact that was generated or updated.
	Artifact *Artifact `json:"artifact"`

	// Append means the parts should be appended to a previously sent artifact with the same ID.
	Append bool `json:"append,omitempty"`

	// LastChunk indicates this is the final chunk of the artifact.
	LastChunk bool `json:"lastChunk,omitempty"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewArtifactEvent creates a TaskArtifactUpdateEvent for a new named artifact.
func NewArtifactEvent(info TaskInfoProvider, name string, parts ...Part) *TaskArtifactUpdateEvent {
	ti := info.TaskInfo()
	return &TaskArtifactUpdateEvent{
		TaskID:    ti.TaskID,
		ContextID: ti.ContextID,
		Artifact: &Artifact{
			ID:    NewArtifactID(),
			Name:  name,
			Parts: parts,
		},
	}
}

// NewArtifactUpdateEvent creates a TaskArtifactUpdateEvent which appends parts to an existing artifact.
func NewArtifactUpdateEvent(info TaskInfoProvider, id ArtifactID, parts ...Part) *TaskArtifactUpdateEvent {
	ti := info.TaskInfo()
	return &TaskArtifactUpdateEvent{
		TaskID:    ti.TaskID,
		ContextID: ti.ContextID,
		Append:    true,
		Artifact: &Artifact{
			ID:    id,
			Parts: parts,
		},
	}
}

// TaskInfo implements TaskInfoProvider.
func (e *TaskArtifactUpdateEvent) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: e.TaskID, ContextID: e.ContextID}
}

// MarshalJSON implements json.Marshaler.
func (e TaskArtifactUpdateEvent) MarshalJSON() ([]byte, error) {
	type wrapped TaskArtifactUpdateEvent
	type withKind struct {
		Kind string `json:"kind"`
		wrapped
	}
	return json.Marshal(withKind{Kind: kindArtifactUpdate, wrapped: wrapped(e)})
}

// TaskStatusUpdateEvent is sent by an agent to notify the client of a change in a task's status.
type TaskStatusUpdateEvent struct {
	// TaskID is the ID of the task that was updated.
	TaskID TaskID `json:"taskId"`

	// ContextID is the context ID associated with the task.
	ContextID string `json:"contextId"`

	// Status is the new status of the task.
	Status TaskStatus `json:"status"`

	// Final means no more events will follow for the current invocation.
	// Terminal states are always final, a working state is final when an agent awaits input.
	Final bool `json:"final"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewStatusUpdateEvent creates a TaskStatusUpdateEvent. The event is final if state is terminal.
func NewStatusUpdateEvent(info TaskInfoProvider, state TaskState, msg *Message) *TaskStatusUpdateEvent {
	ti := info.TaskInfo()
	now := time.Now()
	return &TaskStatusUpdateEvent{
		TaskID:    ti.TaskID,
		ContextID: ti.ContextID,
		Final:     state.Terminal(),
		Status: TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: &now,
		},
	}
}

// TaskInfo implements TaskInfoProvider.
func (e *TaskStatusUpdateEvent) TaskInfo() TaskInfo {
	return TaskInfo{TaskID: e.TaskID, ContextID: e.ContextID}
}

// SetMeta sets the metadata value for the provided key.
func (e *TaskStatusUpdateEvent) SetMeta(k string, v any) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[k] = v
}

// MarshalJSON implements json.Marshaler.
func (e TaskStatusUpdateEvent) MarshalJSON() ([]byte, error) {
	type wrapped TaskStatusUpdateEvent
	type withKind struct {
		Kind string `json:"kind"`
		wrapped
	}
	return json.Marshal(withKind{Kind: kindStatusUpdate, wrapped: wrapped(e)})
}

// IsFinal returns true if event must terminate a valid execution event sequence.
func IsFinal(event Event) bool {
	if v, ok := event.(*TaskStatusUpdateEvent); ok {
		return v.Final || v.Status.State.Terminal()
	}
	return false
}

// ContentParts is an array of content parts that form a message or an artifact body.
type ContentParts []Part

// MarshalJSON implements json.Marshaler.
func (j ContentParts) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Part(j))
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *ContentParts) UnmarshalJSON(b []byte) error {
	type typedPart struct {
		Kind string `json:"kind"`
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}

	result := make([]Part, len(arr))
	for i, rawMsg := range arr {
		var tp typedPart
		if err := json.Unmarshal(rawMsg, &tp); err != nil {
			return err
		}
		switch tp.Kind {
		case kindText:
			var part TextPart
			if err := json.Unmarshal(rawMsg, &part); err != nil {
				return err
			}
			result[i] = part
		case kindData:
			var part DataPart
			if err := json.Unmarshal(rawMsg, &part); err != nil {
				return err
			}
			result[i] = part
		default:
			return fmt.Errorf("unknown part kind %q", tp.Kind)
		}
	}

	*j = result
	return nil
}

// Part is a discriminated union representing a part of a message or an artifact.
type Part interface {
	isPart()
}

func (TextPart) isPart() {}
func (DataPart) isPart() {}

// TextPart represents a text segment within a message or artifact.
type TextPart struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p TextPart) MarshalJSON() ([]byte, error) {
	type wrapped TextPart
	type withKind struct {
		Kind string `json:"kind"`
		wrapped
	}
	return json.Marshal(withKind{Kind: kindText, wrapped: wrapped(p)})
}

// DataPart represents a structured data segment within a message or artifact.
type DataPart struct {
	Data     any            `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p DataPart) MarshalJSON() ([]byte, error) {
	type wrapped DataPart
	type withKind struct {
		Kind string `json:"kind"`
		wrapped
	}
	return json.Marshal(withKind{Kind: kindData, wrapped: wrapped(p)})
}

// NewTextPart creates a TextPart with the provided text.
func NewTextPart(text string) TextPart {
	return TextPart{Text: text}
}

// NewDataPart creates a DataPart with the provided structured value.
func NewDataPart(data any) DataPart {
	return DataPart{Data: data}
}
