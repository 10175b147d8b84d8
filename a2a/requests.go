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

// SendMessageRequest represents a request for the agent to process a message.
type SendMessageRequest struct {
	// Message is the message object being sent to the agent.
	Message *Message `json:"message"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GetTaskRequest defines parameters for querying a task.
type GetTaskRequest struct {
	// ID is the ID of the task to query.
	ID TaskID `json:"id"`

	// HistoryLength is the number of most recent messages from the task's history to retrieve.
	HistoryLength *int `json:"historyLength,omitempty"`
}

// CancelTaskRequest represents a request to cancel a task.
type CancelTaskRequest struct {
	// ID is the ID of the task to cancel.
	ID TaskID `json:"id"`

	// Metadata is an optional metadata for extensions.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChatRequest is the body of a non-streaming chat request. A reply to an agent question should carry
// the task ID returned with the question.
type ChatRequest struct {
	Content   string `json:"content"`
	TaskID    TaskID `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

// ChatResponse is the body of a successful chat response.
type ChatResponse struct {
	Response  string    `json:"response"`
	TaskID    TaskID    `json:"taskId"`
	ContextID string    `json:"contextId"`
	State     TaskState `json:"state"`
}

// ChatError is the body of a failed chat response.
type ChatError struct {
	Detail string `json:"detail"`
}
