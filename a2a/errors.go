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

import "errors"

// Protocol level errors.
var (
	// ErrParseError indicates that server received payload that was not well-formed.
	ErrParseError = errors.New("parse error")

	// ErrInvalidRequest indicates that server received a well-formed payload which was not a valid request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMethodNotFound indicates that a method does not exist or is not supported.
	ErrMethodNotFound = errors.New("method not found")

	// ErrInvalidParams indicates that params provided for the method were invalid.
	ErrInvalidParams = errors.New("invalid params")

	// ErrInternalError indicates an unexpected error occurred on the server during processing.
	ErrInternalError = errors.New("internal error")

	// ErrTaskNotFound indicates that a task with the provided ID was not found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCancelable indicates that the task was in a state where it could not be canceled.
	ErrTaskNotCancelable = errors.New("task cannot be canceled")

	// ErrUnsupportedOperation indicates that the requested operation is not supported by the agent.
	ErrUnsupportedOperation = errors.New("this operation is not supported")

	// ErrInvalidAgentResponse indicates that the agent returned a response that
	// does not conform to the protocol.
	ErrInvalidAgentResponse = errors.New("invalid agent response")
)

// Orchestration errors.
var (
	// ErrValidation indicates a malformed input message or an unparseable structured output.
	ErrValidation = errors.New("validation error")

	// ErrAgentCommunication indicates a network failure, a timeout or an unexpected
	// response status while talking to a remote agent.
	ErrAgentCommunication = errors.New("agent communication error")

	// ErrUnroutable indicates that no known agent could be selected for a request.
	ErrUnroutable = errors.New("unroutable request")

	// ErrHopLimitExceeded indicates that a task was forwarded between agents too many times.
	ErrHopLimitExceeded = errors.New("forwarding hop limit exceeded")
)

// Error provides control over the message and details returned to clients.
type Error struct {
	// Err is the underlying error. It will be used for transport-specific code selection.
	Err error
	// Message is a human-readable description of the error returned to clients.
	Message string
	// Details can contain additional structured information about the error.
	Details map[string]any
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

// Unwrap provides access to the error cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new A2A Error wrapping the provided error with a custom message.
func NewError(err error, message string) *Error {
	return &Error{Err: err, Message: message}
}

// WithDetails attaches structured data to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}
