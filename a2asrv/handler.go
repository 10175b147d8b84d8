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

package a2asrv

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/taskstore"
	"github.com/a2aproject/a2a-orchestrator/internal/taskexec"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// RequestHandler defines a transport-agnostic interface for handling incoming A2A requests.
type RequestHandler interface {
	// GetTask handles the 'tasks/get' protocol method.
	GetTask(context.Context, *a2a.GetTaskRequest) (*a2a.Task, error)

	// CancelTask handles the 'tasks/cancel' protocol method.
	CancelTask(context.Context, *a2a.CancelTaskRequest) (*a2a.Task, error)

	// SendMessage handles the 'message/send' protocol method (non-streaming).
	// The returned task reflects the state after the agent emitted a final event.
	SendMessage(context.Context, *a2a.SendMessageRequest) (*a2a.Task, error)

	// SendStreamingMessage handles the 'message/stream' protocol method (streaming).
	// The sequence ends after a final event.
	SendStreamingMessage(context.Context, *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error]
}

// Implements a2asrv.RequestHandler.
type defaultRequestHandler struct {
	agentExecutor AgentExecutor
	execManager   *taskexec.Manager
	panicHandler  taskexec.PanicHandlerFn

	agentID      a2a.AgentID
	logger       *slog.Logger
	queueManager eventqueue.Manager
	taskStore    taskstore.Store
	capabilities *a2a.AgentCapabilities
}

var _ RequestHandler = (*defaultRequestHandler)(nil)

// RequestHandlerOption can be used to customize the default [RequestHandler] implementation behavior.
type RequestHandlerOption func(*defaultRequestHandler)

// WithAgentID sets the identifier of the agent. It is used as the receiver of incoming messages
// without one and as the sender of synthesized status messages.
func WithAgentID(id a2a.AgentID) RequestHandlerOption {
	return func(h *defaultRequestHandler) {
		h.agentID = id
	}
}

// WithCapabilityChecks rejects requests which the provided capabilities don't allow.
func WithCapabilityChecks(capabilities *a2a.AgentCapabilities) RequestHandlerOption {
	return func(h *defaultRequestHandler) {
		h.capabilities = capabilities
	}
}

// WithLogger sets a custom logger. Request scoped parameters will be attached to this logger
// on method invocations. Any injected dependency will be able to access the logger using
// [github.com/a2aproject/a2a-orchestrator/log] package-level functions.
// If not provided, defaults to the logger attached to the request context.
func WithLogger(logger *slog.Logger) RequestHandlerOption {
	return func(h *defaultRequestHandler) {
		h.logger = logger
	}
}

// WithEventQueueManager overrides eventqueue.Manager with custom implementation
func WithEventQueueManager(manager eventqueue.Manager) RequestHandlerOption {
	return func(h *defaultRequestHandler) {
		h.queueManager = manager
	}
}

// WithExecutionPanicHandler allows to set a custom handler for panics occurred during execution.
func WithExecutionPanicHandler(handler func(r any) error) RequestHandlerOption {
	return func(h *defaultRequestHandler) {
		h.panicHandler = handler
	}
}

// WithTaskStore overrides TaskStore with a custom implementation. If not provided,
// default to an in-memory implementation.
func WithTaskStore(store taskstore.Store) RequestHandlerOption {
	return func(h *defaultRequestHandler) {
		h.taskStore = store
	}
}

// NewHandler creates a new request handler.
func NewHandler(executor AgentExecutor, options ...RequestHandlerOption) RequestHandler {
	h := &defaultRequestHandler{agentExecutor: executor}
	for _, option := range options {
		option(h)
	}

	if h.queueManager == nil {
		h.queueManager = eventqueue.NewInMemoryManager()
	}
	if h.taskStore == nil {
		h.taskStore = taskstore.NewInMemory(nil)
	}
	h.execManager = taskexec.NewManager(taskexec.Config{
		QueueManager: h.queueManager,
		TaskStore:    h.taskStore,
		Factory:      &factory{agent: executor, taskStore: h.taskStore, agentID: h.agentID},
		AgentID:      h.agentID,
		PanicHandler: h.panicHandler,
	})
	return h
}

// GetTask implements RequestHandler.
func (h *defaultRequestHandler) GetTask(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	if req == nil || req.ID == "" {
		return nil, fmt.Errorf("missing TaskID: %w", a2a.ErrInvalidParams)
	}
	ctx = h.withLoggerContext(ctx, "get_task", slog.String("task_id", string(req.ID)))

	task, ok, err := h.taskStore.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("task %s: %w", req.ID, a2a.ErrTaskNotFound)
	}

	if req.HistoryLength != nil {
		historyLength := *req.HistoryLength

		if historyLength == 0 {
			task.History = []*a2a.Message{}
		} else if historyLength > 0 && historyLength < len(task.History) {
			task.History = task.History[len(task.History)-historyLength:]
		}
	}

	return task, nil
}

// CancelTask implements RequestHandler.
func (h *defaultRequestHandler) CancelTask(ctx context.Context, req *a2a.CancelTaskRequest) (*a2a.Task, error) {
	if req == nil || req.ID == "" {
		return nil, fmt.Errorf("missing TaskID: %w", a2a.ErrInvalidParams)
	}
	ctx = h.withLoggerContext(ctx, "cancel_task", slog.String("task_id", string(req.ID)))

	response, err := h.execManager.Cancel(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel: %w", err)
	}
	return response, nil
}

// SendMessage implements RequestHandler.
func (h *defaultRequestHandler) SendMessage(ctx context.Context, req *a2a.SendMessageRequest) (*a2a.Task, error) {
	req, err := validateSendMessageRequest(req)
	if err != nil {
		return nil, err
	}
	ctx = h.withLoggerContext(ctx, "send_message", messageAttrs(req.Message)...)

	subscription, err := h.execManager.Execute(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return subscription.Wait(ctx)
}

// SendStreamingMessage implements RequestHandler.
func (h *defaultRequestHandler) SendStreamingMessage(ctx context.Context, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		if h.capabilities != nil && !h.capabilities.Streaming {
			yield(nil, a2a.ErrUnsupportedOperation)
			return
		}
		req, err := validateSendMessageRequest(req)
		if err != nil {
			yield(nil, err)
			return
		}
		ctx := h.withLoggerContext(ctx, "send_streaming_message", messageAttrs(req.Message)...)

		subscription, err := h.execManager.Execute(ctx, req, true)
		if err != nil {
			yield(nil, err)
			return
		}

		for ev, err := range subscription.Events(ctx) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// validateSendMessageRequest returns a copy of the request with message defaults applied.
func validateSendMessageRequest(req *a2a.SendMessageRequest) (*a2a.SendMessageRequest, error) {
	switch {
	case req == nil:
		return nil, fmt.Errorf("message send params is required: %w", a2a.ErrInvalidParams)
	case req.Message == nil:
		return nil, fmt.Errorf("message is required: %w", a2a.ErrInvalidParams)
	case len(req.Message.Parts) == 0:
		return nil, fmt.Errorf("message parts is required: %w", a2a.ErrInvalidParams)
	}

	msg := *req.Message
	if msg.ID == "" {
		msg.ID = a2a.NewMessageID()
	}
	if msg.Role == "" {
		msg.Role = a2a.MessageRoleUser
	}
	if msg.Sender == "" {
		msg.Sender = a2a.AgentUser
	}
	return &a2a.SendMessageRequest{Message: &msg, Metadata: req.Metadata}, nil
}

// messageAttrs omits the task and context IDs of a message starting a new task.
func messageAttrs(msg *a2a.Message) []any {
	attrs := []any{slog.String("message_id", msg.ID)}
	if msg.TaskID != "" {
		attrs = append(attrs, slog.String("task_id", string(msg.TaskID)))
	}
	if msg.ContextID != "" {
		attrs = append(attrs, slog.String("context_id", msg.ContextID))
	}
	return append(attrs, slog.String("sender", string(msg.Sender)))
}

// withLoggerContext attaches an slog.Logger with a2a-specific attributes to the context.
func (h *defaultRequestHandler) withLoggerContext(ctx context.Context, method string, attrs ...any) context.Context {
	logger := h.logger
	if logger == nil {
		logger = log.LoggerFrom(ctx)
	}
	withAttrs := logger.WithGroup("a2a").With(attrs...).With(
		slog.String("method", method),
		slog.String("request_id", uuid.NewString()),
	)
	if h.agentID != "" {
		withAttrs = withAttrs.With(slog.String("agent", string(h.agentID)))
	}
	return log.AttachLogger(ctx, withAttrs)
}
