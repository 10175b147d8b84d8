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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/internal/jsonrpc"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// ChatPath is the HTTP path of the non-streaming chat endpoint.
const ChatPath = "/chat"

type chatHandler struct {
	handler RequestHandler
	agentID a2a.AgentID
}

// NewChatHandler creates an [http.Handler] which sends the posted content to the agent as a user message
// and responds with the text of the agent reply once the agent emits a final event.
func NewChatHandler(handler RequestHandler, agentID a2a.AgentID) http.Handler {
	return &chatHandler{handler: handler, agentID: agentID}
}

func (h *chatHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := attachLogger(req)
	if req.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload a2a.ChatRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeChatResponse(ctx, rw, http.StatusBadRequest, a2a.ChatError{Detail: "malformed request: " + err.Error()})
		return
	}

	msg, err := a2a.NewMessage(a2a.AgentUser, h.agentID, payload.Content)
	if err != nil {
		writeChatResponse(ctx, rw, http.StatusBadRequest, a2a.ChatError{Detail: err.Error()})
		return
	}
	msg.TaskID, msg.ContextID = payload.TaskID, payload.ContextID

	task, err := h.handler.SendMessage(ctx, &a2a.SendMessageRequest{Message: msg})
	if err != nil {
		log.Error(ctx, "chat message processing failed", err)
		status := http.StatusInternalServerError
		if errors.Is(err, a2a.ErrInvalidParams) || errors.Is(err, a2a.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeChatResponse(ctx, rw, status, a2a.ChatError{Detail: "Error processing message: " + err.Error()})
		return
	}

	writeChatResponse(ctx, rw, http.StatusOK, a2a.ChatResponse{
		Response:  task.ResponseText(),
		TaskID:    task.ID,
		ContextID: task.ContextID,
		State:     task.Status.State,
	})
}

func writeChatResponse(ctx context.Context, rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", jsonrpc.ContentJSON)
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		log.Error(ctx, "failed to write chat response", err)
	}
}
