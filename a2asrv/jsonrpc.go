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
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/internal/jsonrpc"
	"github.com/a2aproject/a2a-orchestrator/internal/sse"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// unaryMethod decodes the params of a JSON-RPC call and returns its result.
type unaryMethod func(ctx context.Context, params json.RawMessage) (any, error)

func unary[Req any, Resp any](call func(context.Context, *Req) (Resp, error)) unaryMethod {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req Req
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, decodeError(err)
		}
		return call(ctx, &req)
	}
}

type jsonrpcHandler struct {
	handler   RequestHandler
	methods   map[string]unaryMethod
	keepAlive time.Duration
	onPanic   func(r any) error
}

// JSONRPCHandlerOption configures the handler created by [NewJSONRPCHandler].
type JSONRPCHandlerOption func(*jsonrpcHandler)

// WithKeepAlive makes streams send an SSE comment every interval, so that idle connections aren't
// dropped by proxies and clients can tell a slow agent from a dead one. Non-positive values disable it.
func WithKeepAlive(interval time.Duration) JSONRPCHandlerOption {
	return func(h *jsonrpcHandler) {
		h.keepAlive = interval
	}
}

// WithPanicHandler turns panics of request handling into the error returned by handler,
// which is sent to the client. Without it a panic propagates to the HTTP server.
func WithPanicHandler(handler func(r any) error) JSONRPCHandlerOption {
	return func(h *jsonrpcHandler) {
		h.onPanic = handler
	}
}

// NewJSONRPCHandler creates an [http.Handler] serving A2A over JSON-RPC 2.0. message/stream
// responds with server-sent events, one JSON-RPC response per event, until a final event.
func NewJSONRPCHandler(handler RequestHandler, options ...JSONRPCHandlerOption) http.Handler {
	h := &jsonrpcHandler{
		handler: handler,
		methods: map[string]unaryMethod{
			jsonrpc.MethodMessageSend: unary(handler.SendMessage),
			jsonrpc.MethodTasksGet:    unary(handler.GetTask),
			jsonrpc.MethodTasksCancel: unary(handler.CancelTask),
		},
	}
	for _, option := range options {
		option(h)
	}
	return h
}

func (h *jsonrpcHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := attachLogger(r)
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Error(ctx, "failed to close request body", err)
		}
	}()

	req, err := readRequest(r)
	if err != nil {
		var id any
		if req != nil {
			id = req.ID
		}
		h.writeResponse(ctx, rw, errorResponse(id, err))
		return
	}

	if req.Method == jsonrpc.MethodMessageStream {
		h.serveStream(ctx, rw, req)
		return
	}
	result, err := h.invoke(ctx, req)
	if err != nil {
		h.writeResponse(ctx, rw, errorResponse(req.ID, err))
		return
	}
	h.writeResponse(ctx, rw, jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: req.ID, Result: result})
}

// readRequest decodes and validates the JSON-RPC envelope. The request is returned
// with the error when its ID could be read.
func readRequest(r *http.Request) (*jsonrpc.ServerRequest, error) {
	if r.Method != http.MethodPost {
		return nil, a2a.ErrInvalidRequest
	}
	var req jsonrpc.ServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, decodeError(err)
	}
	if !jsonrpc.IsValidID(req.ID) {
		return nil, a2a.ErrInvalidRequest
	}
	if req.JSONRPC != jsonrpc.Version {
		return &req, a2a.ErrInvalidRequest
	}
	return &req, nil
}

func (h *jsonrpcHandler) invoke(ctx context.Context, req *jsonrpc.ServerRequest) (result any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if h.onPanic == nil {
			panic(r)
		}
		result, err = nil, h.onPanic(r)
		if err == nil {
			err = a2a.ErrInternalError
		}
	}()

	if req.Method == "" {
		return nil, a2a.ErrInvalidRequest
	}
	method, ok := h.methods[req.Method]
	if !ok {
		return nil, a2a.ErrMethodNotFound
	}
	return method(ctx, req.Params)
}

// streamFrame is either an encoded response or a panic of the producer.
type streamFrame struct {
	data     []byte
	panicErr error
}

func (h *jsonrpcHandler) serveStream(ctx context.Context, rw http.ResponseWriter, req *jsonrpc.ServerRequest) {
	w, err := sse.NewWriter(rw)
	if err != nil {
		h.writeResponse(ctx, rw, errorResponse(req.ID, err))
		return
	}
	w.WriteHeaders()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := make(chan streamFrame)
	go h.produceFrames(streamCtx, req, frames)

	var keepAlive <-chan time.Time
	if h.keepAlive > 0 {
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case <-keepAlive:
			if err := w.WriteKeepAlive(ctx); err != nil {
				log.Error(ctx, "failed to write keep-alive", err)
				return
			}
			continue
		case frame, ok := <-frames:
			if !ok {
				return
			}
			data = frame.data
			if frame.panicErr != nil {
				if h.onPanic == nil {
					panic(frame.panicErr)
				}
				data = encodeFrame(ctx, errorResponse(req.ID, h.onPanic(frame.panicErr)))
			}
		}
		if data == nil {
			continue
		}
		if err := w.WriteData(ctx, data); err != nil {
			log.Error(ctx, "failed to write an event", err)
			return
		}
	}
}

// produceFrames encodes the events of a streaming call and closes frames when the stream ends.
// An error ends the stream with an error response.
func (h *jsonrpcHandler) produceFrames(ctx context.Context, req *jsonrpc.ServerRequest, frames chan<- streamFrame) {
	send := func(frame streamFrame) bool {
		select {
		case frames <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	}
	defer close(frames)
	defer func() {
		if r := recover(); r != nil {
			send(streamFrame{panicErr: fmt.Errorf("%v\n%s", r, debug.Stack())})
		}
	}()

	var params a2a.SendMessageRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		send(streamFrame{data: encodeFrame(ctx, errorResponse(req.ID, decodeError(err)))})
		return
	}
	for event, err := range h.handler.SendStreamingMessage(ctx, &params) {
		resp := jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: req.ID, Result: event}
		if err != nil {
			resp = errorResponse(req.ID, err)
		}
		if !send(streamFrame{data: encodeFrame(ctx, resp)}) || err != nil {
			return
		}
	}
}

// encodeFrame returns nil, after logging, for a response which can't be encoded.
func encodeFrame(ctx context.Context, resp jsonrpc.ServerResponse) []byte {
	data, err := json.Marshal(resp)
	if err == nil {
		return data
	}
	if resp.Error == nil {
		// the event is replaced with the encoding error
		if data, err2 := json.Marshal(errorResponse(resp.ID, err)); err2 == nil {
			return data
		}
	}
	log.Error(ctx, "failed to marshal response", err)
	return nil
}

func errorResponse(id any, err error) jsonrpc.ServerResponse {
	return jsonrpc.ServerResponse{JSONRPC: jsonrpc.Version, ID: id, Error: jsonrpc.ToJSONRPCError(err)}
}

func (h *jsonrpcHandler) writeResponse(ctx context.Context, rw http.ResponseWriter, resp jsonrpc.ServerResponse) {
	rw.Header().Set("Content-Type", jsonrpc.ContentJSON)
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		log.Error(ctx, "failed to write response", err)
	}
}

// decodeError classifies a JSON decoding failure: a well-formed document of the wrong shape
// has invalid params, anything else fails to parse.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", a2a.ErrInvalidParams, err)
	}
	return fmt.Errorf("%w: %w", a2a.ErrParseError, err)
}
