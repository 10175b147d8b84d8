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

package a2aclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/internal/jsonrpc"
	"github.com/a2aproject/a2a-orchestrator/internal/sse"
	"github.com/a2aproject/a2a-orchestrator/log"
)

func (c *Client) newHTTPRequest(ctx context.Context, method string, payload any) (*http.Request, error) {
	req := jsonrpc.ClientRequest{
		JSONRPC: jsonrpc.Version,
		Method:  method,
		Params:  payload,
		ID:      uuid.NewString(),
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", jsonrpc.ContentJSON)
	c.addHeaders(httpReq)
	return httpReq, nil
}

// sendRequest sends a non-streaming JSON-RPC request and returns the result.
func (c *Client) sendRequest(ctx context.Context, method string, req any) (json.RawMessage, error) {
	httpReq, err := c.newHTTPRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &communicationError{err: fmt.Errorf("failed to send HTTP request: %w", err)}
	}
	defer closeBody(ctx, httpResp.Body)

	if httpResp.StatusCode != http.StatusOK {
		return nil, &communicationError{err: fmt.Errorf("unexpected HTTP status: %s", httpResp.Status)}
	}

	var resp jsonrpc.ClientResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &communicationError{err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.Error != nil {
		return nil, resp.Error.ToA2AError()
	}

	return resp.Result, nil
}

// sendStreamingRequest sends a streaming JSON-RPC request and returns an SSE stream.
func (c *Client) sendStreamingRequest(ctx context.Context, method string, req any) (io.ReadCloser, error) {
	httpReq, err := c.newHTTPRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", sse.ContentEventStream)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &communicationError{err: fmt.Errorf("failed to send HTTP request: %w", err)}
	}

	if httpResp.StatusCode != http.StatusOK {
		closeBody(ctx, httpResp.Body)
		return nil, &communicationError{err: fmt.Errorf("unexpected HTTP status: %s", httpResp.Status)}
	}

	return httpResp.Body, nil
}

// parseSSEStream parses Server-Sent Events and yields JSON-RPC results.
func parseSSEStream(body io.Reader) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		for data, err := range sse.ParseDataStream(body) {
			if err != nil {
				yield(nil, &communicationError{err: err})
				return
			}
			var resp jsonrpc.ClientResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				yield(nil, fmt.Errorf("%w: failed to parse SSE data: %w", a2a.ErrInvalidAgentResponse, err))
				return
			}
			if resp.Error != nil {
				yield(nil, resp.Error.ToA2AError())
				return
			}
			if !yield(resp.Result, nil) {
				return
			}
		}
	}
}

// streamRequestToEvents converts the SSE stream of a JSON-RPC method into a sequence of A2A events.
// A failed attempt is repeated only if it did not produce any events.
func (c *Client) streamRequestToEvents(ctx context.Context, method string, req any) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		var lastErr error
		for attempt := 1; attempt <= c.attempts; attempt++ {
			if attempt > 1 {
				if err := sleep(ctx, c.retryDelay); err != nil {
					yield(nil, err)
					return
				}
			}

			started, err := c.streamOnce(ctx, method, req, yield)
			if err == nil {
				return
			}

			var commErr *communicationError
			if !errors.As(err, &commErr) {
				yield(nil, err)
				return
			}
			if started {
				yield(nil, newCommunicationFailure(commErr.err))
				return
			}
			lastErr = commErr.err
			log.Warn(ctx, "agent stream failed", "method", method, "url", c.url, "attempt", attempt, "error", lastErr)
		}
		yield(nil, newCommunicationFailure(lastErr))
	}
}

var errStreamIdle = errors.New("stream idle timeout")

// idleReader pushes back the idle deadline of a stream whenever data arrives.
type idleReader struct {
	io.ReadCloser
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

// streamOnce reports whether any event was passed to yield. A nil error is returned when
// the stream ends or the consumer stops reading.
func (c *Client) streamOnce(ctx context.Context, method string, req any, yield func(a2a.Event, error) bool) (bool, error) {
	streamCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	body, err := c.sendStreamingRequest(streamCtx, method, req)
	if err != nil {
		return false, err
	}
	defer closeBody(ctx, body)

	if c.idleTimeout > 0 {
		timer := time.AfterFunc(c.idleTimeout, func() { cancel(errStreamIdle) })
		defer timer.Stop()
		body = &idleReader{ReadCloser: body, timer: timer, timeout: c.idleTimeout}
	}

	started := false
	for result, err := range parseSSEStream(body) {
		if err != nil {
			if cause := context.Cause(streamCtx); errors.Is(cause, errStreamIdle) {
				return started, &communicationError{err: fmt.Errorf("no data for %s: %w", c.idleTimeout, cause)}
			}
			return started, err
		}

		event, err := a2a.UnmarshalEvent(result)
		if err != nil {
			return started, fmt.Errorf("%w: %w", a2a.ErrInvalidAgentResponse, err)
		}

		started = true
		if !yield(event, nil) {
			return started, nil
		}
	}
	return started, nil
}

func closeBody(ctx context.Context, body io.Closer) {
	if err := body.Close(); err != nil {
		log.Error(ctx, "failed to close http response body", err)
	}
}
