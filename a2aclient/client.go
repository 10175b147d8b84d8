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

// Package a2aclient provides a client for agents served over the A2A JSON-RPC binding.
package a2aclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/internal/jsonrpc"
	"github.com/a2aproject/a2a-orchestrator/log"
)

const (
	// DefaultAttempts is the number of times a request is sent before the client gives up.
	DefaultAttempts = 2
	// DefaultRetryDelay is the pause between two attempts.
	DefaultRetryDelay = time.Second
	// DefaultConnectTimeout bounds connection establishment with an agent and the wait for
	// its response headers.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultStreamIdleTimeout is how long a stream may stay silent. Agents served by a2asrv
	// send keep-alives more often than that.
	DefaultStreamIdleTimeout = time.Minute
)

const chatPath = "/chat"

// Client talks to a single agent. Transport failures are retried with a fixed delay,
// and exhausted retries are reported as [a2a.ErrAgentCommunication].
type Client struct {
	url            string
	httpClient     *http.Client
	headers        http.Header
	attempts       int
	retryDelay     time.Duration
	connectTimeout time.Duration
	idleTimeout    time.Duration

	card atomic.Pointer[a2a.AgentCard]
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient makes the client use the provided [http.Client]. The connect timeout option
// is ignored in this case.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetryPolicy overrides the number of attempts and the delay between them.
// Attempts below 1 are treated as 1.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.retryDelay = delay
	}
}

// WithConnectTimeout overrides [DefaultConnectTimeout]. An agent which accepts a connection
// but doesn't respond within the timeout is treated as unreachable.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = timeout
	}
}

// WithStreamIdleTimeout overrides [DefaultStreamIdleTimeout]. Zero disables the check.
func WithStreamIdleTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.idleTimeout = timeout
	}
}

// WithHeader adds a header to every request sent by the client.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		c.headers.Add(name, value)
	}
}

// NewClient creates a client for the agent serving JSON-RPC requests at the provided URL.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:            url,
		headers:        http.Header{},
		attempts:       DefaultAttempts,
		retryDelay:     DefaultRetryDelay,
		connectTimeout: DefaultConnectTimeout,
		idleTimeout:    DefaultStreamIdleTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.connectTimeout)
	}
	return c
}

// NewFromCard creates a client for the agent described by the card.
func NewFromCard(card *a2a.AgentCard, opts ...Option) (*Client, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card is required: %w", a2a.ErrInvalidParams)
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	c := NewClient(card.URL, opts...)
	c.card.Store(card)
	return c, nil
}

// Card returns the card the client was created from or nil.
func (c *Client) Card() *a2a.AgentCard {
	return c.card.Load()
}

// URL returns the agent endpoint.
func (c *Client) URL() string {
	return c.url
}

// SendMessage sends a message and blocks until the agent emits a final event.
func (c *Client) SendMessage(ctx context.Context, req *a2a.SendMessageRequest) (*a2a.Task, error) {
	return c.callTask(ctx, jsonrpc.MethodMessageSend, req)
}

// SendStreamingMessage sends a message and returns the events of the execution in the order
// the agent emitted them. Connection failures are retried until the first event is received.
func (c *Client) SendStreamingMessage(ctx context.Context, req *a2a.SendMessageRequest) iter.Seq2[a2a.Event, error] {
	return c.streamRequestToEvents(ctx, jsonrpc.MethodMessageStream, req)
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, req *a2a.GetTaskRequest) (*a2a.Task, error) {
	return c.callTask(ctx, jsonrpc.MethodTasksGet, req)
}

// CancelTask requests a task cancelation.
func (c *Client) CancelTask(ctx context.Context, req *a2a.CancelTaskRequest) (*a2a.Task, error) {
	return c.callTask(ctx, jsonrpc.MethodTasksCancel, req)
}

// Chat posts the content to the non-streaming chat endpoint of the agent and returns its reply.
// Pass the task ID of a previous response to answer a question asked by the agent.
func (c *Client) Chat(ctx context.Context, req *a2a.ChatRequest) (*a2a.ChatResponse, error) {
	chatURL, err := url.JoinPath(c.url, chatPath)
	if err != nil {
		return nil, fmt.Errorf("invalid chat url: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result a2a.ChatResponse
	err = c.withRetry(ctx, "chat", func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create HTTP request: %w", err)
		}
		httpReq.Header.Set("Content-Type", jsonrpc.ContentJSON)
		c.addHeaders(httpReq)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return &communicationError{err: fmt.Errorf("failed to send HTTP request: %w", err)}
		}
		defer closeBody(ctx, httpResp.Body)

		switch {
		case httpResp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
				return &communicationError{err: fmt.Errorf("failed to decode response: %w", err)}
			}
			return nil
		case httpResp.StatusCode < http.StatusInternalServerError:
			var chatErr a2a.ChatError
			_ = json.NewDecoder(httpResp.Body).Decode(&chatErr)
			return a2a.NewError(a2a.ErrInvalidParams, chatErr.Detail)
		default:
			var chatErr a2a.ChatError
			_ = json.NewDecoder(httpResp.Body).Decode(&chatErr)
			return a2a.NewError(a2a.ErrInternalError, chatErr.Detail)
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) callTask(ctx context.Context, method string, req any) (*a2a.Task, error) {
	var task a2a.Task
	err := c.withRetry(ctx, method, func(ctx context.Context) error {
		result, err := c.sendRequest(ctx, method, req)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(result, &task); err != nil {
			return fmt.Errorf("%w: failed to unmarshal task: %w", a2a.ErrInvalidAgentResponse, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// communicationError marks transport failures which are worth another attempt.
type communicationError struct {
	err error
}

func (e *communicationError) Error() string {
	return e.err.Error()
}

func (e *communicationError) Unwrap() error {
	return e.err
}

func newCommunicationFailure(err error) error {
	return a2a.NewError(
		fmt.Errorf("%w: %w", a2a.ErrAgentCommunication, err),
		fmt.Sprintf("Agent communication error: %v", err),
	)
}

func (c *Client) withRetry(ctx context.Context, method string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.retryDelay); err != nil {
				return err
			}
		}

		err := call(ctx)
		var commErr *communicationError
		if !errors.As(err, &commErr) {
			return err
		}
		lastErr = commErr.err
		log.Warn(ctx, "agent request failed", "method", method, "url", c.url, "attempt", attempt, "error", lastErr)
	}
	return newCommunicationFailure(lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = connectTimeout
	return &http.Client{Transport: transport}
}

func (c *Client) addHeaders(req *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}
