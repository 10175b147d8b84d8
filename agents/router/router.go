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

// Package router implements the orchestrator agent which dispatches requests to specialized
// agents and follows the handoffs between them.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/internal/metrics"
	"github.com/a2aproject/a2a-orchestrator/internal/utils"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// AgentID identifies the orchestrator agent.
const AgentID a2a.AgentID = "orchestrator"

// ArtifactName is the name of the artifact recording a [RoutingDecision].
const ArtifactName = "routing_decision"

// DefaultMaxHops is the default number of agent invocations allowed within one execution.
const DefaultMaxHops = 4

// RoutingDecision is published before a message is dispatched to an agent.
type RoutingDecision struct {
	Message     string      `json:"message"`
	TargetAgent a2a.AgentID `json:"target_agent"`
	Reason      string      `json:"reason"`
}

// Option configures an [Executor].
type Option func(*Executor)

// WithStrategy sets the strategy used for selecting the first agent. [KeywordStrategy] is used by default.
func WithStrategy(s Strategy) Option {
	return func(e *Executor) {
		e.strategy = s
	}
}

// WithMaxHops bounds the number of agent invocations within one execution.
func WithMaxHops(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// WithMetrics enables routing metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// Executor is an [a2asrv.AgentExecutor] which selects an agent for the latest message, relays
// the events of that agent and forwards the task to the next agent when asked to.
//
// A task waiting for input from an agent is routed to the same agent without consulting the strategy.
// Execution ends with the final event of the last invoked agent, or a failed status if forwarding
// exceeds the hop limit or an agent can't be reached.
type Executor struct {
	registry *Registry
	strategy Strategy
	maxHops  int
	metrics  *metrics.Metrics
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

// New creates an orchestrator dispatching to the agents from the registry.
func New(registry *Registry, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		strategy: NewKeywordStrategy(),
		maxHops:  DefaultMaxHops,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute implements [a2asrv.AgentExecutor].
func (e *Executor) Execute(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return e.run(ctx, execCtx, q, false)
}

// Stream implements [a2asrv.AgentExecutor].
func (e *Executor) Stream(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return e.run(ctx, execCtx, q, true)
}

// Cancel implements [a2asrv.AgentExecutor]. Cancelation is propagated to the remote agent
// the task was last dispatched to, failures to do so are only logged.
func (e *Executor) Cancel(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	if id := dispatchedAgent(execCtx.Task); id != "" {
		if remote, ok := e.lookupRemote(id); ok {
			if _, err := remote.Client().CancelTask(ctx, &a2a.CancelTaskRequest{ID: execCtx.TaskID}); err != nil {
				log.Warn(ctx, "failed to cancel the remote task", "agent", id, "error", err)
			}
		}
	}
	return a2asrv.NewTaskUpdater(execCtx, AgentID, q).Cancel(ctx)
}

func (e *Executor) lookupRemote(id a2a.AgentID) (*Remote, bool) {
	agent, ok := e.registry.Lookup(id)
	if !ok {
		return nil, false
	}
	remote, ok := agent.(*Remote)
	return remote, ok
}

// execution holds the state of a single router invocation.
type execution struct {
	execCtx   *a2asrv.ExecutorContext
	updater   *a2asrv.TaskUpdater
	streaming bool
	// view is the task as seen by the next agent
	view *a2a.Task
	hops int
}

func (e *Executor) run(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer, streaming bool) error {
	view, err := utils.DeepCopy(execCtx.Task)
	if err != nil {
		return fmt.Errorf("failed to copy task: %w", err)
	}
	if view == nil {
		view = a2a.NewSubmittedTask(execCtx, execCtx.Message)
	}
	exec := &execution{
		execCtx:   execCtx,
		updater:   a2asrv.NewTaskUpdater(execCtx, AgentID, q),
		streaming: streaming,
		view:      view,
	}

	finished := e.metrics.ExecutionStarted()
	defer func() { finished(exec.hops) }()

	if err := exec.updater.StartWork(ctx); err != nil {
		return err
	}

	decision, strategy, err := e.route(ctx, execCtx)
	if errors.Is(err, a2a.ErrUnroutable) {
		e.metrics.RoutingFailure("unroutable")
		return exec.updater.RequireInput(ctx, ClarificationText, "")
	}
	if err != nil {
		e.metrics.RoutingFailure("strategy_error")
		log.Error(ctx, "routing failed", err)
		return exec.updater.Fail(ctx, fmt.Errorf("routing failed: %w", err))
	}

	msg := execCtx.Message
	for {
		if exec.hops >= e.maxHops {
			e.metrics.RoutingFailure("hop_limit")
			log.Warn(ctx, "hop limit exceeded", "hops", exec.hops, "next", decision.Target)
			return exec.updater.Fail(ctx, a2a.NewError(a2a.ErrHopLimitExceeded, fmt.Sprintf("forwarding hop limit of %d exceeded", e.maxHops)))
		}
		agent, ok := e.registry.Lookup(decision.Target)
		if !ok {
			e.metrics.RoutingFailure("unknown_agent")
			return exec.updater.Fail(ctx, a2a.NewError(a2a.ErrUnroutable, fmt.Sprintf("no agent is registered as %q", decision.Target)))
		}

		exec.hops++
		e.metrics.RoutingDecision(string(agent.ID()), strategy)
		log.Info(ctx, "dispatching message", "target", agent.ID(), "reason", decision.Reason, "hop", exec.hops)
		routing := RoutingDecision{Message: msg.Text(), TargetAgent: agent.ID(), Reason: decision.Reason}
		if _, err := exec.updater.AddArtifact(ctx, ArtifactName, a2a.NewDataPart(routing)); err != nil {
			return err
		}

		final, err := e.dispatch(ctx, exec, agent, msg)
		if err != nil {
			e.metrics.RoutingFailure("agent_error")
			log.Warn(ctx, "agent invocation failed", "agent", agent.ID(), "error", err)
			return exec.updater.Fail(ctx, err)
		}

		handoff, ok := a2a.HandoffFrom(final)
		if !ok || final.Status.State.Terminal() {
			return exec.updater.Publish(ctx, final)
		}
		if isDuplicateForward(exec.view, final, handoff) {
			e.metrics.RoutingFailure("duplicate_forward")
			log.Warn(ctx, "duplicate forward suppressed", "from", agent.ID(), "to", handoff.To)
			return exec.updater.Publish(ctx, final)
		}

		if _, ok := e.registry.Lookup(handoff.To); !ok {
			e.metrics.RoutingFailure("unknown_agent")
			return exec.updater.Fail(ctx, a2a.NewError(a2a.ErrUnroutable, fmt.Sprintf("agent %s handed off to %q which is not registered", agent.ID(), handoff.To)))
		}

		relayed := *final
		relayed.Final = false
		if err := exec.publish(ctx, &relayed); err != nil {
			return err
		}

		forward, err := a2a.NewMessage(agent.ID(), handoff.To, handoff.Content)
		if err != nil {
			return exec.updater.Fail(ctx, err)
		}
		forward.TaskID, forward.ContextID = execCtx.TaskID, execCtx.ContextID
		forward.Debug = &a2a.DebugInfo{Sender: agent.ID(), Receiver: handoff.To, AgentUsed: agent.ID()}
		if err := exec.publish(ctx, a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateWorking, forward)); err != nil {
			return err
		}
		e.metrics.Forward(string(agent.ID()), string(handoff.To))

		msg = forward
		strategy = "handoff"
		decision = Decision{Target: handoff.To, Reason: fmt.Sprintf("Forwarded by the %s agent", agent.ID())}
	}
}

// route selects the first agent. A task waiting for an answer goes back to the agent which asked.
func (e *Executor) route(ctx context.Context, execCtx *a2asrv.ExecutorContext) (Decision, string, error) {
	if id := activeAgent(execCtx.Task); id != "" {
		if _, ok := e.registry.Lookup(id); ok {
			return Decision{Target: id, Reason: fmt.Sprintf("Continuing the conversation with the %s agent", id)}, "continuation", nil
		}
	}
	decision, err := e.strategy.Route(ctx, execCtx.Message.Text())
	return decision, e.strategy.Name(), err
}

// dispatch invokes the agent and relays its events. The final event is returned without being published.
func (e *Executor) dispatch(ctx context.Context, exec *execution, agent Agent, msg *a2a.Message) (*a2a.TaskStatusUpdateEvent, error) {
	r := &relay{exec: exec}
	switch a := agent.(type) {
	case *Local:
		if err := e.invokeLocal(ctx, exec, a, msg, r); err != nil {
			return nil, err
		}
	case *Remote:
		start := time.Now()
		err := e.invokeRemote(ctx, exec, a, msg, r)
		e.metrics.ObserveRemoteRequest(string(a.ID()), time.Since(start), err)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported agent type %T", agent)
	}

	if r.final == nil {
		return nil, a2a.NewError(a2a.ErrInvalidAgentResponse, fmt.Sprintf("agent %s finished without a final event", agent.ID()))
	}
	return r.final, nil
}

func (e *Executor) invokeLocal(ctx context.Context, exec *execution, agent *Local, msg *a2a.Message, r *relay) error {
	task, err := utils.DeepCopy(exec.view)
	if err != nil {
		return fmt.Errorf("failed to copy task: %w", err)
	}
	hopCtx := &a2asrv.ExecutorContext{
		TaskID:    exec.execCtx.TaskID,
		ContextID: exec.execCtx.ContextID,
		Message:   msg,
		Task:      task,
		Metadata:  exec.execCtx.Metadata,
	}

	if exec.streaming {
		err = agent.Executor().Stream(ctx, hopCtx, r)
	} else {
		err = agent.Executor().Execute(ctx, hopCtx, r)
	}
	if err != nil {
		return fmt.Errorf("agent %s failed: %w", agent.ID(), err)
	}
	return nil
}

func (e *Executor) invokeRemote(ctx context.Context, exec *execution, agent *Remote, msg *a2a.Message, r *relay) error {
	outgoing := *msg
	outgoing.TaskID, outgoing.ContextID = exec.execCtx.TaskID, exec.execCtx.ContextID
	outgoing.Receiver = agent.ID()
	req := &a2a.SendMessageRequest{Message: &outgoing, Metadata: exec.execCtx.Metadata}

	for event, err := range agent.Client().SendStreamingMessage(ctx, req) {
		if err != nil {
			return err
		}
		if err := r.Write(ctx, event); err != nil {
			return err
		}
		if r.final != nil {
			return nil
		}
	}
	return nil
}

// publish writes the event to the router task and applies it to the view.
func (exec *execution) publish(ctx context.Context, event a2a.Event) error {
	if err := exec.updater.Publish(ctx, event); err != nil {
		return err
	}
	status, ok := event.(*a2a.TaskStatusUpdateEvent)
	if !ok {
		return nil
	}
	exec.view.Status = status.Status
	if msg := status.Status.Message; msg != nil {
		if last := exec.view.LastMessage(); last == nil || last.ID != msg.ID {
			exec.view.History = append(exec.view.History, msg)
		}
	}
	exec.view.Context.Merge(a2a.ContextFactsFrom(status))
	return nil
}

// relay is the [eventqueue.Writer] agents invoked by the router write to. Events are stamped with
// the router task identifiers and published immediately, except the final one which is held back.
type relay struct {
	exec  *execution
	final *a2a.TaskStatusUpdateEvent
}

var _ eventqueue.Writer = (*relay)(nil)

func (r *relay) Write(ctx context.Context, event a2a.Event) error {
	if r.final != nil {
		return a2asrv.ErrFinalEventPublished
	}

	ti := r.exec.execCtx.TaskInfo()
	switch v := event.(type) {
	case *a2a.TaskStatusUpdateEvent:
		v.TaskID, v.ContextID = ti.TaskID, ti.ContextID
		if a2a.IsFinal(v) {
			r.final = v
			return nil
		}
	case *a2a.TaskArtifactUpdateEvent:
		v.TaskID, v.ContextID = ti.TaskID, ti.ContextID
	}
	return r.exec.publish(ctx, event)
}

// isDuplicateForward reports whether the handoff content repeats the message preceding the forward.
func isDuplicateForward(view *a2a.Task, final *a2a.TaskStatusUpdateEvent, handoff a2a.Handoff) bool {
	preceding := final.Status.Message
	if preceding == nil {
		preceding = view.LastMessage()
	}
	return preceding != nil && preceding.Text() == handoff.Content
}

// DecisionFromArtifact decodes a routing_decision artifact.
func DecisionFromArtifact(artifact *a2a.Artifact) (*RoutingDecision, error) {
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
		var decision RoutingDecision
		if err := json.Unmarshal(raw, &decision); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", ArtifactName, err)
		}
		return &decision, nil
	}
	return nil, fmt.Errorf("%s artifact has no data part", ArtifactName)
}

// dispatchedAgent returns the target of the latest routing decision of a task which isn't finished.
// The decision is stored before the agent is invoked, so it names the agent of an in-flight hop.
func dispatchedAgent(task *a2a.Task) a2a.AgentID {
	if task == nil || task.Status.State.Terminal() {
		return ""
	}
	for _, artifact := range slices.Backward(task.Artifacts) {
		if artifact.Name != ArtifactName {
			continue
		}
		decision, err := DecisionFromArtifact(artifact)
		if err != nil {
			return ""
		}
		return decision.TargetAgent
	}
	return ""
}

// activeAgent returns the agent a working task waits for, identified by the sender of its status message.
func activeAgent(task *a2a.Task) a2a.AgentID {
	if task == nil || task.Status.State != a2a.TaskStateWorking || task.Status.Message == nil {
		return ""
	}
	sender := task.Status.Message.Sender
	if slices.Contains([]a2a.AgentID{"", AgentID, a2a.AgentUser}, sender) {
		return ""
	}
	return sender
}
