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

package router

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2aclient"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
)

// Agent is an agent the router can dispatch tasks to. It is either [*Local] or [*Remote].
type Agent interface {
	// ID returns the identifier the agent is registered under.
	ID() a2a.AgentID
	// Card returns the card describing the agent.
	Card() *a2a.AgentCard

	isAgent()
}

// Local is an agent invoked in the router process.
type Local struct {
	id       a2a.AgentID
	executor a2asrv.AgentExecutor
	card     *a2a.AgentCard
}

// NewLocal creates an in-process agent.
func NewLocal(id a2a.AgentID, executor a2asrv.AgentExecutor, card *a2a.AgentCard) *Local {
	return &Local{id: id, executor: executor, card: card}
}

// ID implements [Agent].
func (l *Local) ID() a2a.AgentID { return l.id }

// Card implements [Agent].
func (l *Local) Card() *a2a.AgentCard { return l.card }

// Executor returns the agent implementation.
func (l *Local) Executor() a2asrv.AgentExecutor { return l.executor }

func (*Local) isAgent() {}

// Remote is an agent called over the network. Its events are relayed to the router task in order.
type Remote struct {
	id     a2a.AgentID
	client *a2aclient.Client
	card   *a2a.AgentCard
}

// NewRemote creates an agent reachable with the client. A nil card means the card the client was created from.
func NewRemote(id a2a.AgentID, client *a2aclient.Client, card *a2a.AgentCard) *Remote {
	if card == nil {
		card = client.Card()
	}
	return &Remote{id: id, client: client, card: card}
}

// ID implements [Agent].
func (r *Remote) ID() a2a.AgentID { return r.id }

// Card implements [Agent].
func (r *Remote) Card() *a2a.AgentCard { return r.card }

// Client returns the client used for reaching the agent.
func (r *Remote) Client() *a2aclient.Client { return r.client }

func (*Remote) isAgent() {}

// Registry maps agent identifiers to agents. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[a2a.AgentID]Agent
}

// NewRegistry creates a registry with the provided agents.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{agents: make(map[a2a.AgentID]Agent)}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds the agent to the registry. An agent already registered under the same identifier
// is replaced only by a card with a higher version.
func (r *Registry) Register(agent Agent) error {
	if agent == nil || agent.ID() == "" {
		return fmt.Errorf("agent identifier is required: %w", a2a.ErrInvalidParams)
	}
	card := agent.Card()
	if card == nil {
		return fmt.Errorf("agent %s has no card: %w", agent.ID(), a2a.ErrInvalidParams)
	}
	if err := card.Validate(); err != nil {
		return fmt.Errorf("agent %s: %w", agent.ID(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.agents[agent.ID()]; ok {
		newVersion, oldVersion := a2a.CanonicalVersion(card.Version), a2a.CanonicalVersion(existing.Card().Version)
		if semver.Compare(newVersion, oldVersion) <= 0 {
			return fmt.Errorf("agent %s is already registered with version %s: %w", agent.ID(), existing.Card().Version, a2a.ErrInvalidParams)
		}
	}
	r.agents[agent.ID()] = agent
	return nil
}

// Lookup returns the agent registered under id.
func (r *Registry) Lookup(id a2a.AgentID) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// IDs returns the sorted identifiers of all registered agents.
func (r *Registry) IDs() []a2a.AgentID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]a2a.AgentID, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
