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
	"net/http"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/log"
)

const (
	// WellKnownAgentCardPath is the standard HTTP path for retrieving the agent card.
	WellKnownAgentCardPath = "/.well-known/agent-card.json"
	// LegacyAgentCardPath is the path older A2A clients use for retrieving the agent card.
	LegacyAgentCardPath = "/.well-known/agent.json"
)

// AgentCardProducer creates public AgentCard instances used for agent discovery and capability negotiation.
type AgentCardProducer interface {
	// Card returns a self-describing manifest for an agent: its identity, version,
	// capabilities and skills.
	Card(ctx context.Context) (*a2a.AgentCard, error)
}

// AgentCardJSONProducer creates an AgentCard instances used for agent discovery and capability negotiation as raw json.
type AgentCardJSONProducer interface {
	// CardJSON returns an [a2a.AgentCard] as raw json.
	CardJSON(ctx context.Context) ([]byte, error)
}

// AgentCardProducerFn is a function type which implements [AgentCardProducer].
type AgentCardProducerFn func(ctx context.Context) (*a2a.AgentCard, error)

// Card implements AgentCardProducer.
func (fn AgentCardProducerFn) Card(ctx context.Context) (*a2a.AgentCard, error) {
	return fn(ctx)
}

// NewStaticAgentCardHandler creates an [http.Handler] implementation for serving a PUBLIC [a2a.AgentCard]
// which is not expected to change while the program is running.
// The information contained in this card can be queried from any origin.
// The method panics if the card is invalid or can not be marshaled.
func NewStaticAgentCardHandler(card *a2a.AgentCard) http.Handler {
	if err := card.Validate(); err != nil {
		panic(err.Error())
	}
	bytes, err := json.Marshal(card)
	if err != nil {
		panic(err.Error())
	}
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := attachLogger(req)
		if req.Method == http.MethodOptions {
			writePublicCardHTTPOptions(rw, req)
			rw.WriteHeader(http.StatusOK)
			return
		}
		if req.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeAgentCardBytes(ctx, rw, req, bytes)
	})
}

// NewAgentCardHandler creates an [http.Handler] implementation for serving a PUBLIC [a2a.AgentCard].
// The information contained in this card can be queried from any origin.
func NewAgentCardHandler(producer AgentCardProducer) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := attachLogger(req)
		if req.Method == http.MethodOptions {
			writePublicCardHTTPOptions(rw, req)
			rw.WriteHeader(http.StatusOK)
			return
		}
		if req.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if producer, ok := producer.(AgentCardJSONProducer); ok {
			cardBytes, err := producer.CardJSON(ctx)
			if err != nil {
				log.Error(ctx, "agent card producer failed", err)
				rw.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeAgentCardBytes(ctx, rw, req, cardBytes)
			return
		}

		card, err := producer.Card(ctx)
		if err != nil {
			log.Error(ctx, "agent card producer failed", err)
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		cardBytes, err := json.Marshal(card)
		if err != nil {
			log.Error(ctx, "agent card marshaling failed", err)
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeAgentCardBytes(ctx, rw, req, cardBytes)
	})
}

// HandleAgentCard registers the agent card handler under the well-known and the legacy paths.
func HandleAgentCard(mux *http.ServeMux, handler http.Handler) {
	mux.Handle(WellKnownAgentCardPath, handler)
	mux.Handle(LegacyAgentCardPath, handler)
}

func attachLogger(req *http.Request) context.Context {
	logger := log.LoggerFrom(req.Context())
	withAttrs := logger.With(
		"method", req.Method,
		"host", req.Host,
		"remote_addr", req.RemoteAddr,
	)
	return log.AttachLogger(req.Context(), withAttrs)
}

func writePublicCardHTTPOptions(rw http.ResponseWriter, req *http.Request) {
	writeCORSHeaders(rw, req)
	rw.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	rw.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	rw.Header().Set("Access-Control-Max-Age", "86400")
}

func writeAgentCardBytes(ctx context.Context, rw http.ResponseWriter, req *http.Request, bytes []byte) {
	writeCORSHeaders(rw, req)
	rw.Header().Set("Content-Type", "application/json")
	if _, err := rw.Write(bytes); err != nil {
		log.Error(ctx, "failed to write agent card response", err)
	}
}

func writeCORSHeaders(rw http.ResponseWriter, req *http.Request) {
	origin := req.Header.Get("Origin")
	if origin != "" {
		rw.Header().Set("Access-Control-Allow-Origin", origin)
		rw.Header().Set("Access-Control-Allow-Credentials", "true")
		rw.Header().Set("Vary", "Origin")
	} else {
		rw.Header().Set("Access-Control-Allow-Origin", "*")
	}
}
