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

import "github.com/a2aproject/a2a-orchestrator/a2a"

// Card returns the agent card of the orchestrator served at url.
func Card(url string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "orchestrator-agent",
		Description:        "Agent responsible for coordinating and routing requests to specialized agents.",
		Version:            "0.1.0",
		URL:                url,
		DocumentationURL:   "https://example.com/orchestrator-agent/docs",
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain", "application/json"},
		Skills: []a2a.AgentSkill{{
			ID:          "orchestration",
			Name:        "Request Orchestration",
			Description: "Routes requests to the agent best suited to handle them and follows handoffs between agents.",
			Tags:        []string{"orchestration", "routing", "coordination"},
			Examples:    []string{"I want to buy a laptop", "Hello"},
		}},
	}
}
