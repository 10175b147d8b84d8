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

package classifier

import "github.com/a2aproject/a2a-orchestrator/a2a"

// Card returns the agent card of the classifier served at url.
func Card(url string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "classifier-agent",
		Description:        "Agent analyzing user intentions and needs.",
		Version:            "0.1.0",
		URL:                url,
		DocumentationURL:   "https://example.com/classifier-agent/docs",
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"application/json"},
		Skills: []a2a.AgentSkill{{
			ID:          "intent-classification",
			Name:        "Intent Classification",
			Description: "Recognizes the intent of a message and the needs it expresses.",
			Tags:        []string{"classification", "intent-detection", "needs-analysis"},
			Examples:    []string{"I want to buy a laptop", "What's the weather like?", "Add this to my wishlist"},
		}},
	}
}
