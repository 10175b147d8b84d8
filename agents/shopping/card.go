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

package shopping

import "github.com/a2aproject/a2a-orchestrator/a2a"

// Card returns the agent card of the shopping agent served at url.
func Card(url string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "shopping-agent",
		Description:        "Agent searching for products on the internet.",
		Version:            "0.1.0",
		URL:                url,
		DocumentationURL:   "https://example.com/shopping-agent/docs",
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain", "application/json"},
		Skills: []a2a.AgentSkill{{
			ID:          "product-search",
			Name:        "Product Search",
			Description: "Finds products matching the user's needs and budget.",
			Tags:        []string{"search", "shopping", "products"},
			Examples:    []string{"Find the latest iPhone.", "I'm looking for a laptop under 3000."},
		}, {
			ID:          "wishlist",
			Name:        "Wishlist",
			Description: "Saves one of the found products to the wishlist, with an optional price alert, and lists it.",
			Tags:        []string{"wishlist", "price alert"},
			Examples:    []string{"Add #2 to my wishlist and alert me below 1500.", "Show my wishlist."},
		}},
	}
}
