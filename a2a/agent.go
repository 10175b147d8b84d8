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

package a2a

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// AgentID identifies an agent within a deployment, for example "classifier" or "shopping".
type AgentID string

// AgentUser is the identifier used as a sender of messages which come from a human user.
const AgentUser AgentID = "user"

// AgentCard is a self-describing manifest for an agent. It provides essential
// metadata including the agent's identity, capabilities and skills.
type AgentCard struct {
	// Name is a human-readable name for the agent.
	Name string `json:"name" yaml:"name"`

	// Description is a human-readable description of the agent.
	Description string `json:"description" yaml:"description"`

	// Version is the agent's own version number in semantic versioning format.
	Version string `json:"version" yaml:"version"`

	// URL is the address at which the agent accepts requests.
	URL string `json:"url" yaml:"url"`

	// DocumentationURL is an optional URL to the agent's documentation.
	DocumentationURL string `json:"documentationUrl,omitempty" yaml:"documentationUrl,omitempty"`

	// Capabilities is a declaration of optional capabilities supported by the agent.
	Capabilities AgentCapabilities `json:"capabilities" yaml:"capabilities"`

	// DefaultInputModes is a default set of supported input MIME types for all skills.
	DefaultInputModes []string `json:"defaultInputModes" yaml:"defaultInputModes"`

	// DefaultOutputModes is a default set of supported output MIME types for all skills.
	DefaultOutputModes []string `json:"defaultOutputModes" yaml:"defaultOutputModes"`

	// Skills is the set of skills that the agent can perform.
	Skills []AgentSkill `json:"skills" yaml:"skills"`
}

// Validate checks that the card has a name, an URL and a semantic version.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card name is required: %w", ErrInvalidParams)
	}
	if c.URL == "" {
		return fmt.Errorf("agent card %q url is required: %w", c.Name, ErrInvalidParams)
	}
	if !semver.IsValid(CanonicalVersion(c.Version)) {
		return fmt.Errorf("agent card %q version %q is not a semantic version: %w", c.Name, c.Version, ErrInvalidParams)
	}
	return nil
}

// CanonicalVersion returns the card version with a "v" prefix as expected by semver comparison.
func CanonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// AgentCapabilities define optional capabilities supported by an agent.
type AgentCapabilities struct {
	// Streaming indicates if the agent supports streaming responses.
	Streaming bool `json:"streaming" yaml:"streaming"`

	// PushNotifications indicates if the agent supports sending push notifications for asynchronous task updates.
	PushNotifications bool `json:"pushNotifications" yaml:"pushNotifications"`

	// StateTransitionHistory indicates if the agent provides a history of state transitions for a task.
	StateTransitionHistory bool `json:"stateTransitionHistory" yaml:"stateTransitionHistory"`
}

// AgentSkill represents a distinct capability or function that an agent can perform.
type AgentSkill struct {
	// ID is a unique identifier for the agent's skill.
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable name for the skill.
	Name string `json:"name" yaml:"name"`

	// Description is a detailed description of the skill.
	Description string `json:"description" yaml:"description"`

	// Tags is a set of keywords describing the skill's capabilities.
	Tags []string `json:"tags" yaml:"tags"`

	// Examples are example prompts or scenarios that this skill can handle.
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`

	// InputModes is the set of supported input MIME types for this skill, overriding the agent's defaults.
	InputModes []string `json:"inputModes,omitempty" yaml:"inputModes,omitempty"`

	// OutputModes is the set of supported output MIME types for this skill, overriding the agent's defaults.
	OutputModes []string `json:"outputModes,omitempty" yaml:"outputModes,omitempty"`
}
