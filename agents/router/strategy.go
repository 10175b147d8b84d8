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
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/agents/classifier"
	"github.com/a2aproject/a2a-orchestrator/agents/shopping"
	"github.com/a2aproject/a2a-orchestrator/llm"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// ClarificationText is the answer to requests no agent was selected for.
const ClarificationText = "I cannot determine which agent should handle this request. Please try rephrasing."

// DefaultKeywords selects shopping and wishlist requests written in English or Polish.
var DefaultKeywords = regexp.MustCompile(`(?i)(kupi|znajd|szukaj|zamów|order|buy|find|product|price|cost|wishlist|wish list|życzeń)`)

// Decision is the agent selected for a message.
type Decision struct {
	Target a2a.AgentID
	Reason string
}

// Strategy selects the agent which should handle a message.
// [a2a.ErrUnroutable] means no agent fits and the user should be asked to rephrase.
type Strategy interface {
	Name() string
	Route(ctx context.Context, text string) (Decision, error)
}

// KeywordStrategy routes messages matching Keywords to Match and all others to Fallback.
type KeywordStrategy struct {
	Keywords *regexp.Regexp
	Match    a2a.AgentID
	Fallback a2a.AgentID
}

var _ Strategy = (*KeywordStrategy)(nil)

// NewKeywordStrategy routes shopping requests to the shopping agent and everything else to the classifier.
func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{Keywords: DefaultKeywords, Match: shopping.AgentID, Fallback: classifier.AgentID}
}

// Name implements [Strategy].
func (s *KeywordStrategy) Name() string { return "keyword" }

// Route implements [Strategy].
func (s *KeywordStrategy) Route(_ context.Context, text string) (Decision, error) {
	if s.Keywords.MatchString(text) {
		return Decision{
			Target: s.Match,
			Reason: fmt.Sprintf("Message contains keywords indicating %s agent should handle it", s.Match),
		}, nil
	}
	return Decision{
		Target: s.Fallback,
		Reason: fmt.Sprintf("Message contains no routing keywords, %s agent handles it by default", s.Fallback),
	}, nil
}

const routingPrompt = `You are a router deciding which agent should handle a user message.
Available agents:
- classifier: analyzes user intentions and needs
- shopping: searches for products and offers
Answer with the name of a single agent. Answer "unknown" if none of them fits.
Message: %s`

// LLMStrategy asks a model to select the agent.
type LLMStrategy struct {
	completer llm.Completer
}

var _ Strategy = (*LLMStrategy)(nil)

// NewLLMStrategy creates a strategy using the completer.
func NewLLMStrategy(completer llm.Completer) *LLMStrategy {
	return &LLMStrategy{completer: completer}
}

// Name implements [Strategy].
func (s *LLMStrategy) Name() string { return "llm" }

// Route implements [Strategy].
func (s *LLMStrategy) Route(ctx context.Context, text string) (Decision, error) {
	answer, err := s.completer.Complete(ctx, fmt.Sprintf(routingPrompt, text))
	if err != nil {
		return Decision{}, fmt.Errorf("routing completion failed: %w", err)
	}

	normalized := strings.ToLower(answer)
	var target a2a.AgentID
	switch {
	case strings.Contains(normalized, "classifier"), strings.Contains(normalized, "analyzer"):
		target = classifier.AgentID
	case strings.Contains(normalized, "shopping"), strings.Contains(normalized, "shop"):
		target = shopping.AgentID
	default:
		log.Info(ctx, "model selected no agent", "answer", answer)
		return Decision{}, fmt.Errorf("model answered %q: %w", answer, a2a.ErrUnroutable)
	}
	return Decision{Target: target, Reason: fmt.Sprintf("Model selected the %s agent", target)}, nil
}
