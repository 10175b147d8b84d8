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

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/a2aproject/a2a-orchestrator/llm"
)

var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(hello|hi|hey|good (morning|afternoon|evening)|cześć|witaj|dzień dobry)\b[\s!.,]*$`)
	wishlistPattern = regexp.MustCompile(`(?i)\b(wishlist|wish list|list[aeyię] życzeń)`)
	shoppingPattern = regexp.MustCompile(`(?i)\b(buy|purchase|order|find|looking for|kupi\w*|szukam|zamów\w*)\b`)
	budgetPattern   = regexp.MustCompile(`(?i)(\d[\d\s]*(zł|pln|usd|eur|\$|€)?\b|budget|under|below|cheap)`)
	productPattern  = regexp.MustCompile(`(?i)\b(laptop|notebook|phone|smartphone|iphone|headphones|tablet|monitor|camera|tv)s?\b`)
)

// Heuristic returns a [llm.Completer] which classifies messages with keyword rules.
// It answers prompts built by [Prompt] with the same JSON a model would produce.
func Heuristic() llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		text := prompt
		if i := strings.LastIndex(prompt, messageMarker); i >= 0 {
			text = prompt[i+len(messageMarker):]
		}
		data, err := json.Marshal(classify(strings.TrimSpace(text)))
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}

func classify(text string) Classification {
	switch {
	case greetingPattern.MatchString(text):
		return Classification{Intent: IntentGeneral, Needs: []string{}, Confidence: 0.98, MissingInfo: []string{}}
	case wishlistPattern.MatchString(text):
		return Classification{Intent: IntentWishlist, Needs: productNeeds(text), Confidence: 0.8, MissingInfo: []string{}}
	case shoppingPattern.MatchString(text) || productPattern.MatchString(text):
		c := Classification{Intent: IntentShopping, Needs: productNeeds(text), Confidence: 0.85, MissingInfo: []string{}}
		if len(c.Needs) == 0 {
			c.MissingInfo = append(c.MissingInfo, "product")
		}
		if !budgetPattern.MatchString(text) {
			c.MissingInfo = append(c.MissingInfo, "budget")
		}
		return c
	default:
		return Classification{Intent: IntentGeneral, Needs: []string{}, Confidence: 0.6, MissingInfo: []string{}}
	}
}

func productNeeds(text string) []string {
	needs := []string{}
	for _, m := range productPattern.FindAllStringSubmatch(text, -1) {
		needs = append(needs, strings.ToLower(m[1]))
	}
	return needs
}
