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

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/a2aproject/a2a-orchestrator/llm"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// Well-known attributes.
const (
	AttrProduct = "product"
	AttrBudget  = "budget"
)

// Extractor finds values of the wanted attributes in a message.
// Attributes which are not mentioned are absent from the result.
type Extractor interface {
	Extract(ctx context.Context, text string, wanted []string) (map[string]any, error)
}

// ExtractorFunc is a function type implementing [Extractor].
type ExtractorFunc func(ctx context.Context, text string, wanted []string) (map[string]any, error)

// Extract implements [Extractor].
func (fn ExtractorFunc) Extract(ctx context.Context, text string, wanted []string) (map[string]any, error) {
	return fn(ctx, text, wanted)
}

var (
	productPattern = regexp.MustCompile(`(?i)\b(laptop|notebook|smartphone|iphone|phone|headphones|tablet|monitor|camera|tv)s?\b`)
	// amountPattern captures a budget cue, a currency prefix, the integer and fractional part of
	// an amount and its suffix. Integers may be grouped by spaces as in "3 000".
	amountPattern = regexp.MustCompile(`(?i)(?:\b(under|below|less than|up to|max|maximum|budget|around|about|do|poniżej|maksymalnie|budżet|około)(?:\s+(?:is|of|to))?:?\s+)?([$€]\s?)?(\d{1,3}(?:\s\d{3})+|\d+)(?:[.,](\d+))?\s?(k\b|zł|zl\b|pln\b|usd\b|eur\b|\$|€|dollars?\b|złotych)?`)
)

// RuleExtractor recognizes product names and budgets with regular expressions. Only amounts
// marked as a budget by a cue word, a currency or a "k" suffix count, so "iPhone 15" is not a budget.
func RuleExtractor() Extractor {
	return ExtractorFunc(func(_ context.Context, text string, wanted []string) (map[string]any, error) {
		found := map[string]any{}
		if slices.Contains(wanted, AttrProduct) {
			if m := productPattern.FindStringSubmatch(text); m != nil {
				found[AttrProduct] = strings.ToLower(m[1])
			}
		}
		if slices.Contains(wanted, AttrBudget) {
			if budget, ok := parseBudget(text, false); ok {
				found[AttrBudget] = budget
			}
		}
		return found, nil
	})
}

// parseBudget returns the largest amount in the text. "under 3 000", "2500.50 zł" and "3k" are
// recognized. Plain numbers count only when bare is set, which is the case for an answer to
// the budget question.
func parseBudget(text string, bare bool) (float64, bool) {
	var budget float64
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		cue, prefix, integer, fraction, suffix := m[1], m[2], m[3], m[4], strings.ToLower(m[5])
		if !bare && cue == "" && prefix == "" && suffix == "" {
			continue
		}
		if v, ok := parseAmount(integer, fraction, suffix == "k"); ok && v > budget {
			budget = v
		}
	}
	return budget, budget > 0
}

func parseAmount(integer, fraction string, thousands bool) (float64, bool) {
	s := strings.Join(strings.Fields(integer), "")
	if fraction != "" {
		s += "." + fraction
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if thousands {
		v *= 1000
	}
	return v, true
}

const extractionPrompt = `Extract the following attributes from the user message: %s.
Respond only with a JSON object containing the attributes mentioned in the message. Use numbers for amounts.
Message: %s`

// CompletionExtractor asks a model to extract the attributes. Malformed answers are repaired when possible.
func CompletionExtractor(completer llm.Completer) Extractor {
	return ExtractorFunc(func(ctx context.Context, text string, wanted []string) (map[string]any, error) {
		completion, err := completer.Complete(ctx, fmt.Sprintf(extractionPrompt, strings.Join(wanted, ", "), text))
		if err != nil {
			return nil, fmt.Errorf("attribute extraction failed: %w", err)
		}
		payload, err := jsonrepair.JSONRepair(llm.StripCodeFence(completion))
		if err != nil {
			return nil, fmt.Errorf("malformed attribute extraction %q: %w", completion, err)
		}
		var values map[string]any
		if err := json.Unmarshal([]byte(payload), &values); err != nil {
			return nil, fmt.Errorf("malformed attribute extraction %q: %w", completion, err)
		}
		found := map[string]any{}
		for _, attr := range wanted {
			if v, ok := values[attr]; ok && !isEmpty(v) {
				found[attr] = v
			}
		}
		return found, nil
	})
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

// extractAll runs the extractors in order, earlier results win.
func extractAll(ctx context.Context, extractors []Extractor, text string, wanted []string) map[string]any {
	found := map[string]any{}
	for _, ex := range extractors {
		missing := slices.DeleteFunc(slices.Clone(wanted), func(attr string) bool {
			_, ok := found[attr]
			return ok
		})
		if len(missing) == 0 {
			break
		}
		values, err := ex.Extract(ctx, text, missing)
		if err != nil {
			log.Warn(ctx, "attribute extraction failed", "error", err)
			continue
		}
		for _, attr := range missing {
			if v, ok := values[attr]; ok {
				found[attr] = v
			}
		}
	}
	return found
}
