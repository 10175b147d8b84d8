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

package search

import (
	"context"
	"slices"
	"strings"
	"unicode"
)

// Static searches an in-memory product catalog. Products are ranked by the number of query
// words found in their name and features.
type Static struct {
	products []Result
}

// NewStatic creates a searcher over the provided products.
func NewStatic(products ...Result) *Static {
	return &Static{products: slices.Clone(products)}
}

// Search implements [Searcher].
func (s *Static) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := tokenize(query)
	type scored struct {
		result Result
		score  int
	}
	var matches []scored
	for _, p := range s.products {
		haystack := strings.ToLower(p.Name + " " + p.Features)
		score := 0
		for _, w := range words {
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{result: p, score: score})
		}
	}

	slices.SortStableFunc(matches, func(a, b scored) int {
		return b.score - a.score
	})

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.result)
	}
	return truncate(results, limit), nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			words = append(words, f)
		}
	}
	return words
}
