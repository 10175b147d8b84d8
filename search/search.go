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

// Package search defines the product search collaborator and its implementations.
package search

import (
	"context"
	"time"

	"github.com/a2aproject/a2a-orchestrator/internal/metrics"
	"github.com/a2aproject/a2a-orchestrator/log"
)

// DefaultLimit is the number of results requested by agents.
const DefaultLimit = 5

// Result is a single product found by a search.
type Result struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Features string   `json:"features"`
	Price    *float64 `json:"price"`
	Currency string   `json:"currency,omitempty"`
}

// Searcher looks up at most limit products matching the query. Results are ordered by relevance.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// SearcherFunc is a function type implementing [Searcher].
type SearcherFunc func(ctx context.Context, query string, limit int) ([]Result, error)

// Search implements [Searcher].
func (fn SearcherFunc) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	return fn(ctx, query, limit)
}

// Instrumented wraps a Searcher to log calls and count them under the backend label.
func Instrumented(s Searcher, backend string, m *metrics.Metrics) Searcher {
	return SearcherFunc(func(ctx context.Context, query string, limit int) ([]Result, error) {
		start := time.Now()
		results, err := s.Search(ctx, query, limit)
		if err != nil {
			m.Search(backend, "error")
			log.Warn(ctx, "product search failed", "backend", backend, "query", query, "error", err)
			return nil, err
		}
		m.Search(backend, "ok")
		log.Debug(ctx, "product search finished", "backend", backend, "query", query, "results", len(results), "duration", time.Since(start))
		return results, nil
	})
}

func truncate(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
