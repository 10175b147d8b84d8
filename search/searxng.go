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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a2aproject/a2a-orchestrator/log"
)

// SearXNG queries the JSON API of a SearXNG instance. Prices are not available from web results.
type SearXNG struct {
	endpoint   string
	httpClient *http.Client
	categories string
}

// SearXNGOption configures a [SearXNG] searcher.
type SearXNGOption func(*SearXNG)

// WithSearXNGHTTPClient overrides the default client with a 10 second timeout.
func WithSearXNGHTTPClient(client *http.Client) SearXNGOption {
	return func(s *SearXNG) {
		s.httpClient = client
	}
}

// WithCategories restricts the search to the provided comma-separated categories.
func WithCategories(categories string) SearXNGOption {
	return func(s *SearXNG) {
		s.categories = categories
	}
}

// NewSearXNG creates a searcher for the instance at baseURL.
func NewSearXNG(baseURL string, opts ...SearXNGOption) (*SearXNG, error) {
	endpoint, err := url.JoinPath(baseURL, "search")
	if err != nil {
		return nil, fmt.Errorf("invalid searxng url: %w", err)
	}
	s := &SearXNG{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		categories: "general",
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements [Searcher].
func (s *SearXNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if s.categories != "" {
		params.Set("categories", s.categories)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close search response body", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed: %s", resp.Status)
	}

	var payload searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]Result, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.URL == "" {
			continue
		}
		name := strings.TrimSpace(r.Title)
		if name == "" {
			name = r.URL
		}
		results = append(results, Result{Name: name, URL: r.URL, Features: strings.TrimSpace(r.Content)})
	}
	return truncate(results, limit), nil
}
