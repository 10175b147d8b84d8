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
	"fmt"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/a2aproject/a2a-orchestrator/internal/metrics"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// CacheConfig configures a [Cached] searcher. Zero values fall back to defaults.
type CacheConfig struct {
	Size    int
	TTL     time.Duration
	Backend string
	Metrics *metrics.Metrics
}

type cacheEntry struct {
	results  []Result
	storedAt time.Time
}

// Cached serves repeated queries from an LRU cache. Errors are not cached.
type Cached struct {
	next    Searcher
	cache   *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	backend string
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ Searcher = (*Cached)(nil)

// NewCached wraps next with a result cache.
func NewCached(next Searcher, config CacheConfig) (*Cached, error) {
	if config.Size <= 0 {
		config.Size = defaultCacheSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultCacheTTL
	}
	cache, err := lru.New[string, cacheEntry](config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	return &Cached{
		next:    next,
		cache:   cache,
		ttl:     config.TTL,
		backend: config.Backend,
		metrics: config.Metrics,
		now:     time.Now,
	}, nil
}

// Search implements [Searcher].
func (c *Cached) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	key := fmt.Sprintf("%d:%s", limit, strings.ToLower(strings.Join(strings.Fields(query), " ")))

	if entry, ok := c.cache.Get(key); ok {
		if c.now().Sub(entry.storedAt) < c.ttl {
			c.metrics.Search(c.backend, "cache_hit")
			return slices.Clone(entry.results), nil
		}
		c.cache.Remove(key)
	}

	results, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cacheEntry{results: slices.Clone(results), storedAt: c.now()})
	return results, nil
}
