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

package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2aclient"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/taskstore"
	"github.com/a2aproject/a2a-orchestrator/agents/classifier"
	"github.com/a2aproject/a2a-orchestrator/agents/router"
	"github.com/a2aproject/a2a-orchestrator/agents/shopping"
	"github.com/a2aproject/a2a-orchestrator/internal/config"
	"github.com/a2aproject/a2a-orchestrator/internal/metrics"
	"github.com/a2aproject/a2a-orchestrator/llm"
	"github.com/a2aproject/a2a-orchestrator/llm/anthropic"
	"github.com/a2aproject/a2a-orchestrator/llm/openai"
	"github.com/a2aproject/a2a-orchestrator/log"
	"github.com/a2aproject/a2a-orchestrator/search"
	"github.com/a2aproject/a2a-orchestrator/wishlist"
)

// components holds the collaborators shared by all agents served by the process.
type components struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	completer llm.Completer
	searcher  search.Searcher
	wishlists wishlist.Store
	db        *sql.DB
	closers   []func() error
}

func newComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{cfg: cfg, metrics: metrics.Default()}

	completer, err := newCompleter(cfg.LLM, c.metrics)
	if err != nil {
		return nil, err
	}
	c.completer = completer

	searcher, err := newSearcher(cfg.Search, c.metrics)
	if err != nil {
		return nil, err
	}
	c.searcher = searcher

	wishlists, err := c.newWishlist(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.wishlists = wishlists

	log.Info(ctx, "components ready", "llm", cfg.LLM.Provider, "search", cfg.Search.Backend, "store", cfg.Store.Driver)
	return c, nil
}

func (c *components) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newCompleter returns nil for the "none" provider.
func newCompleter(cfg config.LLMConfig, m *metrics.Metrics) (llm.Completer, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "openai":
		completer := openai.New(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
		return llm.Instrumented(completer, cfg.Provider, m), nil
	case "anthropic":
		completer := anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		})
		return llm.Instrumented(completer, cfg.Provider, m), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func newSearcher(cfg config.SearchConfig, m *metrics.Metrics) (search.Searcher, error) {
	var backend search.Searcher
	switch cfg.Backend {
	case "static":
		backend = search.NewStatic(search.DemoCatalog()...)
	case "searxng":
		searxng, err := search.NewSearXNG(cfg.URL)
		if err != nil {
			return nil, err
		}
		backend = searxng
	default:
		return nil, fmt.Errorf("unsupported search backend %q", cfg.Backend)
	}
	backend = search.Instrumented(backend, cfg.Backend, m)
	if cfg.CacheSize <= 0 {
		return backend, nil
	}
	return search.NewCached(backend, search.CacheConfig{
		Size:    cfg.CacheSize,
		TTL:     cfg.CacheTTL.Std(),
		Backend: cfg.Backend,
		Metrics: m,
	})
}

// database opens the configured database once. Callers check for the "memory" driver first.
func (c *components) database(ctx context.Context) (*sql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := sql.Open(c.cfg.Store.Driver, c.cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	c.closers = append(c.closers, db.Close)
	c.db = db
	return db, nil
}

// newTaskStore creates the store of the orchestrator. Sub-agents keep their tasks in memory
// because remote hops reuse the orchestrator task identifiers.
func (c *components) newTaskStore(ctx context.Context) (taskstore.Store, error) {
	if c.cfg.Store.Driver == "memory" {
		return taskstore.NewInMemory(nil), nil
	}
	db, err := c.database(ctx)
	if err != nil {
		return nil, err
	}
	return taskstore.NewSQL(ctx, db, taskstore.Dialect(c.cfg.Store.Driver))
}

// newWishlist keeps wishlists next to the tasks.
func (c *components) newWishlist(ctx context.Context) (wishlist.Store, error) {
	if c.cfg.Store.Driver == "memory" {
		return wishlist.NewInMemory(), nil
	}
	db, err := c.database(ctx)
	if err != nil {
		return nil, err
	}
	return wishlist.NewSQL(ctx, db, wishlist.Dialect(c.cfg.Store.Driver))
}

func (c *components) newClassifier() *classifier.Executor {
	var opts []classifier.Option
	if c.cfg.Router.ClassifierHandoff {
		opts = append(opts, classifier.WithHandoff(shopping.AgentID))
	}
	return classifier.New(c.completer, opts...)
}

func (c *components) newShopping() *shopping.Executor {
	return shopping.New(c.searcher,
		shopping.WithRequiredAttributes(c.cfg.Shopping.RequiredAttributes...),
		shopping.WithSearchLimit(c.cfg.Shopping.SearchLimit),
		shopping.WithCompleter(c.completer),
		shopping.WithWishlist(c.wishlists),
	)
}

func (c *components) newRouter() (*router.Executor, error) {
	classifierAgent, err := c.agent(classifier.AgentID, c.cfg.Agents.Classifier, classifier.Card(c.cfg.Agents.Classifier.URL), func() a2asrv.AgentExecutor {
		return c.newClassifier()
	})
	if err != nil {
		return nil, err
	}
	shoppingAgent, err := c.agent(shopping.AgentID, c.cfg.Agents.Shopping, shopping.Card(c.cfg.Agents.Shopping.URL), func() a2asrv.AgentExecutor {
		return c.newShopping()
	})
	if err != nil {
		return nil, err
	}
	registry, err := router.NewRegistry(classifierAgent, shoppingAgent)
	if err != nil {
		return nil, err
	}

	opts := []router.Option{router.WithMaxHops(c.cfg.Router.MaxHops), router.WithMetrics(c.metrics)}
	if c.cfg.Router.Strategy == "llm" {
		opts = append(opts, router.WithStrategy(router.NewLLMStrategy(c.completer)))
	}
	return router.New(registry, opts...), nil
}

func (c *components) agent(id a2a.AgentID, endpoint config.AgentEndpoint, card *a2a.AgentCard, local func() a2asrv.AgentExecutor) (router.Agent, error) {
	if !endpoint.Remote {
		return router.NewLocal(id, local(), card), nil
	}
	client, err := a2aclient.NewFromCard(card,
		a2aclient.WithRetryPolicy(c.cfg.Network.Retries, c.cfg.Network.RetryDelay.Std()),
		a2aclient.WithConnectTimeout(c.cfg.Network.Timeout.Std()),
		a2aclient.WithStreamIdleTimeout(c.cfg.Network.StreamIdleTimeout.Std()),
	)
	if err != nil {
		return nil, err
	}
	return router.NewRemote(id, client, card), nil
}
