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
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/taskstore"
	"github.com/a2aproject/a2a-orchestrator/agents/classifier"
	"github.com/a2aproject/a2a-orchestrator/agents/router"
	"github.com/a2aproject/a2a-orchestrator/agents/shopping"
	"github.com/a2aproject/a2a-orchestrator/internal/config"
	"github.com/a2aproject/a2a-orchestrator/internal/metrics"
	"github.com/a2aproject/a2a-orchestrator/log"
)

const shutdownTimeout = 5 * time.Second

var servable = []string{"orchestrator", "classifier", "shopping", "all"}

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "serve <orchestrator|classifier|shopping|all>",
		Short:     "Serve one or all agents over JSON-RPC",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: servable,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			return serve(ctx, cfg, args[0])
		},
	}
}

// agentServer is a single agent exposed on its own address.
type agentServer struct {
	id       a2a.AgentID
	endpoint config.AgentEndpoint
	card     *a2a.AgentCard
	executor a2asrv.AgentExecutor
	store    taskstore.Store
}

func serve(ctx context.Context, cfg *config.Config, which string) error {
	if !slices.Contains(servable, which) {
		return fmt.Errorf("unknown agent %q", which)
	}
	comps, err := newComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			log.Warn(ctx, "failed to release resources", "error", err)
		}
	}()

	var servers []agentServer
	if which == "orchestrator" || which == "all" {
		executor, err := comps.newRouter()
		if err != nil {
			return err
		}
		store, err := comps.newTaskStore(ctx)
		if err != nil {
			return err
		}
		servers = append(servers, agentServer{
			id:       router.AgentID,
			endpoint: cfg.Agents.Orchestrator,
			card:     router.Card(cfg.Agents.Orchestrator.URL),
			executor: executor,
			store:    store,
		})
	}
	if which == "classifier" || which == "all" {
		servers = append(servers, agentServer{
			id:       classifier.AgentID,
			endpoint: cfg.Agents.Classifier,
			card:     classifier.Card(cfg.Agents.Classifier.URL),
			executor: comps.newClassifier(),
			store:    taskstore.NewInMemory(nil),
		})
	}
	if which == "shopping" || which == "all" {
		servers = append(servers, agentServer{
			id:       shopping.AgentID,
			endpoint: cfg.Agents.Shopping,
			card:     shopping.Card(cfg.Agents.Shopping.URL),
			executor: comps.newShopping(),
			store:    taskstore.NewInMemory(nil),
		})
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		srv := &http.Server{
			Addr:              s.endpoint.Addr(),
			Handler:           newAgentMux(ctx, s),
			ReadHeaderTimeout: 10 * time.Second,
		}
		group.Go(func() error {
			log.Info(ctx, "agent listening", "agent", s.id, "addr", srv.Addr, "url", s.endpoint.URL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("agent %s server failed: %w", s.id, err)
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return group.Wait()
}

func newAgentMux(ctx context.Context, s agentServer) http.Handler {
	handler := a2asrv.NewHandler(s.executor,
		a2asrv.WithAgentID(s.id),
		a2asrv.WithTaskStore(s.store),
		a2asrv.WithCapabilityChecks(&s.card.Capabilities),
		a2asrv.WithLogger(log.LoggerFrom(ctx).With("agent", s.id)),
	)
	jsonrpcHandler := a2asrv.NewJSONRPCHandler(handler, a2asrv.WithKeepAlive(15*time.Second))

	mux := http.NewServeMux()
	mux.Handle("/", jsonrpcHandler)
	mux.Handle("/invoke", jsonrpcHandler)
	mux.Handle(a2asrv.ChatPath, a2asrv.NewChatHandler(handler, s.id))
	a2asrv.HandleAgentCard(mux, a2asrv.NewStaticAgentCardHandler(s.card))
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	return mux
}
