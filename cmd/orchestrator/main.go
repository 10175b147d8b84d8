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

// Command orchestrator runs the orchestrator, classifier and shopping agents and a chat client for them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/a2aproject/a2a-orchestrator/internal/config"
	"github.com/a2aproject/a2a-orchestrator/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Multi-agent request orchestration over the A2A protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level overriding the configuration")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format overriding the configuration: json, text or color")

	cmd.AddCommand(newServeCommand(opts), newChatCommand(opts))
	return cmd
}

// load reads the configuration and returns a context carrying the configured logger.
func (o *rootOptions) load(ctx context.Context) (context.Context, *config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return ctx, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	logger, err := log.NewLogger(log.Format(cfg.Logging.Format), cfg.Logging.Level)
	if err != nil {
		return ctx, nil, fmt.Errorf("configuring logger: %w", err)
	}
	slog.SetDefault(logger)
	return log.AttachLogger(ctx, logger), cfg, nil
}
