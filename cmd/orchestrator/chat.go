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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2aclient"
	"github.com/a2aproject/a2a-orchestrator/a2aclient/agentcard"
	"github.com/a2aproject/a2a-orchestrator/agents/router"
)

var (
	agentColor    = color.New(color.FgCyan, color.Bold).SprintFunc()
	artifactColor = color.New(color.FgGreen).SprintFunc()
	stateColor    = color.New(color.FgHiBlack).SprintFunc()
	errorColor    = color.New(color.FgRed).SprintFunc()
)

type chatOptions struct {
	url      string
	noStream bool
	resolve  bool
	oneShot  string
	receiver string
	history  string
}

func newChatCommand(root *rootOptions) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to an agent interactively",
		Long: "Reads messages from stdin and prints the events streamed back by the agent.\n" +
			"Messages continue the current task until it reaches a terminal state.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			if opts.url == "" {
				opts.url = cfg.Agents.Orchestrator.URL
			}
			client, err := newChatClient(ctx, opts)
			if err != nil {
				return err
			}
			session := &chatSession{client: client, receiver: a2a.AgentID(opts.receiver), stream: !opts.noStream, out: cmd.OutOrStdout()}
			if opts.oneShot != "" {
				return session.send(ctx, opts.oneShot)
			}
			in := io.NopCloser(cmd.InOrStdin())
			if f, ok := cmd.InOrStdin().(*os.File); ok {
				in = readline.NewCancelableStdin(f)
			}
			return session.run(ctx, in, opts.history)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "agent URL, defaults to the configured orchestrator URL")
	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "use the non-streaming chat endpoint")
	cmd.Flags().BoolVar(&opts.resolve, "resolve-card", false, "fetch the agent card and use the URL it advertises")
	cmd.Flags().StringVarP(&opts.oneShot, "message", "m", "", "send a single message and exit")
	cmd.Flags().StringVar(&opts.receiver, "receiver", string(router.AgentID), "identifier of the agent messages are addressed to")
	cmd.Flags().StringVar(&opts.history, "history", defaultHistoryFile(), "file keeping the input history, empty disables it")
	return cmd
}

func newChatClient(ctx context.Context, opts *chatOptions) (*a2aclient.Client, error) {
	if !opts.resolve {
		return a2aclient.NewClient(opts.url), nil
	}
	card, err := agentcard.NewResolver(nil).Resolve(ctx, opts.url)
	if err != nil {
		return nil, fmt.Errorf("resolving agent card: %w", err)
	}
	return a2aclient.NewFromCard(card)
}

type chatSession struct {
	client   *a2aclient.Client
	receiver a2a.AgentID
	stream   bool
	out      io.Writer

	taskID    a2a.TaskID
	contextID string
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".a2a-orchestrator-history")
}

// run reads messages with line editing and history until /quit, Ctrl+D or Ctrl+C on an empty line.
func (s *chatSession) run(ctx context.Context, in io.ReadCloser, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      500,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
		Stdin:             in,
		Stdout:            s.out,
		Stderr:            s.out,
	})
	if err != nil {
		return fmt.Errorf("initializing line editor: %w", err)
	}
	defer func() { _ = rl.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = rl.Close() })
	defer stop()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := s.send(ctx, line); err != nil {
			fmt.Fprintln(s.out, errorColor(err.Error()))
		}
	}
}

func (s *chatSession) send(ctx context.Context, text string) error {
	if !s.stream {
		resp, err := s.client.Chat(ctx, &a2a.ChatRequest{Content: text, TaskID: s.taskID, ContextID: s.contextID})
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, agentColor(string(s.receiver)+":"), resp.Response)
		s.track(resp.TaskID, resp.ContextID, resp.State)
		return nil
	}

	msg, err := a2a.NewMessage(a2a.AgentUser, s.receiver, text)
	if err != nil {
		return err
	}
	msg.TaskID, msg.ContextID = s.taskID, s.contextID

	for event, err := range s.client.SendStreamingMessage(ctx, &a2a.SendMessageRequest{Message: msg}) {
		if err != nil {
			return err
		}
		s.print(event)
		if status, ok := event.(*a2a.TaskStatusUpdateEvent); ok {
			s.track(status.TaskID, status.ContextID, status.Status.State)
		}
	}
	return nil
}

// track keeps the task for the next message unless it reached a terminal state.
func (s *chatSession) track(taskID a2a.TaskID, contextID string, state a2a.TaskState) {
	s.contextID = contextID
	if state.Terminal() {
		s.taskID = ""
		return
	}
	s.taskID = taskID
}

func (s *chatSession) print(event a2a.Event) {
	switch v := event.(type) {
	case *a2a.TaskStatusUpdateEvent:
		if msg := v.Status.Message; msg != nil {
			fmt.Fprintf(s.out, "%s %s\n", agentColor(string(msg.Sender)+":"), msg.Text())
		}
		if v.Final || v.Status.State.Terminal() {
			fmt.Fprintln(s.out, stateColor(fmt.Sprintf("[%s]", v.Status.State)))
		}
	case *a2a.TaskArtifactUpdateEvent:
		name := v.Artifact.Name
		if v.Append {
			name = "+" + shortID(v.Artifact.ID)
		}
		for _, p := range v.Artifact.Parts {
			fmt.Fprintf(s.out, "%s %s\n", artifactColor(name), partText(p))
		}
	}
}

func partText(p a2a.Part) string {
	switch v := p.(type) {
	case a2a.TextPart:
		return v.Text
	case a2a.DataPart:
		data, err := json.Marshal(v.Data)
		if err != nil {
			return fmt.Sprint(v.Data)
		}
		return string(data)
	default:
		return fmt.Sprint(p)
	}
}

func shortID(id a2a.ArtifactID) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
