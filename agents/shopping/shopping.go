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

// Package shopping implements an agent which collects the details of a purchase and searches for products.
package shopping

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/a2asrv/eventqueue"
	"github.com/a2aproject/a2a-orchestrator/llm"
	"github.com/a2aproject/a2a-orchestrator/log"
	"github.com/a2aproject/a2a-orchestrator/search"
	"github.com/a2aproject/a2a-orchestrator/wishlist"
)

// AgentID identifies the shopping agent.
const AgentID a2a.AgentID = "shopping"

// ArtifactName is the name of the artifact holding [search.Result] data parts.
const ArtifactName = "search_results"

// budgetOverfetch multiplies the search limit when results are filtered by price afterwards.
const budgetOverfetch = 4

var defaultQuestions = map[string]string{
	AttrProduct: "What product are you looking for?",
	AttrBudget:  "What is your budget?",
}

// Option configures an [Executor].
type Option func(*Executor)

// WithRequiredAttributes sets the attributes which must be known before searching, in the order they are asked about.
func WithRequiredAttributes(attrs ...string) Option {
	return func(e *Executor) {
		if len(attrs) > 0 {
			e.required = attrs
		}
	}
}

// WithSearchLimit sets the maximum number of returned products.
func WithSearchLimit(limit int) Option {
	return func(e *Executor) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// WithCompleter enables model-based extraction of attributes the rules didn't recognize.
func WithCompleter(completer llm.Completer) Option {
	return func(e *Executor) {
		if completer != nil {
			e.extractors = append(e.extractors, CompletionExtractor(completer))
		}
	}
}

// WithQuestion overrides the follow-up question asked about attr.
func WithQuestion(attr, question string) Option {
	return func(e *Executor) {
		e.questions[attr] = question
	}
}

// Executor is an [a2asrv.AgentExecutor] which asks about missing purchase details one at a time
// and searches for products once all of them are known. Known details are stored in [a2a.Task.Context].
type Executor struct {
	searcher   search.Searcher
	required   []string
	limit      int
	extractors []Extractor
	questions  map[string]string
	wishlists  wishlist.Store
	recent     *lru.Cache[string, []search.Result]
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

// New creates a shopping agent using the provided product search.
func New(searcher search.Searcher, opts ...Option) *Executor {
	e := &Executor{
		searcher:   searcher,
		required:   []string{AttrProduct, AttrBudget},
		limit:      search.DefaultLimit,
		extractors: []Extractor{RuleExtractor()},
		questions:  make(map[string]string),
		wishlists:  wishlist.NewInMemory(),
	}
	// the size is positive
	e.recent, _ = lru.New[string, []search.Result](recentResultsSize)
	for k, v := range defaultQuestions {
		e.questions[k] = v
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute implements [a2asrv.AgentExecutor]. Search results are published as a single artifact.
func (e *Executor) Execute(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return e.run(ctx, execCtx, q, false)
}

// Stream implements [a2asrv.AgentExecutor]. Every search result is published as a separate artifact chunk.
func (e *Executor) Stream(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return e.run(ctx, execCtx, q, true)
}

// Cancel implements [a2asrv.AgentExecutor].
func (e *Executor) Cancel(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer) error {
	return a2asrv.NewTaskUpdater(execCtx, AgentID, q).Cancel(ctx)
}

func (e *Executor) run(ctx context.Context, execCtx *a2asrv.ExecutorContext, q eventqueue.Writer, chunked bool) error {
	updater := a2asrv.NewTaskUpdater(execCtx, AgentID, q)
	if isWishlistRequest(execCtx) {
		return e.runWishlist(ctx, execCtx, updater)
	}

	known := a2a.TaskContext{}
	if execCtx.Task != nil {
		known = execCtx.Task.Context.Clone()
	}
	facts := e.gather(ctx, execCtx, known)

	working := a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateWorking, nil)
	working.SetContextFacts(facts)
	if err := updater.Publish(ctx, working); err != nil {
		return err
	}
	known.Merge(facts)

	for _, attr := range e.required {
		if !known.Has(attr) {
			log.Info(ctx, "asking about a missing attribute", "attribute", attr)
			return updater.RequireInput(ctx, e.question(attr), attr)
		}
	}

	product := valueText(known[AttrProduct])
	budget, hasBudget := budgetOf(known)
	limit := e.limit
	if hasBudget {
		limit *= budgetOverfetch
	}
	results, err := e.searcher.Search(ctx, e.query(known), limit)
	if err != nil {
		log.Warn(ctx, "product search failed", "error", err)
		return updater.Fail(ctx, fmt.Errorf("product search failed: %w", err))
	}
	if hasBudget {
		results = withinBudget(results, budget)
	}
	if len(results) > e.limit {
		results = results[:e.limit]
	}
	log.Info(ctx, "products found", "query", product, "count", len(results))
	e.recent.Add(execCtx.ContextID, results)

	if len(results) > 0 {
		if err := e.publishResults(ctx, execCtx, updater, results, chunked); err != nil {
			return err
		}
	}

	return e.complete(ctx, execCtx, updater, summary(product, known, results), "search")
}

// gather returns the facts found in the latest message which aren't known yet.
func (e *Executor) gather(ctx context.Context, execCtx *a2asrv.ExecutorContext, known a2a.TaskContext) map[string]any {
	var missing []string
	for _, attr := range e.required {
		if !known.Has(attr) {
			missing = append(missing, attr)
		}
	}
	if len(missing) == 0 || execCtx.Message == nil {
		return nil
	}

	text := execCtx.Message.Text()
	facts := extractAll(ctx, e.extractors, text, missing)

	pending := pendingAttribute(execCtx.Task)
	if pending == AttrBudget && slices.Contains(missing, AttrBudget) && facts[AttrBudget] == nil {
		if budget, ok := parseBudget(text, true); ok {
			facts[AttrBudget] = budget
		}
	}
	// a reply to a question answers it even when no extractor recognized the value
	if len(facts) == 0 && pending != "" && !known.Has(pending) && strings.TrimSpace(text) != "" {
		facts[pending] = strings.TrimSpace(text)
	}
	return facts
}

func (e *Executor) question(attr string) string {
	if q, ok := e.questions[attr]; ok {
		return q
	}
	return fmt.Sprintf("Please provide the %s.", strings.ReplaceAll(attr, "_", " "))
}

// query joins the text attributes other than the budget.
func (e *Executor) query(known a2a.TaskContext) string {
	var parts []string
	for _, attr := range e.required {
		if attr == AttrBudget {
			continue
		}
		if v := valueText(known[attr]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (e *Executor) publishResults(ctx context.Context, execCtx *a2asrv.ExecutorContext, updater *a2asrv.TaskUpdater, results []search.Result, chunked bool) error {
	if !chunked {
		parts := make([]a2a.Part, len(results))
		for i, r := range results {
			parts[i] = a2a.NewDataPart(r)
		}
		event := a2a.NewArtifactEvent(execCtx, ArtifactName, parts...)
		event.LastChunk = true
		return updater.Publish(ctx, event)
	}

	first := a2a.NewArtifactEvent(execCtx, ArtifactName, a2a.NewDataPart(results[0]))
	first.LastChunk = len(results) == 1
	if err := updater.Publish(ctx, first); err != nil {
		return err
	}
	for i, r := range results[1:] {
		chunk := a2a.NewArtifactUpdateEvent(execCtx, first.Artifact.ID, a2a.NewDataPart(r))
		chunk.LastChunk = i == len(results)-2
		if err := updater.Publish(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// pendingAttribute returns the attribute the task is waiting for an answer about.
func pendingAttribute(task *a2a.Task) string {
	if task == nil || task.Status.State != a2a.TaskStateWorking || task.Status.Message == nil {
		return ""
	}
	attr, _ := task.Status.Message.Metadata[a2a.MetaAwaitingAttribute].(string)
	return attr
}

func budgetOf(known a2a.TaskContext) (float64, bool) {
	switch v := known[AttrBudget].(type) {
	case float64:
		return v, v > 0
	case int:
		return float64(v), v > 0
	case string:
		return parseBudget(v, true)
	default:
		return 0, false
	}
}

func withinBudget(results []search.Result, budget float64) []search.Result {
	var filtered []search.Result
	for _, r := range results {
		if r.Price == nil || *r.Price <= budget {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func valueText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func summary(product string, known a2a.TaskContext, results []search.Result) string {
	budget := valueText(known[AttrBudget])
	if len(results) == 0 {
		return fmt.Sprintf("I couldn't find any %s within the budget of %s.", product, budget)
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return fmt.Sprintf("Found %d offers for %s within the budget of %s: %s.", len(results), product, budget, strings.Join(names, "; "))
}
