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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/a2aproject/a2a-orchestrator/a2a"
	"github.com/a2aproject/a2a-orchestrator/a2asrv"
	"github.com/a2aproject/a2a-orchestrator/log"
	"github.com/a2aproject/a2a-orchestrator/search"
	"github.com/a2aproject/a2a-orchestrator/wishlist"
)

// WishlistArtifactName is the name of the artifact holding [wishlist.Entry] data parts.
const WishlistArtifactName = "wishlist"

// attrWishlistItem is awaited when the product to add to the wishlist is ambiguous.
const attrWishlistItem = "wishlist_item"

// recentResultsSize bounds the number of conversations whose last search results are remembered.
const recentResultsSize = 1024

var (
	// no trailing \b, it doesn't match after a non-ASCII letter
	wishlistPattern    = regexp.MustCompile(`(?i)\b(wishlist|wish list|list[aeyię] życzeń)`)
	wishlistAddPattern = regexp.MustCompile(`(?i)\b(add|save|put|dodaj|zapisz)`)
	ordinalPattern     = regexp.MustCompile(`(?i)(?:#|\bnumber\s+|\bnr\.?\s*|\bno\.\s*|^\s*)(\d+)\b|\b(first|second|third|fourth|fifth|pierwsz|drug|trzeci|czwart|piąt)`)
	alertPattern       = regexp.MustCompile(`(?i)\b(alert|notify|powiadom)`)
)

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"pierwsz": 1, "drug": 2, "trzeci": 3, "czwart": 4, "piąt": 5,
}

// WithWishlist sets the store of wishlists. Wishlists belong to a conversation context.
func WithWishlist(store wishlist.Store) Option {
	return func(e *Executor) {
		if store != nil {
			e.wishlists = store
		}
	}
}

// isWishlistRequest reports whether the message is about the wishlist, including the answer to
// the question which product to add.
func isWishlistRequest(execCtx *a2asrv.ExecutorContext) bool {
	if execCtx.Message == nil {
		return false
	}
	return pendingAttribute(execCtx.Task) == attrWishlistItem || wishlistPattern.MatchString(execCtx.Message.Text())
}

func (e *Executor) runWishlist(ctx context.Context, execCtx *a2asrv.ExecutorContext, updater *a2asrv.TaskUpdater) error {
	text := execCtx.Message.Text()
	owner := execCtx.ContextID
	if pendingAttribute(execCtx.Task) != attrWishlistItem && !wishlistAddPattern.MatchString(text) {
		return e.listWishlist(ctx, execCtx, updater, owner)
	}

	product, ok, err := e.pickProduct(ctx, owner, text)
	if err != nil {
		log.Warn(ctx, "product search failed", "error", err)
		return updater.Fail(ctx, fmt.Errorf("product search failed: %w", err))
	}
	if !ok {
		recent, _ := e.recent.Get(owner)
		if len(recent) == 0 {
			return updater.RequireInput(ctx, "Which product should I add to your wishlist?", attrWishlistItem)
		}
		return updater.RequireInput(ctx, fmt.Sprintf("Which one of the %d products should I add? Reply with its number.", len(recent)), attrWishlistItem)
	}

	var alert *float64
	if loc := alertPattern.FindStringIndex(text); loc != nil {
		if v, ok := parseBudget(text[loc[1]:], true); ok {
			alert = &v
		}
	}
	entry := wishlist.FromResult(product, alert)
	if err := e.wishlists.Add(ctx, owner, entry); err != nil {
		return updater.Fail(ctx, fmt.Errorf("saving wishlist entry: %w", err))
	}
	log.Info(ctx, "wishlist entry added", "product", entry.Name, "alert", alert != nil)

	event := a2a.NewArtifactEvent(execCtx, WishlistArtifactName, a2a.NewDataPart(entry))
	event.LastChunk = true
	if err := updater.Publish(ctx, event); err != nil {
		return err
	}
	reply := fmt.Sprintf("Added %s to your wishlist.", entry.Name)
	if alert != nil {
		reply = fmt.Sprintf("Added %s to your wishlist. I will let you know when it costs %s or less.", entry.Name, valueText(*alert))
	}
	return e.complete(ctx, execCtx, updater, reply, "wishlist")
}

// pickProduct selects exactly one product: the one named by its position in the latest results,
// the only latest result or the best match of a product named in the message.
func (e *Executor) pickProduct(ctx context.Context, owner, text string) (search.Result, bool, error) {
	recent, _ := e.recent.Get(owner)
	if n, ok := ordinal(text); ok {
		if n >= 1 && n <= len(recent) {
			return recent[n-1], true, nil
		}
		return search.Result{}, false, nil
	}
	if m := productPattern.FindStringSubmatch(text); m != nil {
		results, err := e.searcher.Search(ctx, strings.ToLower(m[1]), 1)
		if err != nil || len(results) == 0 {
			return search.Result{}, false, err
		}
		return results[0], true, nil
	}
	if len(recent) == 1 {
		return recent[0], true, nil
	}
	return search.Result{}, false, nil
}

func ordinal(text string) (int, bool) {
	m := ordinalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	n, ok := ordinalWords[strings.ToLower(m[2])]
	return n, ok
}

func (e *Executor) listWishlist(ctx context.Context, execCtx *a2asrv.ExecutorContext, updater *a2asrv.TaskUpdater, owner string) error {
	entries, err := e.wishlists.List(ctx, owner)
	if err != nil {
		return updater.Fail(ctx, fmt.Errorf("listing wishlist: %w", err))
	}
	if len(entries) == 0 {
		return e.complete(ctx, execCtx, updater, "Your wishlist is empty.", "wishlist")
	}

	alerts, err := wishlist.CheckAlerts(ctx, e.searcher, entries)
	if err != nil {
		// the list is still useful without fresh prices
		log.Warn(ctx, "price alert check failed", "error", err)
	}
	parts := make([]a2a.Part, len(entries))
	lines := make([]string, len(entries))
	for i, entry := range entries {
		parts[i] = a2a.NewDataPart(entry)
		lines[i] = fmt.Sprintf("%d. %s", i+1, entry.Name)
		if entry.AlertPrice != nil {
			lines[i] += fmt.Sprintf(" (alert at %s)", valueText(*entry.AlertPrice))
		}
	}
	event := a2a.NewArtifactEvent(execCtx, WishlistArtifactName, parts...)
	event.LastChunk = true
	if err := updater.Publish(ctx, event); err != nil {
		return err
	}

	reply := fmt.Sprintf("Your wishlist: %s.", strings.Join(lines, "; "))
	for _, alert := range alerts {
		reply += fmt.Sprintf(" %s now costs %s.", alert.Entry.Name, valueText(alert.Current))
	}
	return e.complete(ctx, execCtx, updater, reply, "wishlist")
}

func (e *Executor) complete(ctx context.Context, execCtx *a2asrv.ExecutorContext, updater *a2asrv.TaskUpdater, text, tool string) error {
	msg := updater.NewMessage(text)
	msg.Debug = &a2a.DebugInfo{Sender: AgentID, Receiver: msg.Receiver, AgentUsed: AgentID, ToolUsed: tool}
	return updater.Publish(ctx, a2a.NewStatusUpdateEvent(execCtx, a2a.TaskStateCompleted, msg))
}
