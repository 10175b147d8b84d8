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

// Package wishlist stores products a user wants to buy later, optionally with a price alert.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a2aproject/a2a-orchestrator/search"
)

// ErrInvalidEntry is returned when an entry can't be stored.
var ErrInvalidEntry = errors.New("invalid wishlist entry")

// Entry is a single product saved to a wishlist.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Price      *float64  `json:"price,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	AlertPrice *float64  `json:"alert_price,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// FromResult creates an entry for a search result. A nil alert disables the price alert.
func FromResult(r search.Result, alert *float64) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Name:       r.Name,
		URL:        r.URL,
		Price:      r.Price,
		Currency:   r.Currency,
		AlertPrice: alert,
		AddedAt:    time.Now().UTC(),
	}
}

// Store keeps wishlists of many owners. Entries are listed in the order they were added.
type Store interface {
	Add(ctx context.Context, owner string, entry Entry) error
	List(ctx context.Context, owner string) ([]Entry, error)
}

func validate(owner string, entry Entry) error {
	if owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidEntry)
	}
	if entry.ID == "" || entry.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidEntry)
	}
	if entry.AlertPrice != nil && *entry.AlertPrice <= 0 {
		return fmt.Errorf("%w: alert price must be positive", ErrInvalidEntry)
	}
	return nil
}

// InMemory is a [Store] which loses its contents on restart.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty [InMemory] store.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string][]Entry)}
}

// Add implements [Store].
func (s *InMemory) Add(ctx context.Context, owner string, entry Entry) error {
	if err := validate(owner, entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[owner] = append(s.entries[owner], entry)
	return nil
}

// List implements [Store].
func (s *InMemory) List(ctx context.Context, owner string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries[owner]), nil
}

// Alert reports a wishlist entry whose product is offered at or below its alert price.
type Alert struct {
	Entry   Entry
	Current float64
}

// CheckAlerts searches for every entry with an alert price and returns the ones which can now be bought
// for at most that price. Offers are matched by URL.
func CheckAlerts(ctx context.Context, searcher search.Searcher, entries []Entry) ([]Alert, error) {
	var alerts []Alert
	for _, entry := range entries {
		if entry.AlertPrice == nil {
			continue
		}
		results, err := searcher.Search(ctx, entry.Name, search.DefaultLimit)
		if err != nil {
			return nil, fmt.Errorf("checking price of %q: %w", entry.Name, err)
		}
		for _, r := range results {
			if r.URL == entry.URL && r.Price != nil && *r.Price <= *entry.AlertPrice {
				alerts = append(alerts, Alert{Entry: entry, Current: *r.Price})
				break
			}
		}
	}
	return alerts, nil
}
