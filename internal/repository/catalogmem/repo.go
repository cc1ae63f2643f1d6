// Package catalogmem keeps catalog items in process memory. It backs the
// memory driver and evaluates predicates with filter.PredicateSet.Match.
package catalogmem

import (
	"context"
	"sort"
	"sync"

	"github.com/kailas-cloud/catalogq/internal/domain"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// Repo is an in-memory catalog safe for concurrent use.
type Repo struct {
	pageSize int

	mu    sync.RWMutex
	items map[string]map[string]domcat.Item // namespace -> id -> item
}

// New creates an empty in-memory catalog.
func New(pageSize int) *Repo {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}
	return &Repo{pageSize: pageSize, items: make(map[string]map[string]domcat.Item)}
}

// Fetch returns the first page of items in ns that satisfy preds, ordered
// by id, with the total number of matches.
func (r *Repo) Fetch(ctx context.Context, ns string, preds filter.PredicateSet) (domcat.Page, error) {
	if err := ctx.Err(); err != nil {
		return domcat.Page{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := r.items[ns]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	page := domcat.Page{Items: []domcat.Item{}}
	for _, id := range ids {
		it := byID[id]
		if !preds.Match(func(field string) []string { return it.Values(field, query.FreeTextField) }) {
			continue
		}
		page.Total++
		if len(page.Items) < r.pageSize {
			page.Items = append(page.Items, it)
		}
	}
	return page, nil
}

// Upsert stores an item in ns. Returns true if it was created.
func (r *Repo) Upsert(_ context.Context, ns string, it domcat.Item) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.items[ns]
	if !ok {
		byID = make(map[string]domcat.Item)
		r.items[ns] = byID
	}
	_, exists := byID[it.ID()]
	byID[it.ID()] = it
	return !exists, nil
}

// Get returns an item by id.
func (r *Repo) Get(_ context.Context, ns, id string) (domcat.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[ns][id]
	if !ok {
		return domcat.Item{}, domain.ErrNotFound
	}
	return it, nil
}

// Delete removes an item.
func (r *Repo) Delete(_ context.Context, ns, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[ns][id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items[ns], id)
	return nil
}
