// Package catalog stores catalog items as Redis or Valkey hashes and
// answers predicate sets through an FT index per namespace.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalogq/internal/db"
	"github.com/kailas-cloud/catalogq/internal/domain"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// scanBatch is the page size used when items must be checked one by one.
const scanBatch = 500

// store is the consumer interface for catalog items (ISP).
//
//nolint:interfacebloat // repo needs hash, index and search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo implements the catalog fetcher and item repository on Redis or Valkey.
type Repo struct {
	store    store
	prefix   string
	pageSize int
}

// New creates a catalog repository. An empty prefix falls back to
// domain.KeyPrefix and a non-positive pageSize to domain.DefaultPageSize.
func New(s store, prefix string, pageSize int) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}
	return &Repo{store: s, prefix: prefix, pageSize: pageSize}
}

// EnsureIndex creates the FT index of ns unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context, ns string) error {
	name := r.indexName(ns)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	b := db.NewIndex(name).
		Prefix(r.keyPrefix(ns)).
		NoStopwords().
		Tag(fieldID).Sortable().
		Text(fieldTitle).
		Text(fieldDescription).
		TagWithOpts(fieldTags, tagSeparator, false).
		Tag(fieldLevel).
		Tag(fieldLanguage)
	if !r.store.SupportsTextSearch(ctx) {
		b = b.WithoutText()
	}
	def, err := b.Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Fetch returns the first page of items in ns that satisfy preds, ordered
// by id, with the total number of matches.
func (r *Repo) Fetch(ctx context.Context, ns string, preds filter.PredicateSet) (domcat.Page, error) {
	p := buildPlan(preds, r.store.SupportsTextSearch(ctx))
	if p.exact {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			Index:  r.indexName(ns),
			Query:  p.query,
			Limit:  r.pageSize,
			SortBy: fieldID,
			Fields: returnFields,
		})
		if err != nil {
			return domcat.Page{}, fmt.Errorf("search %s: %w", ns, err)
		}
		items := make([]domcat.Item, 0, len(res.Entries))
		for _, e := range res.Entries {
			items = append(items, itemFromHash(r.extractID(e.Key, ns), e.Fields))
		}
		return domcat.Page{Items: items, Total: res.Total}, nil
	}
	return r.scan(ctx, ns, p)
}

// scan walks every FT hit and keeps those the residual predicates accept.
func (r *Repo) scan(ctx context.Context, ns string, p plan) (domcat.Page, error) {
	page := domcat.Page{Items: []domcat.Item{}}
	for offset := 0; ; offset += scanBatch {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			Index:  r.indexName(ns),
			Query:  p.query,
			Offset: offset,
			Limit:  scanBatch,
			SortBy: fieldID,
			Fields: returnFields,
		})
		if err != nil {
			return domcat.Page{}, fmt.Errorf("search %s at %d: %w", ns, offset, err)
		}
		for _, e := range res.Entries {
			it := itemFromHash(r.extractID(e.Key, ns), e.Fields)
			if !p.residual.Match(func(field string) []string { return it.Values(field, query.FreeTextField) }) {
				continue
			}
			page.Total++
			if len(page.Items) < r.pageSize {
				page.Items = append(page.Items, it)
			}
		}
		if len(res.Entries) < scanBatch || offset+scanBatch >= res.Total {
			return page, nil
		}
	}
}

// Upsert stores an item in ns. Returns true if it was created.
func (r *Repo) Upsert(ctx context.Context, ns string, it domcat.Item) (bool, error) {
	key := r.itemKey(ns, it.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, itemToHash(it)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	return !exists, nil
}

// Get returns an item by id.
func (r *Repo) Get(ctx context.Context, ns, id string) (domcat.Item, error) {
	key := r.itemKey(ns, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcat.Item{}, domain.ErrNotFound
		}
		return domcat.Item{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return itemFromHash(id, m), nil
}

// Delete removes an item.
func (r *Repo) Delete(ctx context.Context, ns, id string) error {
	key := r.itemKey(ns, id)
	removed, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if !removed {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) keyPrefix(ns string) string {
	return fmt.Sprintf("%s%s:item:", r.prefix, ns)
}

func (r *Repo) itemKey(ns, id string) string {
	return r.keyPrefix(ns) + id
}

func (r *Repo) indexName(ns string) string {
	return fmt.Sprintf("%s%s:idx", r.prefix, ns)
}

func (r *Repo) extractID(key, ns string) string {
	return strings.TrimPrefix(key, r.keyPrefix(ns))
}
