// Package catalogq embeds the catalog query engine: searches written as
// "tag:go level:beginner intro" run against a namespaced catalog through a
// result cache that de-duplicates and invalidates on writes.
package catalogq

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/catalogq/internal/app"
	"github.com/kailas-cloud/catalogq/internal/config"
	cataloguc "github.com/kailas-cloud/catalogq/internal/usecase/catalog"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

// Client is the catalogq SDK entry point.
type Client struct {
	app *app.App
}

// New creates a Client, opens its storage and starts background cache
// maintenance. Without options it serves namespace "catalog" from memory.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}
	var o clientOptions
	for _, opt := range opts {
		opt.apply(cfg, &o)
	}
	cfg.HTTP.Port = 1 // the client serves no HTTP
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("catalogq: %w", err)
	}

	a, err := app.New(ctx, cfg, o.logger, app.Options{Instrument: o.instrument})
	if err != nil {
		return nil, fmt.Errorf("catalogq: %w", err)
	}
	a.Start(context.WithoutCancel(ctx))
	return &Client{app: a}, nil
}

// Close stops background work and releases storage.
func (c *Client) Close() error {
	return c.app.Close()
}

// Ping checks storage connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.app.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Namespaces returns the served namespaces, sorted.
func (c *Client) Namespaces() []string {
	return c.app.Search.Namespaces()
}

// WithSession scopes supersession to one caller: a newer Search under the
// same id cancels the older one's outstanding fetch. Searches without a
// session supersede other sessionless searches of the namespace.
func WithSession(ctx context.Context, id string) context.Context {
	return searchuc.WithSession(ctx, id)
}

// Isolated marks ctx so its searches neither supersede nor get superseded.
func Isolated(ctx context.Context) context.Context {
	return searchuc.Isolated(ctx)
}

// Search returns the page matching raw in ns.
func (c *Client) Search(ctx context.Context, raw, ns string) (Page, error) {
	p, err := c.app.Search.Search(ctx, raw, ns)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return fromPage(p), nil
}

// Refetch drops the cached page of raw in ns and searches again.
func (c *Client) Refetch(ctx context.Context, raw, ns string) (Page, error) {
	p, err := c.app.Search.Refetch(ctx, raw, ns)
	if err != nil {
		return Page{}, fmt.Errorf("refetch: %w", err)
	}
	return fromPage(p), nil
}

// Explain shows how raw is understood in ns without fetching.
func (c *Client) Explain(raw, ns string) (Explanation, error) {
	ex, err := c.app.Search.Explain(raw, ns)
	if err != nil {
		return Explanation{}, fmt.Errorf("explain: %w", err)
	}
	return fromExplanation(ex), nil
}

// Invalidate drops cached pages of ns: those of raws, or all when none are given.
func (c *Client) Invalidate(ns string, raws ...string) (int, error) {
	n, err := c.app.Search.Invalidate(ns, raws...)
	if err != nil {
		return 0, fmt.Errorf("invalidate: %w", err)
	}
	return n, nil
}

// Upsert creates or replaces it in ns and reports whether it was created.
// Cached pages of ns are dropped.
func (c *Client) Upsert(ctx context.Context, ns string, it Item) (bool, error) {
	_, created, err := c.app.Catalog.Upsert(ctx, ns, it.ID, cataloguc.Draft{
		Title:       it.Title,
		Description: it.Description,
		Level:       it.Level,
		Language:    it.Language,
		Tags:        it.Tags,
	})
	if err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}
	return created, nil
}

// Get returns the item id of ns.
func (c *Client) Get(ctx context.Context, ns, id string) (Item, error) {
	it, err := c.app.Catalog.Get(ctx, ns, id)
	if err != nil {
		return Item{}, fmt.Errorf("get: %w", err)
	}
	return fromItem(it), nil
}

// Delete removes the item id of ns and drops the cached pages of ns.
func (c *Client) Delete(ctx context.Context, ns, id string) error {
	if err := c.app.Catalog.Delete(ctx, ns, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
