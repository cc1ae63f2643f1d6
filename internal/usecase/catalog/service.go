// Package catalog manages catalog items and keeps the search cache
// consistent with every successful write.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/catalogq/internal/domain"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
)

// Draft holds the caller-supplied attributes of an item.
type Draft struct {
	Title       string
	Description string
	Level       string
	Language    string
	Tags        []string
}

// Service handles item writes and reads.
type Service struct {
	repo   Repository
	search SearchCache
}

// New creates a catalog service.
func New(repo Repository, search SearchCache) *Service {
	return &Service{repo: repo, search: search}
}

// Upsert creates or replaces the item id in ns and drops the cached pages
// of ns. Returns true if the item was created.
func (s *Service) Upsert(ctx context.Context, ns, id string, d Draft) (domcat.Item, bool, error) {
	if _, err := s.search.Vocabulary(ns); err != nil {
		return domcat.Item{}, false, err
	}
	it, err := domcat.NewItem(id, d.Title, d.Description, d.Level, d.Language, d.Tags)
	if err != nil {
		return domcat.Item{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	created, err := s.repo.Upsert(ctx, ns, it)
	if err != nil {
		return domcat.Item{}, false, fmt.Errorf("upsert item: %w", err)
	}
	if _, err := s.search.Invalidate(ns); err != nil {
		return domcat.Item{}, false, fmt.Errorf("invalidate %s: %w", ns, err)
	}
	return it, created, nil
}

// Create stores a new item under a generated id.
func (s *Service) Create(ctx context.Context, ns string, d Draft) (domcat.Item, error) {
	it, _, err := s.Upsert(ctx, ns, uuid.NewString(), d)
	return it, err
}

// Get returns an item by id.
func (s *Service) Get(ctx context.Context, ns, id string) (domcat.Item, error) {
	if _, err := s.search.Vocabulary(ns); err != nil {
		return domcat.Item{}, err
	}
	it, err := s.repo.Get(ctx, ns, id)
	if err != nil {
		return domcat.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// Delete removes an item and drops the cached pages of ns.
func (s *Service) Delete(ctx context.Context, ns, id string) error {
	if _, err := s.search.Vocabulary(ns); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ns, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if _, err := s.search.Invalidate(ns); err != nil {
		return fmt.Errorf("invalidate %s: %w", ns, err)
	}
	return nil
}
