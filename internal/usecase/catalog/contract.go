package catalog

import (
	"context"

	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

// Repository defines the storage contract for catalog items.
type Repository interface {
	Upsert(ctx context.Context, ns string, it domcat.Item) (created bool, err error)
	Get(ctx context.Context, ns, id string) (domcat.Item, error)
	Delete(ctx context.Context, ns, id string) error
}

// SearchCache is the part of the search service that item writes touch:
// namespace lookup and cache invalidation.
type SearchCache interface {
	Vocabulary(ns string) (query.Vocabulary, error)
	Invalidate(ns string, raws ...string) (int, error)
}
