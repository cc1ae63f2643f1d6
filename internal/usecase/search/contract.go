package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/catalogq/internal/cache"
	"github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// Fetcher loads the catalog page matching a predicate set.
type Fetcher interface {
	Fetch(ctx context.Context, ns string, preds filter.PredicateSet) (catalog.Page, error)
}

// Cache is the result cache the service reads through (ISP).
type Cache interface {
	Lookup(ns, sig string) (catalog.Page, bool)
	Peek(ns, sig string) (cache.Entry[catalog.Page], bool)
	Epoch(ns string) uint64
	StoreIfCurrent(ns, sig string, page catalog.Page, ttl time.Duration, epoch uint64) (bool, error)
	Invalidate(ns string, sigs ...string) int
}
