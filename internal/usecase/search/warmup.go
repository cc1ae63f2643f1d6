package search

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// warmupLimit bounds concurrent warmup fetches.
const warmupLimit = 4

// Warmup runs the given queries per namespace so their pages are cached
// before traffic arrives. Failures are logged, not returned; the returned
// count is the number of queries that succeeded. Only ctx cancellation is
// reported as an error.
func (s *Service) Warmup(ctx context.Context, queries map[string][]string) (int, error) {
	namespaces := make([]string, 0, len(queries))
	for ns := range queries {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var warmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupLimit)

	for _, ns := range namespaces {
		for _, raw := range queries[ns] {
			ns, raw := ns, raw
			g.Go(func() error {
				if _, err := s.Search(Isolated(gctx), raw, ns); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					s.logger.Warn("Warmup query failed",
						zap.String("namespace", ns),
						zap.String("query", raw),
						zap.Error(err),
					)
					return nil
				}
				warmed.Add(1)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return int(warmed.Load()), err
	}
	s.logger.Info("Cache warmup finished", zap.Int64("queries", warmed.Load()))
	return int(warmed.Load()), nil
}
