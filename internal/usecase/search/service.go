// Package search runs raw query strings against a namespace: it parses and
// translates them, serves cached pages and fetches on a miss.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/catalogq/internal/domain"
	"github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// Metrics are the optional collectors the service reports to. Nil fields
// are skipped.
type Metrics struct {
	FetchTotal    *prometheus.CounterVec   // labels: namespace, status
	FetchDuration *prometheus.HistogramVec // labels: namespace
	DedupTotal    *prometheus.CounterVec   // labels: namespace
}

// flight is one outstanding fetch. scopes holds the supersession scopes
// still waiting for it; the fetch is cancelled when the last one moves on.
// epoch is the cache epoch of the namespace when the flight started.
type flight struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc
	scopes map[string]struct{}
	epoch  uint64
	done   bool
}

// Service is the query facade.
type Service struct {
	fetcher Fetcher
	cache   Cache
	vocabs  map[string]query.Vocabulary
	metrics Metrics
	logger  *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	latest  map[string]string  // scope -> key of its newest search
	flights map[string]*flight // key -> outstanding fetch
}

// New creates a search service. vocabs lists the served namespaces and the
// field vocabulary of each.
func New(
	fetcher Fetcher,
	c Cache,
	vocabs map[string]query.Vocabulary,
	m Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher: fetcher,
		cache:   c,
		vocabs:  vocabs,
		metrics: m,
		logger:  logger,
		latest:  make(map[string]string),
		flights: make(map[string]*flight),
	}
}

// Namespaces returns the served namespaces, sorted.
func (s *Service) Namespaces() []string {
	out := make([]string, 0, len(s.vocabs))
	for ns := range s.vocabs {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Vocabulary returns the field vocabulary of ns.
func (s *Service) Vocabulary(ns string) (query.Vocabulary, error) {
	if ns == "" {
		return query.Vocabulary{}, fmt.Errorf("namespace is required: %w", domain.ErrUnknownNamespace)
	}
	v, ok := s.vocabs[ns]
	if !ok {
		return query.Vocabulary{}, fmt.Errorf("namespace %q: %w", ns, domain.ErrUnknownNamespace)
	}
	return v, nil
}

// Search returns the page matching raw in ns, from cache when a live entry
// exists. Identical concurrent searches share one fetch. A newer search in
// the same scope cancels an older outstanding fetch, whose callers receive
// domain.ErrSuperseded. Fetch failures are returned as *domain.FetchError
// and are never cached.
func (s *Service) Search(ctx context.Context, raw, ns string) (catalog.Page, error) {
	p, err := s.plan(raw, ns)
	if err != nil {
		return catalog.Page{}, err
	}
	return s.run(ctx, p)
}

// Refetch drops the cached page for raw in ns and searches again.
func (s *Service) Refetch(ctx context.Context, raw, ns string) (catalog.Page, error) {
	p, err := s.plan(raw, ns)
	if err != nil {
		return catalog.Page{}, err
	}
	s.cache.Invalidate(ns, p.sig)
	return s.run(ctx, p)
}

// Invalidate drops cached pages of ns: those of the given raw queries, or
// all of them when none are given. It returns the number of entries removed.
func (s *Service) Invalidate(ns string, raws ...string) (int, error) {
	vocab, err := s.Vocabulary(ns)
	if err != nil {
		return 0, err
	}
	if len(raws) == 0 {
		return s.cache.Invalidate(ns), nil
	}
	sigs := make([]string, 0, len(raws))
	for _, raw := range raws {
		sigs = append(sigs, filter.Translate(query.ParseString(raw, vocab)).Signature())
	}
	return s.cache.Invalidate(ns, sigs...), nil
}

type plan struct {
	ns    string
	raw   string
	query query.Query
	preds filter.PredicateSet
	sig   string
}

func (s *Service) plan(raw, ns string) (plan, error) {
	vocab, err := s.Vocabulary(ns)
	if err != nil {
		return plan{}, err
	}
	q := query.ParseString(raw, vocab)
	preds := filter.Translate(q)
	return plan{ns: ns, raw: raw, query: q, preds: preds, sig: preds.Signature()}, nil
}

func (s *Service) run(ctx context.Context, p plan) (catalog.Page, error) {
	for _, d := range p.query.Diagnostics() {
		s.logger.Debug("Query degraded to free text",
			zap.String("namespace", p.ns),
			zap.Int("pos", d.Pos),
			zap.String("text", d.Text),
			zap.String("reason", d.Reason),
		)
	}

	key := p.ns + "\x00" + p.sig
	sc := scope(ctx, p.ns)
	s.supersede(sc, key)
	defer s.release(sc, key)

	if page, ok := s.cache.Lookup(p.ns, p.sig); ok {
		return page, nil
	}

	ch := s.join(ctx, sc, key, p)
	select {
	case res := <-ch:
		if res.Shared && s.metrics.DedupTotal != nil {
			s.metrics.DedupTotal.WithLabelValues(p.ns).Inc()
		}
		if res.Err != nil {
			return catalog.Page{}, res.Err
		}
		page, _ := res.Val.(catalog.Page)
		return page, nil
	case <-ctx.Done():
		return catalog.Page{}, ctx.Err()
	}
}

// supersede records key as the newest search of sc and withdraws sc from
// the fetch of its previous search, cancelling that fetch when no other
// scope waits for it.
func (s *Service) supersede(sc, key string) {
	if sc == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.latest[sc]
	s.latest[sc] = key
	if prev == "" || prev == key {
		return
	}
	f, ok := s.flights[prev]
	if !ok || f.done {
		return
	}
	delete(f.scopes, sc)
	if len(f.scopes) > 0 {
		return
	}
	f.cancel()
	s.group.Forget(prev)
	delete(s.flights, prev)
	s.logger.Debug("Superseded outstanding fetch", zap.String("key", prev))
}

func (s *Service) release(sc, key string) {
	if sc == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest[sc] == key {
		delete(s.latest, sc)
	}
}

// join registers sc on the flight for key and subscribes to its result,
// starting the fetch when none is outstanding. Registration and subscription
// happen under one lock so a cancelled flight is never joined. A flight that
// started before the namespace was last invalidated is left to its current
// callers and a fresh one is started.
func (s *Service) join(ctx context.Context, sc, key string, p plan) <-chan singleflight.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	epoch := s.cache.Epoch(p.ns)
	f, ok := s.flights[key]
	if ok && !f.done && f.epoch != epoch {
		s.group.Forget(key)
		delete(s.flights, key)
		s.logger.Debug("Detached fetch started before invalidation",
			zap.String("namespace", p.ns),
			zap.String("signature", p.sig),
		)
		ok = false
	}
	if !ok || f.done {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{key: key, ctx: fctx, cancel: cancel, scopes: make(map[string]struct{}), epoch: epoch}
		s.flights[key] = f
	}
	f.scopes[sc] = struct{}{} // "" pins the flight for isolated callers
	return s.group.DoChan(key, func() (any, error) {
		return s.fetch(f, p)
	})
}

func (s *Service) fetch(f *flight, p plan) (catalog.Page, error) {
	defer f.cancel()

	if f.ctx.Err() != nil {
		s.finish(f)
		return catalog.Page{}, fmt.Errorf("search %q: %w", p.raw, domain.ErrSuperseded)
	}

	start := time.Now()
	page, err := s.fetcher.Fetch(f.ctx, p.ns, p.preds)
	if s.metrics.FetchDuration != nil {
		s.metrics.FetchDuration.WithLabelValues(p.ns).Observe(time.Since(start).Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f.done = true
	if cur, ok := s.flights[f.key]; ok && cur == f {
		delete(s.flights, f.key)
	}

	switch {
	case f.ctx.Err() != nil:
		s.countFetch(p.ns, "superseded")
		return catalog.Page{}, fmt.Errorf("search %q: %w", p.raw, domain.ErrSuperseded)
	case err != nil:
		s.countFetch(p.ns, "error")
		s.logger.Warn("Catalog fetch failed",
			zap.String("namespace", p.ns),
			zap.String("signature", p.sig),
			zap.Error(err),
		)
		return catalog.Page{}, domain.NewFetchError(p.ns, p.sig, err)
	}
	s.countFetch(p.ns, "ok")

	stored, err := s.cache.StoreIfCurrent(p.ns, p.sig, page, 0, f.epoch)
	if err != nil {
		s.logger.Error("Failed to cache page", zap.String("namespace", p.ns), zap.Error(err))
	} else if !stored {
		s.logger.Debug("Dropped page fetched across an invalidation",
			zap.String("namespace", p.ns),
			zap.String("signature", p.sig),
		)
	}
	return page, nil
}

func (s *Service) finish(f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.done = true
	if cur, ok := s.flights[f.key]; ok && cur == f {
		delete(s.flights, f.key)
	}
}

func (s *Service) countFetch(ns, status string) {
	if s.metrics.FetchTotal != nil {
		s.metrics.FetchTotal.WithLabelValues(ns, status).Inc()
	}
}

// IsRetryable reports whether err leaves the caller in a retryable state:
// a failed fetch or a search superseded before it finished.
func IsRetryable(err error) bool {
	var fe *domain.FetchError
	return errors.As(err, &fe) || errors.Is(err, domain.ErrSuperseded)
}
