package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/catalogq/internal/cache"
	"github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

const testNS = "catalog"

// --- Mocks ---

type mockFetcher struct {
	mu      sync.Mutex
	calls   []string
	fetchFn func(ctx context.Context, ns string, preds filter.PredicateSet) (catalog.Page, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, ns string, preds filter.PredicateSet) (catalog.Page, error) {
	m.mu.Lock()
	m.calls = append(m.calls, preds.Signature())
	fn := m.fetchFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, ns, preds)
	}
	return pageOf("item-1"), nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- Helpers ---

func pageOf(ids ...string) catalog.Page {
	items := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, catalog.Reconstruct(id, "title "+id, "", "beginner", "en", []string{"react"}))
	}
	return catalog.Page{Items: items, Total: len(items)}
}

func newTestService(t *testing.T, f *mockFetcher) (*Service, *cache.Engine[catalog.Page]) {
	t.Helper()
	c, err := cache.New[catalog.Page](cache.Config{
		Default: cache.NamespaceConfig{TTL: time.Minute, Capacity: 16},
	})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	vocabs := map[string]query.Vocabulary{
		testNS:    query.DefaultVocabulary(),
		"listing": query.DefaultVocabulary(),
	}
	return New(f, c, vocabs, Metrics{}, nil), c
}

func signatureOf(t *testing.T, raw string) string {
	t.Helper()
	return filter.Translate(query.ParseString(raw, query.DefaultVocabulary())).Signature()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// flightScopes returns how many scopes wait on the outstanding fetch of sig.
func flightScopes(s *Service, ns, sig string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[ns+"\x00"+sig]
	if !ok {
		return 0
	}
	return len(f.scopes)
}

type result struct {
	page catalog.Page
	err  error
}
