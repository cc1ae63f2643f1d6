package chi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogq/internal/cache"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogq/internal/repository/catalogmem"
	cataloguc "github.com/kailas-cloud/catalogq/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogq/internal/usecase/health"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

const testNS = "courses"

// switchFetcher serves from the in-memory repo unless a failure is set.
type switchFetcher struct {
	repo *catalogmem.Repo

	mu    sync.Mutex
	fail  error
	calls int
}

func (f *switchFetcher) Fetch(ctx context.Context, ns string, preds filter.PredicateSet) (domcat.Page, error) {
	f.mu.Lock()
	f.calls++
	err := f.fail
	f.mu.Unlock()
	if err != nil {
		return domcat.Page{}, err
	}
	return f.repo.Fetch(ctx, ns, preds)
}

func (f *switchFetcher) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *switchFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	srv     *httptest.Server
	fetcher *switchFetcher
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	repo := catalogmem.New(10)
	fetcher := &switchFetcher{repo: repo}

	c, err := cache.New[domcat.Page](cache.Config{
		Default: cache.NamespaceConfig{TTL: time.Hour, Capacity: 16},
	})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	vocabs := map[string]query.Vocabulary{
		testNS:    query.DefaultVocabulary(),
		"listing": query.DefaultVocabulary(),
	}
	search := searchuc.New(fetcher, c, vocabs, searchuc.Metrics{}, nil)
	catalog := cataloguc.New(repo, search)
	health := healthuc.New(nil, search, c)

	srv := httptest.NewServer(NewRouter(NewServer(search, catalog, health, nil), Auth{APIKeys: apiKeys}))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, fetcher: fetcher}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) put(t *testing.T, id, body string) {
	t.Helper()
	resp := e.do(t, http.MethodPut, "/namespaces/"+testNS+"/items/"+id, body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		t.Fatalf("put %s: status %d", id, resp.StatusCode)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func nopLogger() *zap.Logger { return zap.NewNop() }
