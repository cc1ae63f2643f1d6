package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/catalogq/internal/domain"
	"github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

func TestSearch_MissThenHit(t *testing.T) {
	f := &mockFetcher{}
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	page, err := svc.Search(ctx, "tag:react", testNS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 item, got %d", page.Total)
	}

	if _, err := svc.Search(ctx, "tag:react", testNS); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.callCount() != 1 {
		t.Errorf("expected 1 fetch, got %d", f.callCount())
	}
}

func TestSearch_PassesPredicateSet(t *testing.T) {
	var got filter.PredicateSet
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, preds filter.PredicateSet) (catalog.Page, error) {
		got = preds
		return catalog.Page{}, nil
	}}
	svc, _ := newTestService(t, f)

	if _, err := svc.Search(context.Background(), "tag:React level:Beginner hello world", testNS); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `freeText~"hello world";level="beginner";tag="react"`
	if got.Signature() != want {
		t.Errorf("expected signature %s, got %s", want, got.Signature())
	}
}

func TestSearch_EquivalentQueriesShareEntry(t *testing.T) {
	f := &mockFetcher{}
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	for _, raw := range []string{
		"tag:React level:Beginner hello world",
		"level:beginner Hello World tag:react",
	} {
		if _, err := svc.Search(ctx, raw, testNS); err != nil {
			t.Fatalf("search %q: %v", raw, err)
		}
	}
	if f.callCount() != 1 {
		t.Errorf("expected 1 fetch, got %d", f.callCount())
	}
}

func TestSearch_NamespacesAreIsolated(t *testing.T) {
	f := &mockFetcher{}
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	if _, err := svc.Search(ctx, "tag:react", testNS); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Search(ctx, "tag:react", "listing"); err != nil {
		t.Fatal(err)
	}
	if f.callCount() != 2 {
		t.Errorf("expected 2 fetches, got %d", f.callCount())
	}
}

func TestSearch_UnknownNamespace(t *testing.T) {
	svc, _ := newTestService(t, &mockFetcher{})

	for _, ns := range []string{"", "missing"} {
		_, err := svc.Search(context.Background(), "tag:react", ns)
		if !errors.Is(err, domain.ErrUnknownNamespace) {
			t.Errorf("ns %q: expected ErrUnknownNamespace, got %v", ns, err)
		}
	}
}

func TestSearch_DeduplicatesConcurrentFetches(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		started <- struct{}{}
		<-gate
		return pageOf("a"), nil
	}}
	svc, _ := newTestService(t, f)
	sig := signatureOf(t, "tag:react")

	results := make(chan result, 2)
	go func() {
		page, err := svc.Search(context.Background(), "tag:react", testNS)
		results <- result{page, err}
	}()
	<-started

	go func() {
		page, err := svc.Search(Isolated(context.Background()), "tag:react", testNS)
		results <- result{page, err}
	}()
	waitFor(t, "second caller to join", func() bool { return flightScopes(svc, testNS, sig) == 2 })
	close(gate)

	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.page.Total != 1 {
			t.Errorf("expected shared page, got total %d", r.page.Total)
		}
	}
	if f.callCount() != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", f.callCount())
	}
}

func TestSearch_NewerSearchSupersedesOlder(t *testing.T) {
	started := make(chan struct{}, 1)
	f := &mockFetcher{fetchFn: func(ctx context.Context, _ string, preds filter.PredicateSet) (catalog.Page, error) {
		if preds.Signature() == `tag="react"` {
			started <- struct{}{}
			<-ctx.Done()
			return catalog.Page{}, ctx.Err()
		}
		return pageOf("vue-1"), nil
	}}
	svc, c := newTestService(t, f)

	older := make(chan result, 1)
	go func() {
		page, err := svc.Search(context.Background(), "tag:react", testNS)
		older <- result{page, err}
	}()
	<-started

	page, err := svc.Search(context.Background(), "tag:vue", testNS)
	if err != nil {
		t.Fatalf("newer search failed: %v", err)
	}
	if page.Items[0].ID() != "vue-1" {
		t.Errorf("unexpected page %+v", page)
	}

	r := <-older
	if !errors.Is(r.err, domain.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", r.err)
	}
	if !IsRetryable(r.err) {
		t.Error("superseded search should be retryable")
	}
	if _, ok := c.Peek(testNS, `tag="react"`); ok {
		t.Error("superseded fetch must not be cached")
	}
	if _, ok := c.Peek(testNS, `tag="vue"`); !ok {
		t.Error("newer result should be cached")
	}
}

func TestSearch_SessionsDoNotSupersedeEachOther(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &mockFetcher{fetchFn: func(ctx context.Context, _ string, preds filter.PredicateSet) (catalog.Page, error) {
		if preds.Signature() == `tag="react"` {
			started <- struct{}{}
			select {
			case <-gate:
				return pageOf("react-1"), nil
			case <-ctx.Done():
				return catalog.Page{}, ctx.Err()
			}
		}
		return pageOf("vue-1"), nil
	}}
	svc, _ := newTestService(t, f)

	first := make(chan result, 1)
	go func() {
		page, err := svc.Search(WithSession(context.Background(), "alice"), "tag:react", testNS)
		first <- result{page, err}
	}()
	<-started

	if _, err := svc.Search(WithSession(context.Background(), "bob"), "tag:vue", testNS); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(gate)

	r := <-first
	if r.err != nil {
		t.Fatalf("other session's search must not be superseded: %v", r.err)
	}
}

func TestSearch_SharedFetchSurvivesOneScopeMovingOn(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &mockFetcher{fetchFn: func(ctx context.Context, _ string, preds filter.PredicateSet) (catalog.Page, error) {
		if preds.Signature() == `tag="react"` {
			started <- struct{}{}
			select {
			case <-gate:
				return pageOf("react-1"), nil
			case <-ctx.Done():
				return catalog.Page{}, ctx.Err()
			}
		}
		return pageOf("vue-1"), nil
	}}
	svc, _ := newTestService(t, f)
	sig := signatureOf(t, "tag:react")
	alice := WithSession(context.Background(), "alice")
	bob := WithSession(context.Background(), "bob")

	results := make(chan result, 2)
	go func() {
		page, err := svc.Search(alice, "tag:react", testNS)
		results <- result{page, err}
	}()
	<-started
	go func() {
		page, err := svc.Search(bob, "tag:react", testNS)
		results <- result{page, err}
	}()
	waitFor(t, "bob to join", func() bool { return flightScopes(svc, testNS, sig) == 2 })

	// Alice moves on; bob still waits for the react page.
	if _, err := svc.Search(alice, "tag:vue", testNS); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(gate)

	for i := 0; i < 2; i++ {
		if r := <-results; r.err != nil {
			t.Errorf("shared fetch should complete for both callers, got %v", r.err)
		}
	}
	if f.callCount() != 2 {
		t.Errorf("expected 2 fetches, got %d", f.callCount())
	}
}

func TestSearch_FetchFailureIsTypedAndNotCached(t *testing.T) {
	fail := true
	var mu sync.Mutex
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return catalog.Page{}, errors.New("connection refused")
		}
		return pageOf("a"), nil
	}}
	svc, c := newTestService(t, f)
	ctx := context.Background()

	_, err := svc.Search(ctx, "tag:react", testNS)
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *domain.FetchError, got %T: %v", err, err)
	}
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Error("fetch error should wrap ErrFetchFailed")
	}
	if fe.Namespace != testNS || fe.Signature != `tag="react"` {
		t.Errorf("unexpected fetch error fields: %+v", fe)
	}
	if !IsRetryable(err) {
		t.Error("fetch failure should be retryable")
	}
	if c.Len(testNS) != 0 {
		t.Fatal("failure must not be cached")
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	page, err := svc.Search(ctx, "tag:react", testNS)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("expected 1 item after retry, got %d", page.Total)
	}
	if f.callCount() != 2 {
		t.Errorf("expected 2 fetches, got %d", f.callCount())
	}
}

func TestSearch_EmptyResultIsCached(t *testing.T) {
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		return catalog.Page{}, nil
	}}
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		page, err := svc.Search(ctx, "tag:nothing", testNS)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Total != 0 {
			t.Errorf("expected empty page, got %d", page.Total)
		}
	}
	if f.callCount() != 1 {
		t.Errorf("empty page should be cached, got %d fetches", f.callCount())
	}
}

func TestSearch_InvalidationDuringFetchDropsStore(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		started <- struct{}{}
		<-gate
		return pageOf("stale"), nil
	}}
	svc, c := newTestService(t, f)

	done := make(chan result, 1)
	go func() {
		page, err := svc.Search(context.Background(), "tag:react", testNS)
		done <- result{page, err}
	}()
	<-started

	if _, err := svc.Invalidate(testNS); err != nil {
		t.Fatal(err)
	}
	close(gate)

	r := <-done
	if r.err != nil {
		t.Fatalf("caller should still receive the page: %v", r.err)
	}
	if c.Len(testNS) != 0 {
		t.Error("page fetched across an invalidation must not be cached")
	}
}

func TestSearch_AfterInvalidationStartsFreshFetch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(svc *Service) (catalog.Page, error)
	}{
		{
			name: "invalidate then search",
			mutate: func(svc *Service) (catalog.Page, error) {
				if _, err := svc.Invalidate(testNS); err != nil {
					return catalog.Page{}, err
				}
				return svc.Search(context.Background(), "tag:react", testNS)
			},
		},
		{
			name: "refetch",
			mutate: func(svc *Service) (catalog.Page, error) {
				return svc.Refetch(context.Background(), "tag:react", testNS)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := make(chan struct{})
			started := make(chan struct{}, 1)
			var mu sync.Mutex
			calls := 0
			f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
				mu.Lock()
				calls++
				n := calls
				mu.Unlock()
				if n == 1 {
					started <- struct{}{}
					<-gate
					return pageOf("old"), nil
				}
				return pageOf("new"), nil
			}}
			svc, c := newTestService(t, f)

			first := make(chan result, 1)
			go func() {
				page, err := svc.Search(Isolated(context.Background()), "tag:react", testNS)
				first <- result{page, err}
			}()
			<-started

			page, err := tt.mutate(svc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Items) != 1 || page.Items[0].ID() != "new" {
				t.Fatalf("expected the page fetched after invalidation, got %+v", page.Items)
			}
			if f.callCount() != 2 {
				t.Errorf("expected 2 fetches, got %d", f.callCount())
			}

			close(gate)
			if r := <-first; r.err != nil || r.page.Items[0].ID() != "old" {
				t.Fatalf("earlier caller: page %+v, err %v", r.page.Items, r.err)
			}
			cached, ok := c.Lookup(testNS, signatureOf(t, "tag:react"))
			if !ok || cached.Items[0].ID() != "new" {
				t.Errorf("expected the fresh page cached, got %+v (hit %v)", cached.Items, ok)
			}
		})
	}
}

func TestSearch_CallerCancellation(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &mockFetcher{fetchFn: func(ctx context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		started <- struct{}{}
		<-gate
		return pageOf("a"), ctx.Err()
	}}
	svc, c := newTestService(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctx, "tag:react", testNS)
		done <- err
	}()
	<-started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The fetch outlives its caller and still seeds the cache.
	close(gate)
	waitFor(t, "page to be cached", func() bool { return c.Len(testNS) == 1 })
}

func TestRefetch_BypassesCache(t *testing.T) {
	f := &mockFetcher{}
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	if _, err := svc.Search(ctx, "tag:react", testNS); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refetch(ctx, "tag:react", testNS); err != nil {
		t.Fatal(err)
	}
	if f.callCount() != 2 {
		t.Errorf("expected 2 fetches, got %d", f.callCount())
	}
}

func TestInvalidate_ByQuery(t *testing.T) {
	f := &mockFetcher{}
	svc, c := newTestService(t, f)
	ctx := context.Background()

	for _, raw := range []string{"tag:react", "tag:vue"} {
		if _, err := svc.Search(ctx, raw, testNS); err != nil {
			t.Fatal(err)
		}
	}

	n, err := svc.Invalidate(testNS, "TAG:React")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry removed, got %d", n)
	}
	if _, ok := c.Peek(testNS, `tag="vue"`); !ok {
		t.Error("unrelated entry should survive")
	}

	if _, err := svc.Invalidate("missing"); !errors.Is(err, domain.ErrUnknownNamespace) {
		t.Errorf("expected ErrUnknownNamespace, got %v", err)
	}
}

func TestNamespaces_Sorted(t *testing.T) {
	svc, _ := newTestService(t, &mockFetcher{})
	got := svc.Namespaces()
	if len(got) != 2 || got[0] != "catalog" || got[1] != "listing" {
		t.Errorf("unexpected namespaces %v", got)
	}
}

func TestStart_UniformState(t *testing.T) {
	gate := make(chan struct{})
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		<-gate
		return pageOf("a", "b"), nil
	}}
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	h := svc.Start(ctx, "tag:react", testNS)
	if st := h.State(); !st.IsLoading || st.Err != nil || st.Refetch == nil {
		t.Fatalf("unexpected initial state %+v", st)
	}
	close(gate)

	st := h.Wait(ctx)
	if st.IsLoading {
		t.Fatal("state should be settled")
	}
	if st.Err != nil || st.Data.Total != 2 {
		t.Fatalf("unexpected state %+v", st)
	}

	st = st.Refetch(ctx).Wait(ctx)
	if st.Err != nil {
		t.Fatalf("refetch failed: %v", st.Err)
	}
	if f.callCount() != 2 {
		t.Errorf("expected refetch to fetch again, got %d fetches", f.callCount())
	}
}

func TestStart_FailureState(t *testing.T) {
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		return catalog.Page{}, errors.New("boom")
	}}
	svc, _ := newTestService(t, f)

	st := svc.Start(context.Background(), "tag:react", testNS).Wait(context.Background())
	if st.IsLoading || st.Err == nil {
		t.Fatalf("expected settled failure, got %+v", st)
	}
	if !st.Retryable() {
		t.Error("fetch failure state should be retryable")
	}
}

func TestHandle_WaitTimeout(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, _ filter.PredicateSet) (catalog.Page, error) {
		<-gate
		return catalog.Page{}, nil
	}}
	svc, _ := newTestService(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st := svc.Start(context.Background(), "tag:react", testNS).Wait(ctx)
	if !st.IsLoading {
		t.Error("state should still be loading")
	}
	if !errors.Is(st.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", st.Err)
	}
}

func TestExplain(t *testing.T) {
	svc, _ := newTestService(t, &mockFetcher{})

	ex, err := svc.Explain("author:jane likes coding", testNS)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Cached {
		t.Error("nothing should be cached yet")
	}
	clauses := ex.Query.Clauses()
	if len(clauses) != 1 || clauses[0].Term() != "author:jane likes coding" {
		t.Errorf("unexpected clauses %v", clauses)
	}
	if ex.Signature != `freeText~"author:jane likes coding"` {
		t.Errorf("unexpected signature %s", ex.Signature)
	}

	if _, err := svc.Search(context.Background(), "author:jane likes coding", testNS); err != nil {
		t.Fatal(err)
	}
	ex, err = svc.Explain("author:jane likes coding", testNS)
	if err != nil {
		t.Fatal(err)
	}
	if !ex.Cached || ex.CachedItems != 1 || ex.ExpiresAt.IsZero() {
		t.Errorf("expected cached explanation, got %+v", ex)
	}
}

func TestWarmup(t *testing.T) {
	f := &mockFetcher{fetchFn: func(_ context.Context, _ string, preds filter.PredicateSet) (catalog.Page, error) {
		if preds.Signature() == `tag="broken"` {
			return catalog.Page{}, errors.New("boom")
		}
		return pageOf("a"), nil
	}}
	svc, c := newTestService(t, f)

	n, err := svc.Warmup(context.Background(), map[string][]string{
		testNS:    {"tag:react", "tag:broken"},
		"listing": {"level:beginner"},
	})
	if err != nil {
		t.Fatalf("warmup should not fail on fetch errors: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 warmed queries, got %d", n)
	}
	if c.Len(testNS) != 1 || c.Len("listing") != 1 {
		t.Errorf("unexpected cache sizes %d/%d", c.Len(testNS), c.Len("listing"))
	}
}
