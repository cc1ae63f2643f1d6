package search

import (
	"context"
	"sync"

	"github.com/kailas-cloud/catalogq/internal/domain/catalog"
)

// State is the uniform shape every search exposes to a UI layer.
type State struct {
	Data      catalog.Page
	IsLoading bool
	Err       error
	Refetch   func(ctx context.Context) *Handle
}

// Retryable reports whether Err is a failure the caller may retry.
func (st State) Retryable() bool { return st.Err != nil && IsRetryable(st.Err) }

// Handle tracks one asynchronous search.
type Handle struct {
	svc *Service
	raw string
	ns  string

	mu    sync.Mutex
	data  catalog.Page
	err   error
	done  chan struct{}
	final bool
}

// Start runs Search in the background and returns a handle to observe it.
func (s *Service) Start(ctx context.Context, raw, ns string) *Handle {
	return s.start(ctx, raw, ns, s.Search)
}

func (s *Service) start(
	ctx context.Context, raw, ns string,
	run func(context.Context, string, string) (catalog.Page, error),
) *Handle {
	h := &Handle{svc: s, raw: raw, ns: ns, done: make(chan struct{})}
	go func() {
		page, err := run(ctx, raw, ns)
		h.mu.Lock()
		h.data, h.err, h.final = page, err, true
		h.mu.Unlock()
		close(h.done)
	}()
	return h
}

// State returns a snapshot of the search.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return State{Data: h.data, IsLoading: !h.final, Err: h.err, Refetch: h.Refetch}
}

// Done is closed once the search has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the search finishes or ctx is done. On ctx expiry the
// returned state is still loading and carries ctx.Err().
func (h *Handle) Wait(ctx context.Context) State {
	select {
	case <-h.done:
		return h.State()
	case <-ctx.Done():
		st := h.State()
		if st.IsLoading {
			st.Err = ctx.Err()
		}
		return st
	}
}

// Refetch drops the cached page of this search and runs it again.
func (h *Handle) Refetch(ctx context.Context) *Handle {
	return h.svc.start(ctx, h.raw, h.ns, h.svc.Refetch)
}

// StartRefetch runs Refetch in the background and returns a handle to observe it.
func (s *Service) StartRefetch(ctx context.Context, raw, ns string) *Handle {
	return s.start(ctx, raw, ns, s.Refetch)
}
