package catalogq

import (
	"time"

	"github.com/kailas-cloud/catalogq/internal/domain"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

// Errors returned by the Client. Match with errors.Is.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrInvalidItem      = domain.ErrInvalidItem
	ErrUnknownNamespace = domain.ErrUnknownNamespace
	ErrFetchFailed      = domain.ErrFetchFailed
	ErrSuperseded       = domain.ErrSuperseded
)

// Item is a catalog entry.
type Item struct {
	ID          string
	Title       string
	Description string
	Level       string
	Language    string
	Tags        []string
}

// Page is the result of one search.
type Page struct {
	Items []Item
	Total int
}

// Diagnostic is a piece of query syntax that was read as plain text.
type Diagnostic struct {
	Pos    int
	Text   string
	Reason string
}

// Explanation shows how a query is understood and whether its page is cached.
type Explanation struct {
	Raw         string
	Query       string // normalized clauses
	Signature   string // cache key; equal signatures share one page
	Diagnostics []Diagnostic
	Cached      bool
	CachedItems int
	ExpiresAt   time.Time
}

func fromItem(it domcat.Item) Item {
	return Item{
		ID:          it.ID(),
		Title:       it.Title(),
		Description: it.Description(),
		Level:       it.Level(),
		Language:    it.Language(),
		Tags:        it.Tags(),
	}
}

func fromPage(p domcat.Page) Page {
	items := make([]Item, len(p.Items))
	for i, it := range p.Items {
		items[i] = fromItem(it)
	}
	return Page{Items: items, Total: p.Total}
}

func fromExplanation(ex searchuc.Explanation) Explanation {
	out := Explanation{
		Raw:         ex.Raw,
		Query:       ex.Query.String(),
		Signature:   ex.Signature,
		Cached:      ex.Cached,
		CachedItems: ex.CachedItems,
		ExpiresAt:   ex.ExpiresAt,
	}
	for _, d := range ex.Query.Diagnostics() {
		out.Diagnostics = append(out.Diagnostics, Diagnostic(d))
	}
	return out
}
