package chi

import (
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	cataloguc "github.com/kailas-cloud/catalogq/internal/usecase/catalog"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

// ItemRequest is the body of an item write.
type ItemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Level       string   `json:"level,omitempty"`
	Language    string   `json:"language,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (r ItemRequest) draft() cataloguc.Draft {
	return cataloguc.Draft{
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		Language:    r.Language,
		Tags:        r.Tags,
	}
}

// Item is the wire form of a catalog item.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Level       string   `json:"level,omitempty"`
	Language    string   `json:"language,omitempty"`
	Tags        []string `json:"tags"`
}

// Page is the wire form of one search result.
type Page struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// SearchResponse mirrors the state a search exposes to a UI layer.
type SearchResponse struct {
	Data      Page           `json:"data"`
	IsLoading bool           `json:"isLoading"`
	Error     *ErrorResponse `json:"error,omitempty"`
	Retryable bool           `json:"retryable"`
}

// InvalidateResponse reports how many cached pages were dropped.
type InvalidateResponse struct {
	Namespace string `json:"namespace"`
	Removed   int    `json:"removed"`
}

// NamespacesResponse lists the served namespaces and their fields.
type NamespacesResponse struct {
	Namespaces []Namespace `json:"namespaces"`
}

// Namespace describes one served namespace.
type Namespace struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	CacheEntries map[string]int    `json:"cacheEntries,omitempty"`
}

func itemToWire(it domcat.Item) Item {
	tags := it.Tags()
	if tags == nil {
		tags = []string{}
	}
	return Item{
		ID:          it.ID(),
		Title:       it.Title(),
		Description: it.Description(),
		Level:       it.Level(),
		Language:    it.Language(),
		Tags:        tags,
	}
}

func pageToWire(p domcat.Page) Page {
	items := make([]Item, len(p.Items))
	for i, it := range p.Items {
		items[i] = itemToWire(it)
	}
	return Page{Items: items, Total: p.Total}
}

func stateToWire(st searchuc.State) SearchResponse {
	return SearchResponse{
		Data:      pageToWire(st.Data),
		IsLoading: st.IsLoading,
		Error:     errorBody(st.Err),
		Retryable: st.Retryable(),
	}
}
