package search

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// Explanation shows every stage a raw query goes through.
type Explanation struct {
	Namespace   string
	Raw         string
	Tokens      []query.Token
	Query       query.Query
	Predicates  filter.PredicateSet
	Signature   string
	Cached      bool
	CachedItems int
	ExpiresAt   time.Time
}

// Explain runs raw through the tokenizer, parser and translator of vocab.
func Explain(raw string, vocab query.Vocabulary) Explanation {
	tokens := query.Tokenize(raw, vocab)
	q := query.Parse(tokens, vocab)
	preds := filter.Translate(q)
	return Explanation{
		Raw:        raw,
		Tokens:     tokens,
		Query:      q,
		Predicates: preds,
		Signature:  preds.Signature(),
	}
}

// Explain explains raw in ns and reports whether its page is cached.
// It never fetches and never touches cache recency.
func (s *Service) Explain(raw, ns string) (Explanation, error) {
	vocab, err := s.Vocabulary(ns)
	if err != nil {
		return Explanation{}, err
	}
	ex := Explain(raw, vocab)
	ex.Namespace = ns
	if ent, ok := s.cache.Peek(ns, ex.Signature); ok {
		ex.Cached = true
		ex.CachedItems = len(ent.Payload.Items)
		ex.ExpiresAt = ent.ExpiresAt()
	}
	return ex, nil
}

type tokenJSON struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Raw   string `json:"raw"`
	Pos   int    `json:"pos"`
}

type clauseJSON struct {
	Field    string         `json:"field,omitempty"`
	Operator query.Operator `json:"operator,omitempty"`
	Value    string         `json:"value,omitempty"`
	Term     string         `json:"term,omitempty"`
	Pos      int            `json:"pos"`
}

type diagnosticJSON struct {
	Pos    int    `json:"pos"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

type explanationJSON struct {
	Namespace   string              `json:"namespace,omitempty"`
	Raw         string              `json:"raw"`
	Tokens      []tokenJSON         `json:"tokens"`
	Clauses     []clauseJSON        `json:"clauses"`
	Diagnostics []diagnosticJSON    `json:"diagnostics"`
	Query       string              `json:"query"`
	Predicates  filter.PredicateSet `json:"predicates"`
	Signature   string              `json:"signature"`
	Cached      bool                `json:"cached"`
	CachedItems int                 `json:"cachedItems,omitempty"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty"`
}

// MarshalJSON encodes every stage; the EOF token is omitted.
func (e Explanation) MarshalJSON() ([]byte, error) {
	out := explanationJSON{
		Namespace:   e.Namespace,
		Raw:         e.Raw,
		Tokens:      []tokenJSON{},
		Clauses:     []clauseJSON{},
		Diagnostics: []diagnosticJSON{},
		Query:       e.Query.String(),
		Predicates:  e.Predicates,
		Signature:   e.Signature,
		Cached:      e.Cached,
		CachedItems: e.CachedItems,
	}
	for _, t := range e.Tokens {
		if t.Kind == query.KindEOF {
			continue
		}
		out.Tokens = append(out.Tokens, tokenJSON{Kind: t.Kind.String(), Value: t.Value, Raw: t.Raw, Pos: t.Pos})
	}
	for _, c := range e.Query.Clauses() {
		out.Clauses = append(out.Clauses, clauseJSON{
			Field: c.Field(), Operator: c.Operator(), Value: c.Value(), Term: c.Term(), Pos: c.Pos(),
		})
	}
	for _, d := range e.Query.Diagnostics() {
		out.Diagnostics = append(out.Diagnostics, diagnosticJSON(d))
	}
	if e.Cached {
		exp := e.ExpiresAt.UTC()
		out.ExpiresAt = &exp
	}
	return json.Marshal(out)
}
