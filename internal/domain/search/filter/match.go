package filter

import (
	"strings"

	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

// Match reports whether a document satisfies the set. values returns the
// lower-cased values the document holds for a field; for the free-text field
// it returns the document's searchable text.
//
// Equals requires one predicate value to equal one document value. Contains
// requires every unit of one predicate value (a word or a quoted phrase) to
// occur in the document text.
func (s PredicateSet) Match(values func(field string) []string) bool {
	for field, p := range s.preds {
		if !p.match(values(field)) {
			return false
		}
	}
	return true
}

func (p Predicate) match(doc []string) bool {
	if len(doc) == 0 {
		return false
	}
	if p.operator == query.Contains {
		text := strings.Join(doc, " ")
		for _, v := range p.values {
			if containsUnits(text, v) {
				return true
			}
		}
		return false
	}
	for _, v := range p.values {
		for _, d := range doc {
			if d == v {
				return true
			}
		}
	}
	return false
}

func containsUnits(text, value string) bool {
	units := Units(value)
	if len(units) == 0 {
		return false
	}
	for _, u := range units {
		if !strings.Contains(text, u) {
			return false
		}
	}
	return true
}

// Without returns a copy of the set lacking the given fields.
func (s PredicateSet) Without(fields ...string) PredicateSet {
	drop := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		drop[f] = struct{}{}
	}
	preds := make(map[string]Predicate, len(s.preds))
	for f, p := range s.preds {
		if _, ok := drop[f]; !ok {
			preds[f] = p
		}
	}
	return PredicateSet{preds: preds}
}
