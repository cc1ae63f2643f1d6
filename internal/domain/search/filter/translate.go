package filter

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/catalogq/internal/domain"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

// Translate converts a parsed query into a PredicateSet. Field values are
// lower-cased and accumulated per field. Free-text clauses are normalized,
// lower-cased, ordered and joined into one value under query.FreeTextField;
// quoted phrases keep their quotes.
// The result does not depend on clause order.
func Translate(q query.Query) PredicateSet {
	b := NewBuilder()

	var terms []string
	for _, c := range q.Clauses() {
		if c.IsFreeText() {
			if t := normalizeText(domain.Lower(c.Term())); t != "" {
				terms = append(terms, t)
			}
			continue
		}
		v := strings.TrimSpace(domain.Lower(c.Value()))
		if c.Operator() == query.Contains {
			v = containsValue(v)
		}
		b.Add(c.Field(), c.Operator(), v)
	}

	if len(terms) > 0 {
		sort.Strings(terms)
		b.Add(query.FreeTextField, query.Contains, strings.Join(terms, " "))
	}
	return b.Build()
}

// normalizeText collapses whitespace and keeps multi-word quoted phrases
// quoted, so each phrase stays one match unit.
func normalizeText(term string) string {
	units := Units(term)
	for i, u := range units {
		if strings.Contains(u, " ") {
			units[i] = `"` + u + `"`
		}
	}
	return strings.Join(units, " ")
}

// containsValue turns a field's contains value into units. A multi-word
// value can only come from a quoted field value, so it is one phrase.
func containsValue(v string) string {
	if strings.ContainsAny(v, " \t\n\r") && !strings.Contains(v, `"`) {
		return normalizeText(`"` + v + `"`)
	}
	return normalizeText(v)
}

// Units splits a contains value into the pieces a document must hold: each
// quoted phrase is one unit with its whitespace collapsed, every other word
// is a unit of its own. A quote without a closing partner separates words.
func Units(v string) []string {
	var units []string
	for i := 0; i < len(v); {
		switch c := v[i]; {
		case c == '"':
			end := strings.IndexByte(v[i+1:], '"')
			if end < 0 {
				i++
				continue
			}
			if phrase := strings.Join(strings.Fields(v[i+1:i+1+end]), " "); phrase != "" {
				units = append(units, phrase)
			}
			i += end + 2
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		default:
			j := i
			for j < len(v) && !strings.ContainsRune(" \t\n\r\"", rune(v[j])) {
				j++
			}
			units = append(units, v[i:j])
			i = j
		}
	}
	return units
}
