package catalog

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/catalogq/internal/db"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// tagAttributes are indexed as TAG; an equals predicate on them is answered
// exactly by the index.
var tagAttributes = map[string]string{
	domcat.AttrTag:      fieldTags,
	domcat.AttrLevel:    fieldLevel,
	domcat.AttrLanguage: fieldLanguage,
}

// textAttributes are indexed as TEXT when the engine supports it.
var textAttributes = map[string][]string{
	domcat.AttrTitle:       {fieldTitle},
	domcat.AttrDescription: {fieldDescription},
	query.FreeTextField:    {fieldTitle, fieldDescription},
}

// minInfix is the shortest word the engine expands as an infix pattern.
const minInfix = 2

// plan splits a predicate set into an FT query and the predicates that
// must still be checked per item. exact is true when the FT query alone
// decides the result, so the engine's total and paging can be trusted.
type plan struct {
	query    string
	residual filter.PredicateSet
	exact    bool
}

func buildPlan(preds filter.PredicateSet, textSearch bool) plan {
	var clauses []string
	var exactFields []string
	for _, field := range preds.Fields() {
		p, _ := preds.Get(field)
		if tf, ok := tagAttributes[field]; ok && p.Operator() == query.Equals {
			clauses = append(clauses, tagClause(tf, p.Values()))
			exactFields = append(exactFields, field)
			continue
		}
		if fields, ok := textAttributes[field]; ok && textSearch && p.Operator() == query.Contains {
			if c := infixClause(fields, p.Values()); c != "" {
				clauses = append(clauses, c)
			}
		}
	}

	residual := preds.Without(exactFields...)
	q := "*"
	if len(clauses) > 0 {
		q = strings.Join(clauses, " ")
	}
	return plan{query: q, residual: residual, exact: residual.IsEmpty()}
}

func tagClause(field string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = db.EscapeTag(v)
	}
	return "@" + field + ":{" + strings.Join(escaped, "|") + "}"
}

// infixClause narrows a contains predicate to items holding every word of
// one value inside an indexed term. Words of a quoted phrase narrow too; the
// phrase itself is checked in process. Words the engine cannot match as a
// single term are left to the residual check. It returns "" when some
// value yields no usable word, since that value alone could match anything.
func infixClause(fields []string, values []string) string {
	groups := make([]string, 0, len(values))
	for _, v := range values {
		var terms []string
		for _, u := range filter.Units(v) {
			for _, w := range strings.Fields(u) {
				if len([]rune(w)) < minInfix || !isWord(w) {
					continue
				}
				terms = append(terms, "*"+w+"*")
			}
		}
		if len(terms) == 0 {
			return ""
		}
		groups = append(groups, "("+strings.Join(terms, " ")+")")
	}
	return "@" + strings.Join(fields, "|") + ":(" + strings.Join(groups, "|") + ")"
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
