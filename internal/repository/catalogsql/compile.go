package catalogsql

import (
	"fmt"
	"strings"

	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// columns maps scalar attributes to their lower-cased item columns.
var columns = map[string][]string{
	domcat.AttrLevel:       {"level"},
	domcat.AttrLanguage:    {"language"},
	domcat.AttrTitle:       {"title_lc"},
	domcat.AttrDescription: {"description_lc"},
	query.FreeTextField:    {"title_lc", "description_lc"},
}

const tagExists = "EXISTS (SELECT 1 FROM item_tags t WHERE t.namespace = items.namespace AND t.item_id = items.id AND %s)"

// where compiles a predicate set into a parameterized WHERE clause over
// items of ns. Values are always bound, never interpolated.
func where(ns string, preds filter.PredicateSet) (string, []any, error) {
	clauses := []string{"namespace = ?"}
	params := []any{ns}

	for _, field := range preds.Fields() {
		p, _ := preds.Get(field)
		var (
			sql  string
			args []any
		)
		switch {
		case field == domcat.AttrTag:
			sql, args = tagPredicate(p)
		case columns[field] != nil:
			sql, args = columnPredicate(columns[field], p)
		default:
			return "", nil, fmt.Errorf("field %q has no column", field)
		}
		clauses = append(clauses, sql)
		params = append(params, args...)
	}
	return strings.Join(clauses, " AND "), params, nil
}

// columnPredicate matches any value. Equals compares whole values; contains
// requires every word or quoted phrase of the value in the space-joined
// column text.
func columnPredicate(cols []string, p filter.Predicate) (string, []any) {
	var alts []string
	var params []any
	if p.Operator() == query.Equals {
		for _, c := range cols {
			alts = append(alts, c+" IN ("+placeholders(len(p.Values()))+")")
			for _, v := range p.Values() {
				params = append(params, v)
			}
		}
		return "(" + strings.Join(alts, " OR ") + ")", params
	}

	text := strings.Join(cols, " || ' ' || ")
	for _, v := range p.Values() {
		words := filter.Units(v)
		if len(words) == 0 {
			continue
		}
		conds := make([]string, len(words))
		for i, w := range words {
			conds[i] = "instr(" + text + ", ?) > 0"
			params = append(params, w)
		}
		alts = append(alts, "("+strings.Join(conds, " AND ")+")")
	}
	if len(alts) == 0 {
		return "0", nil
	}
	return "(" + strings.Join(alts, " OR ") + ")", params
}

// tagPredicate matches on the tag rows of an item. For contains, each word
// or phrase may occur in a different tag.
func tagPredicate(p filter.Predicate) (string, []any) {
	var params []any
	if p.Operator() == query.Equals {
		for _, v := range p.Values() {
			params = append(params, v)
		}
		return fmt.Sprintf(tagExists, "t.tag IN ("+placeholders(len(p.Values()))+")"), params
	}

	var alts []string
	for _, v := range p.Values() {
		words := filter.Units(v)
		if len(words) == 0 {
			continue
		}
		conds := make([]string, len(words))
		for i, w := range words {
			conds[i] = fmt.Sprintf(tagExists, "instr(t.tag, ?) > 0")
			params = append(params, w)
		}
		alts = append(alts, "("+strings.Join(conds, " AND ")+")")
	}
	if len(alts) == 0 {
		return "0", nil
	}
	return "(" + strings.Join(alts, " OR ") + ")", params
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
