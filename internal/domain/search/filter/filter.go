package filter

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

// emptySignature identifies the predicate set with no predicates (browse all).
const emptySignature = "*"

// Predicate is the set of accepted values for one field. A document matches
// the predicate if at least one value matches under the operator.
type Predicate struct {
	field    string
	operator query.Operator
	values   []string
}

// Field returns the field name.
func (p Predicate) Field() string { return p.field }

// Operator returns the match operator.
func (p Predicate) Operator() query.Operator { return p.operator }

// Values returns the accepted values in lexicographic order.
func (p Predicate) Values() []string { return p.values }

// PredicateSet maps field names to predicates. Fields combine with AND,
// values within a field with OR.
type PredicateSet struct {
	preds map[string]Predicate
}

// Fields returns the field names in lexicographic order.
func (s PredicateSet) Fields() []string {
	fields := make([]string, 0, len(s.preds))
	for f := range s.preds {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Get returns the predicate for field.
func (s PredicateSet) Get(field string) (Predicate, bool) {
	p, ok := s.preds[field]
	return p, ok
}

// FreeText returns the free-text substring, or "" if there is none.
func (s PredicateSet) FreeText() string {
	p, ok := s.preds[query.FreeTextField]
	if !ok || len(p.values) == 0 {
		return ""
	}
	return p.values[0]
}

// IsEmpty reports whether the set has no predicates.
func (s PredicateSet) IsEmpty() bool { return len(s.preds) == 0 }

// Len returns the number of fields.
func (s PredicateSet) Len() int { return len(s.preds) }

// Signature returns the canonical, order-independent cache key basis:
// fields sorted, values sorted and quoted so delimiters inside values
// cannot collide.
func (s PredicateSet) Signature() string {
	if s.IsEmpty() {
		return emptySignature
	}
	var sb strings.Builder
	for i, field := range s.Fields() {
		if i > 0 {
			sb.WriteByte(';')
		}
		p := s.preds[field]
		sb.WriteString(field)
		sb.WriteString(operatorSymbol(p.operator))
		for j, v := range p.values {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(v))
		}
	}
	return sb.String()
}

func (s PredicateSet) String() string { return s.Signature() }

type predicateJSON struct {
	Operator query.Operator `json:"operator"`
	Values   []string       `json:"values"`
}

// MarshalJSON encodes the set as {field: {operator, values}}.
func (s PredicateSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]predicateJSON, len(s.preds))
	for f, p := range s.preds {
		out[f] = predicateJSON{Operator: p.operator, Values: p.values}
	}
	return json.Marshal(out)
}

func operatorSymbol(op query.Operator) string {
	if op == query.Contains {
		return "~"
	}
	return "="
}

// Builder accumulates predicates into a PredicateSet.
type Builder struct {
	preds map[string]*builderPred
}

type builderPred struct {
	op     query.Operator
	values map[string]struct{}
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{preds: make(map[string]*builderPred)}
}

// Add adds value as an alternative for field. Empty values are ignored.
// The first operator seen for a field wins.
func (b *Builder) Add(field string, op query.Operator, value string) *Builder {
	if field == "" || value == "" {
		return b
	}
	p, ok := b.preds[field]
	if !ok {
		p = &builderPred{op: op, values: make(map[string]struct{})}
		b.preds[field] = p
	}
	p.values[value] = struct{}{}
	return b
}

// Build returns the accumulated PredicateSet.
func (b *Builder) Build() PredicateSet {
	preds := make(map[string]Predicate, len(b.preds))
	for field, p := range b.preds {
		values := make([]string, 0, len(p.values))
		for v := range p.values {
			values = append(values, v)
		}
		sort.Strings(values)
		preds[field] = Predicate{field: field, operator: p.op, values: values}
	}
	return PredicateSet{preds: preds}
}
