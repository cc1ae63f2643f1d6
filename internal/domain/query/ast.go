package query

import (
	"strconv"
	"strings"
)

// ClauseKind tags the Clause variant.
type ClauseKind int

const (
	// ClauseFreeText is a run of free-text terms.
	ClauseFreeText ClauseKind = iota
	// ClauseField is a field predicate.
	ClauseField
)

// Clause is one parsed unit: FreeText(term) or FieldPredicate(field, operator, value).
type Clause struct {
	kind     ClauseKind
	term     string
	field    string
	operator Operator
	value    string
	pos      int
}

// NewFreeText creates a free-text clause.
func NewFreeText(term string, pos int) Clause {
	return Clause{kind: ClauseFreeText, term: term, pos: pos}
}

// NewFieldPredicate creates a field predicate clause.
func NewFieldPredicate(field string, op Operator, value string, pos int) Clause {
	return Clause{kind: ClauseField, field: field, operator: op, value: value, pos: pos}
}

// Kind returns the clause variant.
func (c Clause) Kind() ClauseKind { return c.kind }

// IsFreeText reports whether this is a free-text clause.
func (c Clause) IsFreeText() bool { return c.kind == ClauseFreeText }

// Term returns the verbatim free text.
func (c Clause) Term() string { return c.term }

// Field returns the canonical field name.
func (c Clause) Field() string { return c.field }

// Operator returns the predicate operator.
func (c Clause) Operator() Operator { return c.operator }

// Value returns the predicate value as typed.
func (c Clause) Value() string { return c.value }

// Pos returns the byte offset of the clause in the raw query.
func (c Clause) Pos() int { return c.pos }

func (c Clause) String() string {
	if c.kind == ClauseFreeText {
		return c.term
	}
	v := c.value
	if strings.ContainsAny(v, " \t\"") {
		v = strconv.Quote(v)
	}
	return c.field + ":" + v
}

// Diagnostic records a degradation the parser applied instead of failing.
type Diagnostic struct {
	Pos    int
	Text   string
	Reason string
}

// Degradation reasons.
const (
	ReasonUnknownField      = "unknown field"
	ReasonStrayOperator     = "operator without field"
	ReasonIncompleteField   = "field without value"
	ReasonUnterminatedQuote = "unterminated quote"
)

// Query is the parsed AST: clauses in source order, combined with AND.
type Query struct {
	clauses     []Clause
	diagnostics []Diagnostic
}

// Clauses returns the clauses in source order.
func (q Query) Clauses() []Clause { return q.clauses }

// Diagnostics returns the degradations applied while parsing.
func (q Query) Diagnostics() []Diagnostic { return q.diagnostics }

// IsEmpty reports whether the query has no clauses.
func (q Query) IsEmpty() bool { return len(q.clauses) == 0 }

// FreeTextOnly reports whether every clause is free text.
func (q Query) FreeTextOnly() bool {
	for _, c := range q.clauses {
		if !c.IsFreeText() {
			return false
		}
	}
	return true
}

// String reconstructs the query from its clauses.
func (q Query) String() string {
	parts := make([]string, len(q.clauses))
	for i, c := range q.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
