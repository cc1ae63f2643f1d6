package query

import "strings"

// Parse builds a Query from tokens. It is total: unknown or malformed field
// syntax is downgraded to free text and recorded as a Diagnostic.
func Parse(tokens []Token, vocab Vocabulary) Query {
	p := parser{vocab: vocab}
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.Kind {
		case KindEOF:
			p.flush()
			return p.query()
		case KindSeparator:
			p.spaced = true
		case KindFreeText:
			p.checkText(t)
			p.text(t.Raw, t.Pos)
		case KindOperator:
			p.degrade(t.Raw, t.Pos, ReasonStrayOperator)
		case KindField:
			i = p.field(tokens, i)
		}
	}
	p.flush()
	return p.query()
}

// ParseString tokenizes and parses raw in one step.
func ParseString(raw string, vocab Vocabulary) Query {
	return Parse(Tokenize(raw, vocab), vocab)
}

type parser struct {
	vocab   Vocabulary
	clauses []Clause
	diags   []Diagnostic

	run    strings.Builder
	runPos int
	spaced bool
}

func (p *parser) query() Query {
	return Query{clauses: p.clauses, diagnostics: p.diags}
}

// text appends to the current free-text run. Tokens separated by whitespace
// are joined with one space; adjacent tokens are concatenated as written.
func (p *parser) text(s string, pos int) {
	if p.run.Len() == 0 {
		p.runPos = pos
	} else if p.spaced {
		p.run.WriteByte(' ')
	}
	p.run.WriteString(s)
	p.spaced = false
}

func (p *parser) flush() {
	if p.run.Len() > 0 {
		p.clauses = append(p.clauses, NewFreeText(p.run.String(), p.runPos))
		p.run.Reset()
	}
	p.spaced = false
}

func (p *parser) degrade(s string, pos int, reason string) {
	p.diags = append(p.diags, Diagnostic{Pos: pos, Text: s, Reason: reason})
	p.text(s, pos)
}

// field consumes a Field, Operator, value group starting at i and returns
// the index of its last token.
func (p *parser) field(tokens []Token, i int) int {
	name := tokens[i]
	if i+2 >= len(tokens) || tokens[i+1].Kind != KindOperator || tokens[i+2].Kind != KindFreeText {
		p.degrade(name.Raw, name.Pos, ReasonIncompleteField)
		return i
	}
	op, val := tokens[i+1], tokens[i+2]

	canonical, fieldOp, ok := p.vocab.Lookup(name.Value)
	if !ok {
		p.degrade(name.Raw+op.Raw+val.Raw, name.Pos, ReasonUnknownField)
		return i + 2
	}

	p.flush()
	p.clauses = append(p.clauses, NewFieldPredicate(canonical, fieldOp, val.Value, name.Pos))
	return i + 2
}

// checkText records diagnostics for free text that looks like syntax the
// lexer declined to recognize.
func (p *parser) checkText(t Token) {
	if strings.HasPrefix(t.Raw, `"`) && (len(t.Raw) == 1 || !strings.HasSuffix(t.Raw, `"`)) {
		p.diags = append(p.diags, Diagnostic{Pos: t.Pos, Text: t.Raw, Reason: ReasonUnterminatedQuote})
		return
	}
	name, _, found := strings.Cut(t.Raw, ":")
	if !found || !isFieldName(name) {
		return
	}
	if _, _, known := p.vocab.Lookup(name); known {
		p.diags = append(p.diags, Diagnostic{Pos: t.Pos, Text: t.Raw, Reason: ReasonIncompleteField})
		return
	}
	p.diags = append(p.diags, Diagnostic{Pos: t.Pos, Text: t.Raw, Reason: ReasonUnknownField})
}
