package query

// Kind classifies a lexical token.
type Kind int

const (
	// KindFreeText is a plain search word, a quoted phrase or a field value.
	KindFreeText Kind = iota
	// KindField is a known field name that precedes an operator.
	KindField
	// KindOperator binds a field to its value.
	KindOperator
	// KindSeparator is a run of whitespace.
	KindSeparator
	// KindEOF terminates every token stream.
	KindEOF
)

var kindNames = [...]string{
	KindFreeText:  "FreeText",
	KindField:     "Field",
	KindOperator:  "Operator",
	KindSeparator: "Separator",
	KindEOF:       "EOF",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Token is one lexical unit of a raw query.
// Value is the normalized payload (unquoted text, canonical field name,
// operator name); Raw is the exact source text starting at byte offset Pos.
type Token struct {
	Kind  Kind
	Value string
	Raw   string
	Pos   int
}
