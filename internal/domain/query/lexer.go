package query

import "strings"

// Tokenize splits raw into tokens. It never fails: anything that is not a
// known field:value pattern becomes free text. The result always ends with
// an EOF token.
func Tokenize(raw string, vocab Vocabulary) []Token {
	l := lexer{src: raw, vocab: vocab}
	for l.pos < len(l.src) {
		switch c := l.src[l.pos]; {
		case isSpace(c):
			l.separator()
		case c == '"':
			l.quoted()
		default:
			if !l.fieldGroup() {
				l.word()
			}
		}
	}
	l.emit(KindEOF, "", "", len(l.src))
	return l.tokens
}

type lexer struct {
	src    string
	pos    int
	vocab  Vocabulary
	tokens []Token
}

func (l *lexer) emit(kind Kind, value, raw string, pos int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Value: value, Raw: raw, Pos: pos})
}

func (l *lexer) separator() {
	start := l.pos
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	l.emit(KindSeparator, " ", l.src[start:l.pos], start)
}

// quoted lexes a "..." phrase as one free-text token. An unterminated quote
// runs to the end of input.
func (l *lexer) quoted() {
	start := l.pos
	l.pos = quoteEnd(l.src, start)
	raw := l.src[start:l.pos]
	l.emit(KindFreeText, unquote(raw), raw, start)
}

func (l *lexer) word() {
	start := l.pos
	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) {
		l.pos++
	}
	raw := l.src[start:l.pos]
	l.emit(KindFreeText, raw, raw, start)
}

// fieldGroup lexes name:value when name is in the vocabulary and the value
// is non-empty. It emits Field, Operator and FreeText tokens and reports
// whether it consumed anything.
func (l *lexer) fieldGroup() bool {
	start := l.pos
	i := start
	for i < len(l.src) && isIdentByte(l.src[i]) {
		i++
	}
	if i == start || i >= len(l.src) || l.src[i] != ':' {
		return false
	}
	name, _, ok := l.vocab.Lookup(l.src[start:i])
	if !ok {
		return false
	}

	valStart := i + 1
	var valEnd int
	var value string
	switch {
	case valStart >= len(l.src) || isSpace(l.src[valStart]):
		return false
	case l.src[valStart] == '"':
		valEnd = quoteEnd(l.src, valStart)
		value = unquote(l.src[valStart:valEnd])
	default:
		valEnd = valStart
		for valEnd < len(l.src) && !isSpace(l.src[valEnd]) {
			valEnd++
		}
		value = l.src[valStart:valEnd]
	}
	if strings.TrimSpace(value) == "" {
		return false
	}

	l.emit(KindField, name, l.src[start:i], start)
	l.emit(KindOperator, string(Equals), ":", i)
	l.emit(KindFreeText, value, l.src[valStart:valEnd], valStart)
	l.pos = valEnd
	return true
}

// quoteEnd returns the offset just past the quote closing the one at start,
// or len(s) when the quote is unterminated.
func quoteEnd(s string, start int) int {
	if end := strings.IndexByte(s[start+1:], '"'); end >= 0 {
		return start + 1 + end + 1
	}
	return len(s)
}

func unquote(raw string) string {
	s := strings.TrimPrefix(raw, `"`)
	return strings.TrimSuffix(s, `"`)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
