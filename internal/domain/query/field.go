package query

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is the comparison a field predicate applies to its value.
type Operator string

const (
	// Equals matches the whole field value.
	Equals Operator = "equals"
	// Contains matches a substring of the field value.
	Contains Operator = "contains"
)

// IsValid reports whether o is a known operator.
func (o Operator) IsValid() bool {
	return o == Equals || o == Contains
}

// FreeTextField is the reserved predicate field that carries free-text terms.
const FreeTextField = "freeText"

// Vocabulary is the enumerated set of field names a namespace understands,
// each bound to the operator its predicates use.
type Vocabulary struct {
	ops map[string]Operator
}

// NewVocabulary validates and creates a Vocabulary. Names are case-insensitive.
func NewVocabulary(fields map[string]Operator) (Vocabulary, error) {
	ops := make(map[string]Operator, len(fields))
	for name, op := range fields {
		key := strings.ToLower(name)
		if !isFieldName(key) {
			return Vocabulary{}, fmt.Errorf("invalid field name %q", name)
		}
		if key == strings.ToLower(FreeTextField) {
			return Vocabulary{}, fmt.Errorf("field name %q is reserved", name)
		}
		if !op.IsValid() {
			return Vocabulary{}, fmt.Errorf("invalid operator %q for field %q", op, name)
		}
		if _, dup := ops[key]; dup {
			return Vocabulary{}, fmt.Errorf("duplicate field %q", key)
		}
		ops[key] = op
	}
	return Vocabulary{ops: ops}, nil
}

// DefaultVocabulary returns the catalog fields: tag, level, language and title.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{ops: map[string]Operator{
		"tag":      Equals,
		"level":    Equals,
		"language": Equals,
		"title":    Contains,
	}}
}

// Lookup returns the canonical field name and its operator.
func (v Vocabulary) Lookup(name string) (string, Operator, bool) {
	key := strings.ToLower(name)
	op, ok := v.ops[key]
	return key, op, ok
}

// Fields returns the field names in lexicographic order.
func (v Vocabulary) Fields() []string {
	names := make([]string, 0, len(v.ops))
	for name := range v.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of fields.
func (v Vocabulary) Len() int { return len(v.ops) }

func isFieldName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}
