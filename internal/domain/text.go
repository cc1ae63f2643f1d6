package domain

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower folds s to lower case with Unicode casing rules, so final sigma and
// dotted capital I fold the same way on the stored and the query side.
func Lower(s string) string {
	// cases.Caser is stateful and must not be shared across goroutines.
	return cases.Lower(language.Und).String(s)
}
