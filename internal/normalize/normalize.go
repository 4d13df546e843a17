// Package normalize builds the canonical lookup key for shared named entities.
//
// Two author or tag names that produce the same key are the same entity:
//
//	normalize.Name("  Frank   HERBERT ") == normalize.Name("frank herbert")
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Name composes the string to NFC, folds case and collapses runs of
// whitespace into one space. Accents are kept, so "Zoë" and "Zoe" differ.
func Name(s string) string {
	s = norm.NFC.String(s)
	// a Caser keeps state and must not be shared between goroutines
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Blank reports whether s has no visible characters.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
