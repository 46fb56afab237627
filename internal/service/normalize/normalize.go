// Package normalize folds free text into the plain lower-case ASCII form
// stored in the ledger.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NotApplicable is the token the classifier emits for an absent value.
const NotApplicable = "N/A"

var notApplicable = map[string]struct{}{
	"n/a": {},
	"na":  {},
}

func asciiFold() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
}

// Text decomposes accented characters, drops everything outside ASCII,
// lower-cases and trims. Empty input and the not-applicable token map to "".
// Text is idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(asciiFold(), s)
	if err != nil {
		folded = stripNonASCII(norm.NFKD.String(s))
	}

	folded = strings.TrimSpace(strings.ToLower(folded))
	if _, ok := notApplicable[folded]; ok {
		return ""
	}
	return folded
}

// IsNotApplicable reports whether s is the classifier's not-applicable token.
func IsNotApplicable(s string) bool {
	_, ok := notApplicable[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func stripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
