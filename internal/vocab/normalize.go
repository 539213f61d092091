package vocab

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key folds a label into the form used for lookups: NFKC, control characters
// stripped, inner whitespace collapsed, case folded.
func Key(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	// cases.Caser is stateful, so each call gets its own.
	return cases.Fold().String(s)
}

// Split breaks multi-valued free text on delim and drops empty entries.
func Split(text, delim string) []string {
	if delim == "" {
		delim = ","
	}
	parts := strings.Split(text, delim)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(norm.NFKC.String(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ContainsWord reports whether word occurs in text as a whole word, ignoring
// case. Word boundaries are runes that are neither letters nor digits, so
// "java" is found in "Core Java, SQL" but not in "JavaScript".
func ContainsWord(text, word string) bool {
	t, w := Key(text), Key(word)
	if w == "" {
		return false
	}
	for from := 0; from <= len(t)-len(w); {
		i := strings.Index(t[from:], w)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(w)
		if boundaryBefore(t, start) && boundaryAfter(t, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}
