// Package text prepares raw input for scoring: normalization and chunking.
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern     = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	fileRefPattern = regexp.MustCompile(`\S+\.(?:pdf|zip|exe|doc|docx|xls|xlsx|ppt|pptx)\S*`)
)

// Normalize lowercases text, applies NFKC, strips URLs and file references,
// reduces everything except letters, digits, whitespace, sentence punctuation,
// apostrophes and hyphens to spaces, and collapses whitespace runs.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(norm.NFKC.String(s))
	s = urlPattern.ReplaceAllString(s, " ")
	s = fileRefPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func keepRune(r rune) bool {
	switch r {
	case '.', ',', '!', '?', '\'', '-':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r)
}
