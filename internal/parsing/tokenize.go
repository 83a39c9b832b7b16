// Package parsing splits resume, job and query text into comparable tokens.
package parsing

import (
	"strings"
	"unicode"
)

// Token is one case-folded term and its position in the source text.
// Start and End are rune offsets, End exclusive.
type Token struct {
	Text  string
	Start int
	End   int
}

// isWordRune reports whether r can start or continue a token.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// TokenizeWithOffsets splits text into lowercase tokens of letters and digits.
// A '+' or '#' directly after a token stays attached to it (c++, c#), and a
// '.' between two word runes is kept inside the token (node.js, 3.5).
// Everything else is a separator.
func TokenizeWithOffsets(text string) []Token {
	runes := []rune(text)
	var tokens []Token
	var b strings.Builder

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tokens = append(tokens, Token{Text: b.String(), Start: start, End: end})
		b.Reset()
		start = -1
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
			b.WriteRune(unicode.ToLower(r))
		case start >= 0 && (r == '+' || r == '#'):
			// Consume the whole suffix run so "c++" is one token.
			for i < len(runes) && (runes[i] == '+' || runes[i] == '#') {
				b.WriteRune(runes[i])
				i++
			}
			flush(i)
			i--
		case start >= 0 && r == '.' && i+1 < len(runes) && isWordRune(runes[i+1]):
			b.WriteRune(r)
		default:
			flush(i)
		}
	}
	flush(len(runes))
	return tokens
}

// Tokenize returns just the token texts of TokenizeWithOffsets.
func Tokenize(text string) []string {
	toks := TokenizeWithOffsets(text)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

// QueryTerms tokenizes a search query and drops stop words. When
// dropFillers is set, question words such as "who" or "knows" are removed
// as well so that only the subject of the question remains.
func QueryTerms(query string, dropFillers bool) []string {
	var out []string
	for _, t := range Tokenize(query) {
		if IsStopWord(t) {
			continue
		}
		if dropFillers && IsQuestionFiller(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
