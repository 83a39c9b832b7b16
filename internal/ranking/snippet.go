package ranking

import (
	"sort"
	"unicode"

	"github.com/jonathan/resume-rag/internal/parsing"
	"github.com/jonathan/resume-rag/internal/types"
)

// DefaultWindow is the snippet length in runes when none is given.
const DefaultWindow = 200

// TokenMapper canonicalizes a token the way the index does.
type TokenMapper interface {
	CanonicalToken(tok string) string
}

type occurrence struct {
	start, end int
}

// Snippet cuts the window of text holding the densest cluster of matched
// terms. A term may span several tokens ("machine learning"); tokens are
// compared after mapping through m. Highlights are rune spans relative to
// the returned text. With no match, the first window runes are returned.
func Snippet(text string, terms []string, window int, m TokenMapper) types.Snippet {
	if window <= 0 {
		window = DefaultWindow
	}
	runes := []rune(text)
	occs := findOccurrences(text, terms, m)
	if len(occs) == 0 {
		end := min(window, len(runes))
		return types.Snippet{Text: flatten(runes[:end]), Highlights: []types.Span{}}
	}

	// Pick the anchor whose window covers the most occurrences.
	bestStart, bestCount, bestLast := 0, 0, 0
	for i, o := range occs {
		limit := o.start + max(window, o.end-o.start)
		count, last := 0, i
		for j := i; j < len(occs) && occs[j].end <= limit; j++ {
			count++
			last = j
		}
		if count > bestCount {
			bestStart, bestCount, bestLast = i, count, last
		}
	}

	first, last := occs[bestStart], occs[bestLast]
	window = max(window, first.end-first.start)
	slack := window - (last.end - first.start)
	start := max(0, first.start-slack/2)
	end := min(len(runes), start+window)
	if end-start < window {
		start = max(0, end-window)
	}

	// Avoid cutting words at the edges without dropping a match.
	for start > 0 && start < first.start && isWord(runes[start-1]) && isWord(runes[start]) {
		start++
	}
	for end < len(runes) && end > last.end && isWord(runes[end-1]) && isWord(runes[end]) {
		end--
	}

	spans := []types.Span{}
	for _, o := range occs {
		if o.start >= start && o.end <= end {
			spans = append(spans, types.Span{Offset: o.start - start, Length: o.end - o.start})
		}
	}
	return types.Snippet{Text: flatten(runes[start:end]), Highlights: spans}
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// flatten replaces line breaks and tabs with spaces one rune for one, so
// span offsets stay valid.
func flatten(runes []rune) string {
	out := make([]rune, len(runes))
	for i, r := range runes {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out[i] = r
	}
	return string(out)
}

// findOccurrences returns the non-overlapping rune spans of terms in text,
// preferring the longest term at each position.
func findOccurrences(text string, terms []string, m TokenMapper) []occurrence {
	canon := func(s string) string {
		if m == nil {
			return s
		}
		return m.CanonicalToken(s)
	}

	var phrases [][]string
	seen := make(map[string]bool)
	for _, term := range terms {
		toks := parsing.Tokenize(term)
		if len(toks) == 0 {
			continue
		}
		key := ""
		for i, t := range toks {
			toks[i] = canon(t)
			key += toks[i] + " "
		}
		if !seen[key] {
			seen[key] = true
			phrases = append(phrases, toks)
		}
	}
	if len(phrases) == 0 {
		return nil
	}
	sort.SliceStable(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })

	toks := parsing.TokenizeWithOffsets(text)
	mapped := make([]string, len(toks))
	for i, t := range toks {
		mapped[i] = canon(t.Text)
	}

	var occs []occurrence
	for i := 0; i < len(toks); {
		n := 0
		for _, p := range phrases {
			if matchesAt(mapped, i, p) {
				n = len(p)
				break
			}
		}
		if n == 0 {
			i++
			continue
		}
		occs = append(occs, occurrence{start: toks[i].Start, end: toks[i+n-1].End})
		i += n
	}
	return occs
}

func matchesAt(tokens []string, i int, phrase []string) bool {
	if i+len(phrase) > len(tokens) {
		return false
	}
	for j, p := range phrase {
		if tokens[i+j] != p {
			return false
		}
	}
	return true
}
