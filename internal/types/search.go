//nolint:revive // types is a standard Go package name pattern
package types

// Span marks a highlighted region of a snippet. Offset and Length count runes
// from the start of the snippet text; rendering is left to the client.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Snippet is an excerpt of a document with highlighted matches.
type Snippet struct {
	Text       string `json:"text"`
	Highlights []Span `json:"highlights"`
}

// SearchHit is one ranked search result.
type SearchHit struct {
	ResumeSummary
	Score         float64  `json:"score"`
	MatchedSkills []string `json:"matchedSkills"`
	Snippet       string   `json:"snippet,omitempty"`
	Highlights    []Span   `json:"highlights,omitempty"`
}

// SearchPage is one page of ranked results. Total counts every match of the
// query before pagination.
type SearchPage struct {
	Items  []SearchHit `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
