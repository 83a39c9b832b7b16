//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Answer is one piece of evidence returned by an ask. ID and Evidence repeat
// DocumentID and EvidenceSnippet under the names the web client reads.
type Answer struct {
	DocumentID      string  `json:"documentId"`
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	EvidenceSnippet string  `json:"evidenceSnippet"`
	Evidence        string  `json:"evidence"`
	Highlights      []Span  `json:"highlights,omitempty"`
	Score           float64 `json:"score"`
}

// AskQuery is a logged question together with the answers it produced at the
// time it was asked.
type AskQuery struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	K         int       `json:"k"`
	Answers   []Answer  `json:"answers"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query string `json:"query" validate:"required,max=1000"`
	K     int    `json:"k"`
}

// AskResponse is the body returned by POST /ask.
type AskResponse struct {
	ID      string   `json:"id"`
	Answers []Answer `json:"answers"`
}
