//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Job is a job posting that candidates are matched against. Skills are
// normalized and deduplicated in first-seen order.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Skills      []string  `json:"skills"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=20000"`
	Skills      []string `json:"skills" validate:"required,min=1,max=100,dive,max=100"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// MatchRequest is the optional body of POST /jobs/{id}/match.
type MatchRequest struct {
	TopN int `json:"top_n"`
}

// MatchResult explains how one document scored against a job. It is
// recomputed per request and never persisted. ID repeats DocumentID for the
// web client.
type MatchResult struct {
	DocumentID         string   `json:"documentId"`
	ID                 string   `json:"id"`
	Filename           string   `json:"filename"`
	Score              float64  `json:"score"`
	MatchedSkills      []string `json:"matchedSkills"`
	MissingSkills      []string `json:"missingSkills"`
	HighlightedSnippet string   `json:"highlightedSnippet"`
	Highlights         []Span   `json:"highlights"`
}

// MatchResponse is the body returned by the match endpoint.
type MatchResponse struct {
	Job     *Job          `json:"job"`
	Matches []MatchResult `json:"matches"`
}
