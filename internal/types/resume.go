// Package types provides the typed entities shared by the store, index,
// ranking, matching and HTTP layers.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"
)

// PII holds candidate contact details. It is only ever shown to recruiters.
type PII struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IsEmpty reports whether no contact field was extracted.
func (p *PII) IsEmpty() bool {
	return p == nil || (p.Name == "" && p.Email == "" && p.Phone == "")
}

// Education is one entry of a resume's education section.
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Year        string `json:"year,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

// Project is one entry of a resume's projects section.
type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Link         string   `json:"link,omitempty"`
}

// ResumeDocument is a parsed resume record owned by the document store.
// Other components reference it by ID and never copy the full text.
type ResumeDocument struct {
	ID          string      `json:"id"`
	Filename    string      `json:"filename"`
	Text        string      `json:"text"`
	Skills      []string    `json:"skills"`
	PII         *PII        `json:"pii,omitempty"`
	Education   []Education `json:"education"`
	Projects    []Project   `json:"projects"`
	ContentHash string      `json:"contentHash,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	UploadedBy  string      `json:"uploadedBy,omitempty"`
	BlobKey     string      `json:"-"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// WithoutPII returns a shallow copy with contact details removed from the
// structured fields and the text. Slices are shared, which is safe because
// documents are immutable once stored.
func (d *ResumeDocument) WithoutPII() *ResumeDocument {
	cp := *d
	cp.PII = nil
	cp.UploadedBy = ""
	cp.Text = RedactContacts(d.Text)
	return &cp
}

// previewChars bounds the text preview carried by summaries.
const previewChars = 240

// ResumeSummary is the list view of a document used by search and upload
// responses.
type ResumeSummary struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Skills    []string  `json:"skills"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary builds the list view of the document. The preview never carries
// contact details.
func (d *ResumeDocument) Summary() ResumeSummary {
	skills := d.Skills
	if skills == nil {
		skills = []string{}
	}
	return ResumeSummary{
		ID:        d.ID,
		Filename:  d.Filename,
		Skills:    skills,
		Text:      Preview(RedactContacts(d.Text), previewChars),
		CreatedAt: d.CreatedAt,
	}
}

// Preview returns at most n runes of s.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// UploadResult is the response body of a resume upload. A ZIP upload yields
// one item per extracted resume.
type UploadResult struct {
	Items   []ResumeSummary `json:"items"`
	Skipped []SkippedFile   `json:"skipped,omitempty"`
}

// SkippedFile records an archive entry that could not be ingested.
type SkippedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}
