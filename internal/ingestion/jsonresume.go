package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/resume-rag/internal/schemas"
	"github.com/jonathan/resume-rag/internal/types"
)

// structuredResume mirrors resume.schema.json.
type structuredResume struct {
	Basics struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Summary string `json:"summary"`
	} `json:"basics"`
	Skills     []string `json:"skills"`
	Experience []struct {
		Company    string   `json:"company"`
		Title      string   `json:"title"`
		Summary    string   `json:"summary"`
		Highlights []string `json:"highlights"`
	} `json:"experience"`
	Education []types.Education `json:"education"`
	Projects  []types.Project   `json:"projects"`
}

// parseStructured validates a JSON resume and renders it to searchable text.
// Fields that a free-text resume would need heuristics for are taken as is.
func parseStructured(content []byte) (*Parsed, error) {
	if err := schemas.ValidateResume(content); err != nil {
		return nil, err
	}

	var sr structuredResume
	if err := json.Unmarshal(content, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode structured resume: %w", err)
	}

	var sb strings.Builder
	line := func(parts ...string) {
		var kept []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			sb.WriteString(strings.Join(kept, " - "))
			sb.WriteByte('\n')
		}
	}

	line(sr.Basics.Name)
	line(sr.Basics.Email, sr.Basics.Phone)
	if sr.Basics.Summary != "" {
		sb.WriteByte('\n')
		line(sr.Basics.Summary)
	}
	if len(sr.Skills) > 0 {
		sb.WriteString("\nSkills: ")
		sb.WriteString(strings.Join(sr.Skills, ", "))
		sb.WriteByte('\n')
	}
	if len(sr.Experience) > 0 {
		sb.WriteString("\nExperience\n")
		for _, e := range sr.Experience {
			line(e.Title, e.Company)
			line(e.Summary)
			for _, h := range e.Highlights {
				line("• " + h)
			}
		}
	}
	if len(sr.Education) > 0 {
		sb.WriteString("\nEducation\n")
		for _, e := range sr.Education {
			line(e.Degree, e.Institution, e.Year)
		}
	}
	if len(sr.Projects) > 0 {
		sb.WriteString("\nProjects\n")
		for _, p := range sr.Projects {
			line(p.Title, p.Description)
			if len(p.Technologies) > 0 {
				line("Technologies: " + strings.Join(p.Technologies, ", "))
			}
		}
	}

	pii := &types.PII{Name: sr.Basics.Name, Email: sr.Basics.Email, Phone: sr.Basics.Phone}
	if pii.IsEmpty() {
		pii = nil
	}
	return &Parsed{
		Format:      FormatJSON,
		ContentType: FormatJSON.ContentType(),
		Text:        CleanText(sb.String()),
		PII:         pii,
		Education:   sr.Education,
		Projects:    sr.Projects,
		Skills:      sr.Skills,
	}, nil
}
