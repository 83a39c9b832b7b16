// Package ingestion turns uploaded resume files into clean text and the
// structured fields recruiters filter on.
package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/resume-rag/internal/types"
)

// Parsed is one ingested resume before it is assigned an ID and stored.
type Parsed struct {
	Format      Format
	ContentType string
	Text        string
	PII         *types.PII
	Education   []types.Education
	Projects    []types.Project
	// Skills are only set for structured uploads that list them explicitly.
	Skills []string
}

// ParseError wraps a failure to read a file that has a supported format.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse extracts text and structured fields from a single resume file.
// ZIP archives are rejected here; expand them with ExpandArchive first.
func Parse(filename string, content []byte) (*Parsed, error) {
	format, err := DetectFormat(filename, content)
	if err != nil {
		return nil, err
	}

	var raw string
	switch format {
	case FormatZIP:
		return nil, &UnsupportedFormatError{Filename: filename, Reason: "archives must be expanded before parsing"}
	case FormatJSON:
		p, err := parseStructured(content)
		if err != nil {
			return nil, &ParseError{Filename: filename, Err: err}
		}
		if p.Text == "" {
			return nil, &ParseError{Filename: filename, Err: errNoText}
		}
		return p, nil
	case FormatPDF:
		raw, err = extractPDF(content)
	case FormatHTML:
		raw, err = extractHTML(content)
	case FormatDOCX:
		raw, err = extractDOCX(content)
	default:
		raw = strings.ToValidUTF8(string(content), "")
	}
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}

	text := CleanText(raw)
	if text == "" {
		return nil, &ParseError{Filename: filename, Err: errNoText}
	}

	return &Parsed{
		Format:      format,
		ContentType: format.ContentType(),
		Text:        text,
		PII:         ExtractPII(text),
		Education:   ExtractEducation(text),
		Projects:    ExtractProjects(text),
	}, nil
}

var errNoText = errors.New("no extractable text")
