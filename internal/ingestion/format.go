package ingestion

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Format is a supported upload format.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatJSON     Format = "json"
	FormatZIP      Format = "zip"
)

var contentTypes = map[Format]string{
	FormatText:     "text/plain; charset=utf-8",
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatPDF:      "application/pdf",
	FormatHTML:     "text/html; charset=utf-8",
	FormatDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatJSON:     "application/json",
	FormatZIP:      "application/zip",
}

// ContentType returns the MIME type stored with originals of this format.
func (f Format) ContentType() string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

var extensions = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".pdf":      FormatPDF,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".docx":     FormatDOCX,
	".json":     FormatJSON,
	".zip":      FormatZIP,
}

// UnsupportedFormatError is returned for files that cannot be ingested.
type UnsupportedFormatError struct {
	Filename string
	Reason   string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file %q: %s", e.Filename, e.Reason)
}

// DetectFormat picks the format from the file extension, falling back to
// content sniffing for files without one.
func DetectFormat(filename string, content []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if ext == ".doc" {
		return "", &UnsupportedFormatError{Filename: filename, Reason: "legacy .doc files are not supported, save as .docx"}
	}
	if ext != "" {
		return "", &UnsupportedFormatError{Filename: filename, Reason: "unknown extension " + ext}
	}

	sniffed := http.DetectContentType(content)
	switch {
	case strings.HasPrefix(sniffed, "application/pdf"):
		return FormatPDF, nil
	case strings.HasPrefix(sniffed, "text/html"):
		return FormatHTML, nil
	case strings.HasPrefix(sniffed, "application/zip"):
		return FormatZIP, nil
	case strings.HasPrefix(sniffed, "text/plain"):
		return FormatText, nil
	}
	return "", &UnsupportedFormatError{Filename: filename, Reason: "unrecognized content type " + sniffed}
}
