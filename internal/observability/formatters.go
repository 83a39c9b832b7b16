// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-rag/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintUpload outputs the documents created by one upload and any archive
// entries that were skipped.
func (p *Printer) PrintUpload(filename string, res *types.UploadResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Documents: %d\n", len(res.Items))

	count := min(len(res.Items), maxItemsToShow)
	for i := 0; i < count; i++ {
		item := res.Items[i]
		fmt.Fprintf(&sb, "\n• %s\n", item.Filename)
		fmt.Fprintf(&sb, "  id: %s\n", item.ID)
		if len(item.Skills) > 0 {
			fmt.Fprintf(&sb, "  skills: %s\n", strings.Join(item.Skills, ", "))
		}
	}
	if len(res.Items) > maxItemsToShow {
		fmt.Fprintf(&sb, "\n... and %d more\n", len(res.Items)-maxItemsToShow)
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintf(&sb, "\nSkipped %d:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(&sb, "  ✗ %s: %s\n", s.Filename, s.Reason)
		}
	}

	p.printBox("INGESTED "+filename, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalytics outputs corpus totals, the top skills and monthly uploads.
func (p *Printer) PrintAnalytics(a *types.Analytics) {
	if a == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total resumes: %d\n", a.TotalResumes)

	if len(a.TopSkills) > 0 {
		sb.WriteString("\nTop skills:\n")
		count := min(len(a.TopSkills), maxItemsToShow)
		for i := 0; i < count; i++ {
			fmt.Fprintf(&sb, "  %-20s %d\n", a.TopSkills[i].Skill, a.TopSkills[i].Count)
		}
	}

	if len(a.UploadsPerMonth) > 0 {
		sb.WriteString("\nUploads per month:\n")
		for _, m := range a.UploadsPerMonth {
			fmt.Fprintf(&sb, "  %s  %d\n", m.Month, m.Count)
		}
	}

	p.printBox("CORPUS", strings.TrimSuffix(sb.String(), "\n"))
}
