package ingestion

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spaceRunRe  = regexp.MustCompile(`[ \t\x{00A0}\x{2007}\x{202F}]+`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	bulletRunes = "•·▪◦‣●-*"
)

// CleanText normalizes extracted text while keeping its line structure:
// line endings become LF, control characters are dropped, runs of spaces
// collapse and no more than one blank line separates paragraphs. Bullet
// markers are kept.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := strings.Join(lines, "\n")
	result = blankRunRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine collapses inner whitespace and trims the line.
func cleanLine(line string) string {
	line = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	if line == "" {
		return ""
	}
	return line
}

// isBulletLine reports whether a line starts with a list marker.
func isBulletLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	r := []rune(trimmed)[0]
	return strings.ContainsRune(bulletRunes, r)
}

// stripBullet removes a leading list marker.
func stripBullet(line string) string {
	trimmed := strings.TrimSpace(line)
	if !isBulletLine(trimmed) {
		return trimmed
	}
	return strings.TrimSpace(strings.TrimLeft(trimmed, bulletRunes+" "))
}
