//nolint:revive // types is a standard Go package name pattern
package types

import (
	"regexp"
	"strings"
)

// RedactedContact replaces an email address or phone number in text served
// to callers that may not see contact details.
const RedactedContact = "[redacted]"

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\(?\d[\d \t().\-]{7,}\d`)
	digitGroups  = regexp.MustCompile(`\d+`)
)

// FindEmail returns the first email address in text.
func FindEmail(text string) string {
	return emailPattern.FindString(text)
}

// FindPhone returns the first phone number in text.
func FindPhone(text string) string {
	for _, m := range phonePattern.FindAllString(text, -1) {
		if isPhone(m) {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// isPhone rejects digit runs that are too short or too long for a phone
// number, and year ranges such as "2019 - 2023".
func isPhone(m string) bool {
	digits := 0
	allYears := true
	for _, g := range digitGroups.FindAllString(m, -1) {
		digits += len(g)
		if len(g) != 4 || !(strings.HasPrefix(g, "19") || strings.HasPrefix(g, "20")) {
			allYears = false
		}
	}
	return digits >= 10 && digits <= 15 && !allYears
}

// RedactContacts replaces every email address and phone number in text with
// RedactedContact.
func RedactContacts(text string) string {
	text = emailPattern.ReplaceAllString(text, RedactedContact)
	return phonePattern.ReplaceAllStringFunc(text, func(m string) string {
		if isPhone(m) {
			return RedactedContact
		}
		return m
	})
}
