// Package format post-processes free-form model replies for the chat
// panel: structuring plain prose into markdown sections and guarding
// against queries about years that have not happened yet.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	sectionHeader = regexp.MustCompile(`^[A-Z][A-Za-z\s]+:`)
	numberedItem  = regexp.MustCompile(`^\d+\.\s`)
	bulletItem    = regexp.MustCompile(`^[•\-\*]\s`)
	yearRef       = regexp.MustCompile(`\b(20\d{2})\b`)
)

// Structure rewrites a plain-prose reply into markdown sections.
// Replies that already carry headings pass through unchanged. Lines
// shaped like "Header:" become section headings; numbered and bulleted
// runs get grouped under Key Points and Details.
func Structure(response string) string {
	if strings.Contains(response, "#") {
		return response
	}

	var sections []string
	var current strings.Builder
	headed := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(response, "\n") {
		switch {
		case sectionHeader.MatchString(line):
			flush()
			current.WriteString("## " + line + "\n")
			headed = true
		case numberedItem.MatchString(line):
			if !strings.Contains(current.String(), "## ") {
				flush()
				current.WriteString("## Key Points\n")
			}
			current.WriteString(line + "\n")
			headed = true
		case bulletItem.MatchString(line):
			if !strings.Contains(current.String(), "## ") {
				flush()
				current.WriteString("## Details\n")
			}
			current.WriteString(line + "\n")
			headed = true
		default:
			current.WriteString(line + "\n")
		}
	}
	flush()

	if !headed {
		return "## Summary\n" + response
	}
	return strings.Join(sections, "\n\n")
}

// FutureYear reports the first year mentioned in the query that lies
// after the current year, if any. Such queries get a canned reply
// instead of a search for information that cannot exist.
func FutureYear(query string, now time.Time) (int, bool) {
	m := yearRef.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	year, _ := strconv.Atoi(m[1])
	if year > now.Year() {
		return year, true
	}
	return 0, false
}

// FutureYearReply is the canned response for queries about a year that
// has not happened yet.
func FutureYearReply(year int, now time.Time) string {
	return fmt.Sprintf("I can only search for information up to the current year (%d). If you'd like, I can search for current forecasts and predictions about %d, or I can modify the search to look for the most recent information available.", now.Year(), year)
}
