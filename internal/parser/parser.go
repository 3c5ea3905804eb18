package parser

import (
	"regexp"
	"strings"

	"github.com/kotaehq/kotae/internal/models"
)

// sectionHeaderRe matches a section header line of the form:
//
//	Some Title ( https://example.com/page )
//
// Title is the text before the parenthesized URL. Blank-padded
// parentheses and trailing whitespace are tolerated.
var sectionHeaderRe = regexp.MustCompile(`(?i)^(.+?)\s*\(\s*(https?://[^\s)]+)\s*\)\s*$`)

// ParseSections splits raw document text into titled sections. A line
// matching the header pattern starts a new section; every following
// non-empty line belongs to it until the next header. Lines before the
// first header are discarded. Returns nil when no header is found.
func ParseSections(text string) []models.Section {
	var sections []models.Section
	var current *models.Section
	var lines []string

	flush := func() {
		if current == nil {
			return
		}
		current.FullText = strings.TrimSpace(strings.Join(lines, "\n"))
		sections = append(sections, *current)
		current = nil
		lines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if m := sectionHeaderRe.FindStringSubmatch(stripped); m != nil {
			flush()
			current = &models.Section{
				Title: strings.TrimSpace(m[1]),
				URL:   strings.TrimSpace(m[2]),
			}
			continue
		}
		if current != nil {
			lines = append(lines, stripped)
		}
	}
	flush()
	return sections
}

// ParseFile extracts text from the file at path and parses it into
// sections.
func (e *Extractor) ParseFile(path string) ([]models.Section, error) {
	text, err := e.Extract(path)
	if err != nil {
		return nil, err
	}
	return ParseSections(text), nil
}
