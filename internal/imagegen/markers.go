// Package imagegen turns the image markers embedded in generated content
// into rendered images, with retry, quota tracking, and progress reporting.
package imagegen

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	markerRe       = regexp.MustCompile(`\[IMAGE:\s*([^\]]*?)\]`)
	sectionTitleRe = regexp.MustCompile(`SECTION_TITLE="([^"]+)"`)
	keywordsRe     = regexp.MustCompile(`KEYWORDS="([^"]+)"`)
	descriptionRe  = regexp.MustCompile(`DESCRIPTION="([^"]+)"`)
)

var titleCaser = cases.Title(language.English)

// Marker is one parsed image marker.
type Marker struct {
	SectionTitle string
	Keywords     string
	Description  string
}

// ExtractMarkers returns the raw bodies of every image marker in document
// order.
func ExtractMarkers(content string) []string {
	var out []string
	for _, m := range markerRe.FindAllStringSubmatch(content, -1) {
		body := strings.TrimSpace(m[1])
		if body != "" {
			out = append(out, body)
		}
	}
	return out
}

// ParseMarker splits a raw marker body into its fields. A marker without a
// description keeps the raw body so the prompt still carries some signal,
// and a missing section title is derived from the first keyword.
func ParseMarker(raw string) Marker {
	m := Marker{Description: raw}
	if match := sectionTitleRe.FindStringSubmatch(raw); match != nil {
		m.SectionTitle = match[1]
	}
	if match := keywordsRe.FindStringSubmatch(raw); match != nil {
		m.Keywords = match[1]
	}
	if match := descriptionRe.FindStringSubmatch(raw); match != nil {
		m.Description = match[1]
	}
	if m.SectionTitle == "" && m.Keywords != "" {
		first := strings.TrimSpace(strings.SplitN(m.Keywords, ",", 2)[0])
		if first != "" {
			m.SectionTitle = titleCaser.String(first)
		}
	}
	return m
}
