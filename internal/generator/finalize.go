package generator

import (
	"fmt"
	"regexp"
	"strings"

	"writeflow/internal/domain"
	"writeflow/internal/quality"
)

var (
	imageMarkerTrailRe = regexp.MustCompile(`\[IMAGE:[^\]]*\]\s*`)
	referencesHeadRe   = regexp.MustCompile(`(?im)^##\s+references\b`)
	abstractHeadRe     = regexp.MustCompile(`(?im)^##\s+abstract\b`)
	introductionHeadRe = regexp.MustCompile(`(?im)^##\s+introduction\b`)
	mainBodyHeadRe     = regexp.MustCompile(`(?im)^##\s+main body\b`)
	conclusionHeadRe   = regexp.MustCompile(`(?im)^##\s+conclusion\b`)
	anyH3Re            = regexp.MustCompile(`(?m)^###\s+`)
	firstH3BreakRe     = regexp.MustCompile(`\n\n###\s+`)
)

// EnsureReferencesSection appends a synthesized References section when the
// payload requested references but the content has none.
func EnsureReferencesSection(content string, p domain.Payload) string {
	text := strings.TrimSpace(content)
	if !p.References || referencesHeadRe.MatchString(text) {
		return text
	}
	style := p.CitationStyle
	if style == "" {
		style = "APA"
	}
	var items []string
	for _, r := range referencesFor(quality.ClassifyTopic(p.Topic)) {
		items = append(items, "- "+r)
	}
	return strings.TrimSpace(fmt.Sprintf("%s\n\n## References (%s)\n%s", text, style, strings.Join(items, "\n")))
}

// EnsureCoreSections guarantees the document has an H1 title plus Abstract,
// Introduction, Main Body, and Conclusion sections, synthesizing the missing
// ones. A document with H3 sections but no Main Body heading gets the first
// H3 promoted under a new Main Body heading.
func EnsureCoreSections(content string, p domain.Payload) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return text
	}

	d := defaultsFor(p)
	lines := strings.Split(text, "\n")
	firstNonEmpty := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			firstNonEmpty = i
			break
		}
	}
	if firstNonEmpty < 0 {
		return text
	}

	h1Index := -1
	for i := firstNonEmpty; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "# ") {
			h1Index = i
			break
		}
	}

	titleLine := "# " + strings.TrimSpace(p.Topic)
	var afterTitle string
	if h1Index >= 0 {
		titleLine = lines[h1Index]
		afterTitle = strings.TrimSpace(strings.Join(lines[h1Index+1:], "\n"))
	} else {
		afterTitle = strings.TrimSpace(strings.Join(lines[firstNonEmpty+1:], "\n"))
	}

	out := titleLine
	if !abstractHeadRe.MatchString(afterTitle) {
		out += "\n\n## Abstract\n" + d.Abstract
	}
	if !introductionHeadRe.MatchString(afterTitle) {
		out += "\n\n## Introduction\n" + d.Introduction
	}

	if !mainBodyHeadRe.MatchString(afterTitle) && anyH3Re.MatchString(afterTitle) {
		replaced := replaceFirst(firstH3BreakRe, afterTitle, "\n\n## Main Body\n\n### ")
		out += "\n\n" + replaced
	} else if afterTitle != "" {
		out += "\n\n" + afterTitle
	}

	if !conclusionHeadRe.MatchString(out) {
		out += "\n\n## Conclusion\n" + d.Conclusion
	}
	return strings.TrimSpace(out)
}

// EnforceImageMarkersExact makes the marker count match the request exactly:
// strips all markers when images are disabled, drops surplus markers in
// document order, and appends synthesized markers when short.
func EnforceImageMarkersExact(content string, p domain.Payload) string {
	text := strings.TrimSpace(content)
	current := quality.CountImageMarkers(text)

	if !p.IncludeImages || p.ImageCount <= 0 {
		return imageMarkerTrailRe.ReplaceAllString(text, "")
	}
	if current == p.ImageCount {
		return text
	}

	if current > p.ImageCount {
		remaining := p.ImageCount
		return strings.TrimSpace(imageMarkerTrailRe.ReplaceAllStringFunc(text, func(m string) string {
			if remaining <= 0 {
				return ""
			}
			remaining--
			return m
		}))
	}

	var appendix []string
	for i := current; i < p.ImageCount; i++ {
		appendix = append(appendix, fmt.Sprintf(
			`[IMAGE: SECTION_TITLE="Additional Visual %d" || KEYWORDS="diagram, concept, process" || DESCRIPTION="A clear educational diagram related to %s in %s."]`,
			i+1, p.Topic, p.Subject))
	}
	return strings.TrimSpace(text + "\n\n" + strings.Join(appendix, "\n"))
}

func replaceFirst(re *regexp.Regexp, text, replacement string) string {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + replacement + text[loc[1]:]
}
