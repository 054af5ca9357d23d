// Package quality implements the deterministic content-quality pipeline:
// word accounting, the fixed-order repair transforms, and the validator that
// checks generated content against the request parameters.
package quality

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	codeFenceBlockRe = regexp.MustCompile("(?s)```.*?```")
	markdownLinkRe   = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	imageMarkerRe    = regexp.MustCompile(`\[IMAGE:[^\]]*\]`)
	markupCharRe     = regexp.MustCompile("[#>*_`~]")
	headingLineRe    = regexp.MustCompile(`^#{1,6}\s+`)
	paragraphSplitRe = regexp.MustCompile(`\n\n+`)
	blankRunRe       = regexp.MustCompile(`\n{3,}`)
)

// CountWords counts prose words, ignoring fenced code, links, image markers,
// and Markdown punctuation.
func CountWords(text string) int {
	cleaned := codeFenceBlockRe.ReplaceAllString(text, " ")
	cleaned = markdownLinkRe.ReplaceAllString(cleaned, " ")
	cleaned = imageMarkerRe.ReplaceAllString(cleaned, " ")
	cleaned = markupCharRe.ReplaceAllString(cleaned, " ")
	return len(strings.Fields(cleaned))
}

// CountImageMarkers counts inline [IMAGE: ...] placeholders.
func CountImageMarkers(text string) int {
	return strings.Count(text, "[IMAGE:")
}

// HashText returns the hex-encoded sha256 digest of the text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func splitParagraphs(text string) []string {
	return paragraphSplitRe.Split(strings.TrimSpace(text), -1)
}

func collapseBlankRuns(text string) string {
	return strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
}
