package quality

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"writeflow/internal/domain"
)

// Issue codes reported by Validate.
const (
	IssueImageMarkers     = "IMAGE_MARKERS"
	IssueLengthUnder      = "LENGTH_UNDER"
	IssueLengthOver       = "LENGTH_OVER"
	IssueStructure        = "STRUCTURE"
	IssueLanguageMismatch = "LANGUAGE_MISMATCH"
	IssueStyle            = "STYLE"
)

// Stats carries the measurements behind a validation verdict.
type Stats struct {
	WordCount   int       `json:"wordCount"`
	MarkerCount int       `json:"markerCount"`
	Range       WordRange `json:"range"`
}

// Result is the outcome of a single Validate call. It is produced fresh per
// call and never persisted.
type Result struct {
	OK     bool                     `json:"ok"`
	Issues []domain.ValidationIssue `json:"issues"`
	Stats  Stats                    `json:"stats"`
}

var (
	referencesTailRe = regexp.MustCompile(`(?is)\n##\s+references\b.*$`)
	contractionRe    = regexp.MustCompile(`\b\w+'\w+\b`)
	requiredSections = []string{"Abstract", "Introduction", "Conclusion"}
	sectionRes       = map[string]*regexp.Regexp{
		"Abstract":     regexp.MustCompile(`(?im)^##\s+Abstract\b`),
		"Introduction": regexp.MustCompile(`(?im)^##\s+Introduction\b`),
		"Conclusion":   regexp.MustCompile(`(?im)^##\s+Conclusion\b`),
	}
)

// LanguageMetrics describes the script composition of the prose portion of
// the content (headings, markers, code, and the references tail excluded).
type LanguageMetrics struct {
	Language      string  `json:"language"`
	TotalLetters  int     `json:"totalLetters"`
	LatinLetters  int     `json:"latinLetters"`
	ArabicLetters int     `json:"arabicLetters"`
	ArabicRatio   float64 `json:"arabicRatio"`
	LatinRatio    float64 `json:"latinRatio"`
}

func isArabicScript(r rune) bool {
	return (r >= 0x0600 && r <= 0x06FF) ||
		(r >= 0x0750 && r <= 0x077F) ||
		(r >= 0x08A0 && r <= 0x08FF)
}

func languageMetrics(content string, p domain.Payload) LanguageMetrics {
	m := LanguageMetrics{Language: p.Language}
	if m.Language == "" {
		m.Language = "English"
	}
	if content == "" {
		return m
	}

	text := referencesTailRe.ReplaceAllString(content, "")
	text = imageMarkerRe.ReplaceAllString(text, " ")
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if headingLineRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	cleaned := strings.Join(kept, "\n")
	cleaned = codeFenceBlockRe.ReplaceAllString(cleaned, " ")
	cleaned = markdownLinkRe.ReplaceAllString(cleaned, " ")
	cleaned = markupCharRe.ReplaceAllString(cleaned, " ")

	for _, r := range cleaned {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			m.LatinLetters++
			m.TotalLetters++
		case isArabicScript(r):
			m.ArabicLetters++
			m.TotalLetters++
		case unicode.IsLetter(r):
			m.TotalLetters++
		}
	}
	if m.TotalLetters > 0 {
		m.ArabicRatio = float64(m.ArabicLetters) / float64(m.TotalLetters)
		m.LatinRatio = float64(m.LatinLetters) / float64(m.TotalLetters)
	}
	return m
}

// validateLanguage applies script-ratio thresholds: Urdu needs at least 40
// Arabic-script letters and a 35% ratio; English variants need at least 50%
// Latin letters and at most 20% Arabic script. Other languages pass.
func validateLanguage(content string, p domain.Payload) (bool, string, LanguageMetrics) {
	m := languageMetrics(content, p)
	if m.TotalLetters == 0 {
		return false, "Content has no letters.", m
	}
	switch m.Language {
	case "Urdu":
		if m.ArabicLetters >= 40 && m.ArabicRatio >= 0.35 {
			return true, "ok", m
		}
		return false, "Urdu selected but content is not predominantly Urdu script.", m
	case "English", "EnglishUK":
		if m.LatinRatio >= 0.5 && m.ArabicRatio <= 0.2 {
			return true, "ok", m
		}
		return false, "English selected but content appears to be another script.", m
	}
	return true, "ok", m
}

// Validate checks finished content against the request parameters: marker
// count, word-count window, document structure, language script, and style
// constraints.
func Validate(content string, p domain.Payload) Result {
	var issues []domain.ValidationIssue
	wordCount := CountWords(content)
	markerCount := CountImageMarkers(content)
	r := TargetWordRange(p.Pages, p.Level, p.Style)

	if p.IncludeImages {
		if markerCount != p.ImageCount {
			issues = append(issues, domain.ValidationIssue{
				Code:    IssueImageMarkers,
				Message: fmt.Sprintf("Expected exactly %d image markers but found %d.", p.ImageCount, markerCount),
			})
		}
	} else if markerCount != 0 {
		issues = append(issues, domain.ValidationIssue{
			Code:    IssueImageMarkers,
			Message: "No image markers are allowed when images are disabled.",
		})
	}

	if wordCount < r.Min {
		issues = append(issues, domain.ValidationIssue{
			Code:    IssueLengthUnder,
			Message: fmt.Sprintf("Content is too short for %d page(s).", p.Pages),
		})
	}
	if wordCount > r.Max {
		issues = append(issues, domain.ValidationIssue{
			Code:    IssueLengthOver,
			Message: fmt.Sprintf("Content is too long for %d page(s).", p.Pages),
		})
	}

	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "# ") {
		issues = append(issues, domain.ValidationIssue{
			Code:    IssueStructure,
			Message: "Content must start with an H1 title.",
		})
	}
	for _, name := range requiredSections {
		if !sectionRes[name].MatchString(trimmed) {
			issues = append(issues, domain.ValidationIssue{
				Code:    IssueStructure,
				Message: fmt.Sprintf("Content must include a %q section.", "## "+name),
			})
		}
	}

	if ok, msg, metrics := validateLanguage(content, p); !ok {
		issues = append(issues, domain.ValidationIssue{
			Code:    IssueLanguageMismatch,
			Message: msg,
			Meta: map[string]any{
				"totalLetters":  metrics.TotalLetters,
				"latinLetters":  metrics.LatinLetters,
				"arabicLetters": metrics.ArabicLetters,
				"arabicRatio":   metrics.ArabicRatio,
				"latinRatio":    metrics.LatinRatio,
			},
		})
	}

	switch strings.ToLower(p.Style) {
	case "formal":
		if contractionRe.MatchString(content) {
			issues = append(issues, domain.ValidationIssue{
				Code:    IssueStyle,
				Message: "Formal style must avoid contractions.",
			})
		}
	case "direct and concise", "direct_and_concise":
		if wordCount > r.Target {
			issues = append(issues, domain.ValidationIssue{
				Code:    IssueStyle,
				Message: "Direct and concise style must stay below the target length.",
			})
		}
	}

	return Result{
		OK:     len(issues) == 0,
		Issues: issues,
		Stats:  Stats{WordCount: wordCount, MarkerCount: markerCount, Range: r},
	}
}

var genericFillerPhrases = []string{
	"2x faster",
	"dropped by **30%**",
	"dr. emily chen",
	"global research institute",
	"annual report on",
	"the implications of these findings are profound",
}

// IsLikelyGeneric flags content that reads like template filler: known stock
// phrases, long runs of a repeated token, or very low lexical diversity.
func IsLikelyGeneric(content string) bool {
	text := strings.TrimSpace(content)
	if text == "" {
		return true
	}
	hay := strings.ToLower(text)
	for _, phrase := range genericFillerPhrases {
		if strings.Contains(hay, phrase) {
			return true
		}
	}
	if hasRepeatedTokenRun(hay, 4, 4) {
		return true
	}
	wordCount := CountWords(text)
	if wordCount > 200 {
		unique := make(map[string]struct{})
		var sb strings.Builder
		for _, r := range hay {
			if (r >= 'a' && r <= 'z') || r == ' ' || r == '\n' || r == '\t' {
				sb.WriteRune(r)
			} else {
				sb.WriteRune(' ')
			}
		}
		for _, w := range strings.Fields(sb.String()) {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(max(1, wordCount)) < 0.28 {
			return true
		}
	}
	return false
}

// hasRepeatedTokenRun reports whether some token of at least minLen
// characters appears minRun or more times consecutively.
func hasRepeatedTokenRun(text string, minLen, minRun int) bool {
	fields := strings.Fields(text)
	run := 1
	for i := 1; i < len(fields); i++ {
		if fields[i] == fields[i-1] && len(fields[i]) >= minLen && isWordToken(fields[i]) {
			run++
			if run >= minRun {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func isWordToken(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return s != ""
}
