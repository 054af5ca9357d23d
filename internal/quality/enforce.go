package quality

import (
	"regexp"
	"strings"
	"unicode"

	"writeflow/internal/domain"
)

const (
	maxParagraphWords    = 90
	targetParagraphWords = 55
	metaScanLines        = 80
	echoScanLines        = 140
	dedupeMinLength      = 120
)

var (
	codeFenceOpenRe  = regexp.MustCompile("```[a-zA-Z0-9_-]*\n")
	userInstrLabelRe = regexp.MustCompile(`(?i)^user instructions\s*:`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)

	structuredLineRe = regexp.MustCompile(`^(#{1,6}\s+|\[IMAGE:|[-*+]\s+|\d+\.\s+|>\s*|\|)`)
	structuredMidRe  = regexp.MustCompile(`\n\s*([-*+]\s+|\d+\.\s+|>\s*|\|)`)
)

// Enforce runs the fixed-order repair pipeline. The transform order is a
// correctness invariant: each step assumes the normalizations performed by
// the steps before it.
func Enforce(content string, p domain.Payload) string {
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	ceiling := r.Max
	if p.IsConcise() {
		// The style validator rejects anything above the target, so the
		// target is the effective ceiling for concise requests.
		ceiling = r.Target
	}
	out := strings.TrimSpace(content)
	out = stripCodeFences(out)
	out = removeMetaStatements(out)
	out = ensureH1Title(out, p.Topic, p.Subject)
	out = removeEchoedInstructions(out, p.Instructions)
	out = normalizeHeadingSpacing(out)
	out = dedupeParagraphs(out)
	out = breakLongParagraphs(out, maxParagraphWords, targetParagraphWords)

	if CountWords(out) > ceiling {
		out = trimToWordCount(out, ceiling)
	}
	if CountWords(out) < r.Min {
		out = padToWordCount(out, r.Min, p)
	}

	available := ceiling - CountWords(out)
	out = ensureReadabilityElements(out, p, available)
	out = normalizeHeadingSpacing(out)

	// Readability insertion can push the text back over the window, and the
	// sentence-level trim can leave it slightly under the floor.
	if CountWords(out) > ceiling {
		out = trimToWordCount(out, ceiling)
	}
	if CountWords(out) < r.Min {
		out = padFinalWords(out, r.Min, p)
	}
	return out
}

func stripCodeFences(content string) string {
	out := codeFenceOpenRe.ReplaceAllString(content, "")
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out)
}

var metaPhrases = []string{
	"the tone is",
	"writing style adopted",
	"this paper aims",
	"depth mode:",
	"urgency mode:",
	"language notice",
	"backup template",
	"special instructions",
	"audience is",
}

func isMetaStatement(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range metaPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return strings.Contains(lower, "suitable for a") && strings.Contains(lower, "audience")
}

// removeMetaStatements drops self-referential sentences (tone notices,
// urgency labels, instruction echoes) found near the top of the content.
func removeMetaStatements(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	removed := false
	for i, line := range lines {
		if i < metaScanLines && isMetaStatement(line) {
			removed = true
			continue
		}
		out = append(out, line)
	}
	if !removed {
		return content
	}
	return collapseBlankRuns(strings.Join(out, "\n"))
}

// ensureH1Title guarantees the content opens with an H1, synthesizing one
// from the topic and subject when the model omitted it.
func ensureH1Title(content, topic, subject string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return trimmed
		}
		title := strings.TrimSpace(topic)
		if title == "" {
			title = "Assignment"
		}
		if s := strings.TrimSpace(subject); s != "" {
			title += " — " + s
		}
		return strings.TrimSpace("# " + title + "\n\n" + trimmed)
	}
	return trimmed
}

func removeEchoedInstructions(content, instructions string) string {
	needle := strings.TrimSpace(instructions)
	if needle == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if i < echoScanLines {
			if strings.EqualFold(t, needle) || userInstrLabelRe.MatchString(t) {
				continue
			}
		}
		out = append(out, line)
	}
	return collapseBlankRuns(strings.Join(out, "\n"))
}

// normalizeHeadingSpacing inserts a blank line after every heading that is
// directly followed by text.
func normalizeHeadingSpacing(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+8)
	for i, line := range lines {
		out = append(out, line)
		if headingLineRe.MatchString(strings.TrimSpace(line)) &&
			i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
			out = append(out, "")
		}
	}
	return collapseBlankRuns(strings.Join(out, "\n"))
}

// dedupeParagraphs removes near-identical long paragraphs, comparing on
// whitespace-normalized, case-insensitive text. Headings are exempt.
func dedupeParagraphs(content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return text
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range splitParagraphs(text) {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		isHeading := headingLineRe.MatchString(trimmed)
		if !isHeading && len(trimmed) >= dedupeMinLength {
			key := strings.ToLower(whitespaceRunRe.ReplaceAllString(trimmed, " "))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n\n"))
}

func isStructuredParagraph(para string) bool {
	return structuredLineRe.MatchString(para) || structuredMidRe.MatchString(para)
}

func hasStructuredLine(para string) bool {
	for _, line := range strings.Split(para, "\n") {
		if structuredLineRe.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// breakLongParagraphs splits paragraphs above maxWords into sentence-bounded
// chunks near targetWords. Structured paragraphs (headings, lists, quotes,
// tables, image markers) pass through untouched.
func breakLongParagraphs(content string, maxWords, targetWords int) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return text
	}
	var out []string
	for _, p := range splitParagraphs(text) {
		para := strings.TrimSpace(p)
		if para == "" {
			continue
		}
		if !hasStructuredLine(para) && strings.Contains(para, "\n") {
			para = strings.TrimSpace(whitespaceRunRe.ReplaceAllString(para, " "))
		}
		if isStructuredParagraph(para) || CountWords(para) <= maxWords {
			out = append(out, para)
			continue
		}
		var sentences []string
		for _, s := range splitSentences(para) {
			sentences = append(sentences, splitLongSentence(s, targetWords)...)
		}
		if len(sentences) <= 1 {
			out = append(out, para)
			continue
		}
		buf := ""
		for _, s := range sentences {
			candidate := s
			if buf != "" {
				candidate = buf + " " + s
			}
			if buf == "" || CountWords(candidate) <= targetWords {
				buf = candidate
			} else {
				out = append(out, strings.TrimSpace(buf))
				buf = s
			}
		}
		if buf != "" {
			out = append(out, strings.TrimSpace(buf))
		}
	}
	return collapseBlankRuns(strings.Join(out, "\n\n"))
}

func isSentenceStart(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case isArabicScript(r):
		return true
	}
	return r == '(' || r == '"' || r == '“' || r == '\''
}

// splitSentences breaks text on terminal punctuation followed by whitespace
// and a plausible sentence opener. The Urdu full stop and question mark count
// as terminals.
func splitSentences(text string) []string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	runes := []rune(t)
	var parts []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' && r != '۔' && r != '؟' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !isSentenceStart(runes[j]) {
			continue
		}
		if part := strings.TrimSpace(string(runes[start : i+1])); part != "" {
			parts = append(parts, part)
		}
		start = j
		i = j - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		parts = append(parts, tail)
	}
	if len(parts) == 0 {
		return []string{t}
	}
	return parts
}

// splitLongSentence breaks an over-long sentence on "; " then ", "
// separators, keeping each chunk near targetWords.
func splitLongSentence(sentence string, targetWords int) []string {
	s := strings.TrimSpace(sentence)
	if s == "" {
		return nil
	}
	if CountWords(s) <= targetWords {
		return []string{s}
	}
	for _, sep := range []string{"; ", ", "} {
		if !strings.Contains(s, sep) {
			continue
		}
		var out []string
		buf := ""
		for _, part := range strings.Split(s, sep) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			candidate := part
			if buf != "" {
				candidate = buf + sep + part
			}
			if buf == "" || CountWords(candidate) <= targetWords {
				buf = candidate
			} else {
				out = append(out, buf)
				buf = part
			}
		}
		if buf != "" {
			out = append(out, buf)
		}
		if len(out) > 1 {
			return out
		}
	}
	return []string{s}
}

var coreHeadingRe = regexp.MustCompile(`(?i)^##\s+(abstract|introduction|conclusion|references)\b`)

type trimKind int

const (
	trimProtected trimKind = iota
	trimHeading
	trimCoreBody
	trimExpendable
)

// classifyForTrim marks which paragraphs trimToWordCount may touch. The H1
// title, image markers, and core-section headings are untouchable; the first
// paragraph after a core heading is kept down to one sentence; everything
// else is expendable.
func classifyForTrim(paras []string) []trimKind {
	kinds := make([]trimKind, len(paras))
	nextIsCoreBody := false
	for i, para := range paras {
		t := strings.TrimSpace(para)
		switch {
		case i == 0 || strings.HasPrefix(t, "# "):
			kinds[i] = trimProtected
			nextIsCoreBody = false
		case strings.HasPrefix(t, "[IMAGE:"):
			kinds[i] = trimProtected
		case coreHeadingRe.MatchString(t):
			kinds[i] = trimProtected
			nextIsCoreBody = true
		case headingLineRe.MatchString(t) && !strings.Contains(t, "\n"):
			kinds[i] = trimHeading
			nextIsCoreBody = false
		default:
			if nextIsCoreBody {
				kinds[i] = trimCoreBody
				nextIsCoreBody = false
			} else {
				kinds[i] = trimExpendable
			}
		}
	}
	return kinds
}

// shrinkParagraph sheds words from the end of a paragraph, line by line for
// structured paragraphs and sentence by sentence for prose, until the excess
// is covered or only floor units remain. It returns the shrunk paragraph and
// the number of words shed.
func shrinkParagraph(para string, excess, floor int) (string, int) {
	t := strings.TrimSpace(para)
	var units []string
	sep := " "
	if hasStructuredLine(t) {
		units = strings.Split(t, "\n")
		sep = "\n"
	} else {
		units = splitSentences(t)
	}
	shed := 0
	for len(units) > floor && shed < excess {
		shed += CountWords(units[len(units)-1])
		units = units[:len(units)-1]
	}
	return strings.TrimSpace(strings.Join(units, sep)), shed
}

func headingLevel(para string) int {
	line := para
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}

// trimToWordCount shortens the document to at most maxWords, working from the
// end. Expendable body paragraphs are cut first, then core-section bodies are
// reduced to a single sentence each. The title, image markers, and the
// Abstract, Introduction, Conclusion, and References headings always survive.
func trimToWordCount(content string, maxWords int) string {
	text := strings.TrimSpace(content)
	if text == "" || CountWords(text) <= maxWords {
		return text
	}

	paras := splitParagraphs(text)
	kinds := classifyForTrim(paras)
	total := CountWords(text)

	for i := len(paras) - 1; i >= 1 && total > maxWords; i-- {
		if kinds[i] != trimExpendable {
			continue
		}
		shrunk, shed := shrinkParagraph(paras[i], total-maxWords, 0)
		paras[i] = shrunk
		total -= shed
	}
	for i := len(paras) - 1; i >= 1 && total > maxWords; i-- {
		if kinds[i] != trimCoreBody {
			continue
		}
		shrunk, shed := shrinkParagraph(paras[i], total-maxWords, 1)
		paras[i] = shrunk
		total -= shed
	}

	var kept []string
	for _, para := range paras {
		if strings.TrimSpace(para) != "" {
			kept = append(kept, para)
		}
	}
	// Drop section headings whose entire body was cut.
	for i := len(kept) - 1; i >= 0; i-- {
		t := strings.TrimSpace(kept[i])
		lvl := headingLevel(t)
		if lvl < 2 || strings.Contains(t, "\n") || coreHeadingRe.MatchString(t) {
			continue
		}
		if i+1 < len(kept) {
			if nl := headingLevel(strings.TrimSpace(kept[i+1])); nl == 0 || nl > lvl {
				continue
			}
		}
		kept = append(kept[:i], kept[i+1:]...)
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}
