package text

import (
	"fmt"
	"strings"

	"writeflow/internal/domain"
	"writeflow/internal/quality"
)

// MarkerFormat is the exact image marker shape providers are instructed to
// emit. The image pipeline parses this format back out of the content.
const MarkerFormat = `[IMAGE: SECTION_TITLE="<Exact Section Title>" || KEYWORDS="<3 simple visual nouns, comma-separated>" || DESCRIPTION="<Short description>"]`

func imageInstruction(p domain.Payload) string {
	if !p.IncludeImages {
		return "Do NOT include any image markers."
	}
	return fmt.Sprintf("You MUST include exactly %d image markers. Place them after relevant section headings.\nFormat exactly: %s", p.ImageCount, MarkerFormat)
}

func languageInstruction(p domain.Payload) string {
	if p.Language != "" && p.Language != "English" && p.Language != "EnglishUK" {
		return fmt.Sprintf("Write all explanatory text in %s. Keep Markdown headings (H1/H2/H3) and any image markers exactly in English. Do NOT write English sentences in the body paragraphs.", p.Language)
	}
	if p.EnglishVariant == "UK" || p.Language == "EnglishUK" {
		return "Write in English using British spelling and punctuation."
	}
	return "Write in English."
}

func referenceInstruction(p domain.Payload) string {
	if !p.References {
		return "REFERENCES: Do NOT include a References section unless explicitly requested."
	}
	style := p.CitationStyle
	if style == "" {
		style = "APA"
	}
	return fmt.Sprintf("REFERENCES: Include a final H2 section %q in %s style. Use 3-6 real, widely known sources. Do not invent DOIs or page numbers.", "References", style)
}

// BuildPrompt assembles the full generation prompt shared by the chat-style
// providers.
func BuildPrompt(p domain.Payload) string {
	r := quality.TargetWordRange(p.Pages, p.Level, p.Style)
	concise := p.IsConcise()

	styleRules := strings.Join([]string{
		"Maintain an academically rigorous tone matching the selected style.",
		"Do not invent named sources, DOIs, or page numbers.",
		"Avoid generic filler and repetition; keep arguments grounded and specific.",
	}, "\n")
	if concise {
		styleRules = strings.Join([]string{
			"Use short sentences and short paragraphs (2-4 lines).",
			"Avoid fluff, cliches, and generic filler.",
			"Prefer concrete claims and clear structure over rhetorical phrasing.",
			"Use bullet points where helpful; keep headings informative.",
			"Avoid repeating the same phrases across sections.",
			"No long quotes, no invented interviews, no fake statistics.",
		}, "\n")
	}

	structureRules := strings.Join([]string{
		"Follow standard assignment structure:",
		`- Include H2 headings: "Abstract", "Introduction", "Main Body", and "Conclusion".`,
		"- Abstract: 4-6 sentences summarizing purpose + key points + conclusion (no quotes).",
		"- Introduction: background + why it matters + clear outline of what follows.",
		"- Main Body: 3-6 sections or paragraphs, one main idea per paragraph.",
		"- Conclusion: summarize findings only; do not add new information.",
		"- Suggested balance: Introduction ~10-15%, Main Body ~70-80%, Conclusion ~10-15% of total words.",
		"- Paragraphing: keep paragraphs short (2-5 sentences). Split large paragraphs into smaller ones.",
		"- Readability: include at least 2 bullet lists in the Main Body (e.g., steps, pros/cons, key points).",
		`- Emphasis: include 1 short blockquote (>) labeled "Key takeaway" somewhere in the Main Body.`,
		"",
		"Write body paragraphs using a PEEL-style flow (do NOT label PEEL):",
		"- Point (topic sentence), Evidence (example or credible source claim), Explanation (why it supports the point), Link (transition to next idea).",
		"Use connecting words (e.g., however, therefore, consequently, in contrast) to keep a smooth flow.",
		"Avoid repetition: do not reuse the same key-terms list or the same example across sections.",
		"",
		"If references are requested, include a final H2 \"References\" section formatted in the requested citation style and use only well-known, verifiable sources.",
	}, "\n")

	lines := []string{
		"ROLE: Expert academic writer.",
		fmt.Sprintf("TASK: Write a %s assignment on %q for the subject %q.", p.Length, p.Topic, p.Subject),
		fmt.Sprintf("AUDIENCE: %s.", p.Level),
		fmt.Sprintf("STYLE: %s.", p.Style),
		fmt.Sprintf("LENGTH CONTROL: Target %d words; must be between %d and %d words.", r.Target, r.Min, r.Max),
		fmt.Sprintf("PAGES: Exactly %d page(s) in typical academic formatting; do not exceed/underflow the word range.", p.Pages),
		"IMAGES: " + imageInstruction(p),
		"LANGUAGE: " + languageInstruction(p),
		referenceInstruction(p),
	}
	if p.Instructions != "" {
		lines = append(lines, "USER INSTRUCTIONS: "+p.Instructions)
	}
	lines = append(lines,
		fmt.Sprintf("VARIATION SEED: %d", p.Seed),
		"",
		"FORMAT REQUIREMENTS:",
		"- Output in Markdown.",
		"- Start with a single H1 title (# ...).",
		"- Use H2 for major sections and H3 for subsections.",
		"- Use Markdown lists when presenting multiple items (bullets or numbered lists).",
		"- Use Markdown blockquotes (>) sparingly for brief emphasis (e.g., Key takeaway).",
		"- No preamble and no meta commentary about tone/structure.",
		"",
		"STRUCTURE & WRITING GUIDELINES:",
		structureRules,
		"",
		"QUALITY BAR:",
		"- Must be specific to the topic and subject area.",
		"- Include clear definitions, mechanisms, and at least one applied example.",
		"- Ensure internal consistency and avoid placeholders.",
		"",
		"STYLE RULES:",
		styleRules,
	)
	return strings.Join(lines, "\n")
}
