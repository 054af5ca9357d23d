package quality

import (
	"fmt"
	"regexp"
	"strings"

	"writeflow/internal/domain"
)

var (
	listLineRe   = regexp.MustCompile(`(?m)^\s*([-*+]\s+|\d+\.\s+)`)
	quoteLineRe  = regexp.MustCompile(`(?m)^\s*>`)
	mainBodyRe   = regexp.MustCompile(`(?i)^##\s+main body\b`)
	compactWords = 90
)

func countListLines(text string) int {
	return len(listLineRe.FindAllString(text, -1))
}

func countBlockquoteLines(text string) int {
	return len(quoteLineRe.FindAllString(text, -1))
}

// ensureReadabilityElements guarantees at least two list lines and one
// blockquote, inserting a synthesized Key Points block (and checklist when
// there is room) right after the Main Body heading.
func ensureReadabilityElements(content string, p domain.Payload, availableWords int) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return text
	}
	needLists := countListLines(text) < 2
	needQuote := countBlockquoteLines(text) < 1
	if !needLists && !needQuote {
		return text
	}

	topic := strings.TrimSpace(p.Topic)
	if topic == "" {
		topic = "the topic"
	}
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		subject = "the subject"
	}
	urdu := p.Language == "Urdu"
	compact := availableWords < compactWords

	block := []string{""}
	if needLists {
		block = append(block, "### Key Points")
		if urdu {
			block = append(block,
				fmt.Sprintf("- **%s** کی تعریف **%s** کے تناظر میں کریں۔", topic, subject),
				"- بنیادی طریقۂ کار اور خطرات کے مقامات واضح کریں۔",
				"- کم از کم ایک ٹھوس مثال شامل کریں۔",
				"- عملی حل اور ان کے فوائد/نقصانات بیان کریں۔")
		} else {
			block = append(block,
				fmt.Sprintf("- Define **%s** in the context of **%s**.", topic, subject),
				"- Explain key mechanisms and where risks arise.",
				"- Give at least one concrete example.",
				"- Summarize practical mitigations and trade-offs.")
		}
		block = append(block, "")
		if !compact {
			block = append(block, "### Practical Checklist")
			if urdu {
				block = append(block,
					"- تعریفیں واضح رکھیں اور اصطلاحات ایک ہی معنی میں استعمال کریں۔",
					"- دعووں کی حمایت کے لیے مثال یا قابلِ بھروسہ دلیل دیں۔",
					"- ہر پیراگراف کو ربطی الفاظ کے ذریعے اگلے خیال سے جوڑیں۔",
					"- نتیجے میں نئی بات شامل نہ کریں؛ صرف خلاصہ دیں۔")
			} else {
				block = append(block,
					"- Use clear definitions and keep terms consistent.",
					"- Support claims with a concrete example or credible source claim.",
					"- Connect each paragraph to the argument using transitions.",
					"- Summarize only what was argued; do not introduce new ideas in the conclusion.")
			}
			block = append(block, "")
		}
	}
	if needQuote {
		if urdu {
			block = append(block, fmt.Sprintf("> Key takeaway: **%s** پر مضبوط تحریر مخصوص، دلیل/مثال پر مبنی، اور سمجھنے میں آسان ہوتی ہے۔", topic))
		} else {
			block = append(block, fmt.Sprintf("> Key takeaway: Strong work on **%s** stays specific, uses evidence or examples, and keeps the reasoning easy to follow.", topic))
		}
		block = append(block, "")
	}

	lines := strings.Split(text, "\n")
	mainIndex := -1
	for i, l := range lines {
		if mainBodyRe.MatchString(strings.TrimSpace(l)) {
			mainIndex = i
			break
		}
	}
	if mainIndex < 0 {
		return text
	}

	before := strings.Join(lines[:mainIndex+1], "\n")
	after := strings.TrimLeft(strings.Join(lines[mainIndex+1:], "\n"), "\n \t")
	return collapseBlankRuns(before + strings.Join(block, "\n") + "\n" + after)
}
