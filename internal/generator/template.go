package generator

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"writeflow/internal/domain"
	"writeflow/internal/quality"
)

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

func safeKeyword(s string) string {
	return nonAlnumRe.ReplaceAllString(s, "")
}

func pythonSectionSentences(title string) []string {
	switch title {
	case "Definition and Purpose":
		return []string{
			"Python is a programming language used to write instructions that a computer can execute.",
			"It is interpreted, meaning code runs through an interpreter rather than being compiled ahead of time.",
			"Python is used by beginners and professionals because it balances simplicity with real-world capability.",
			"Key terms: **interpreter**, **script**, **syntax**.",
		}
	case "Why Python Is Popular":
		return []string{
			"Python emphasizes readability through clean syntax and indentation, which reduces complexity for learners.",
			"It has a large standard library and an ecosystem of third-party packages for many tasks.",
			"Python works across operating systems and has strong community support and documentation.",
			"Key terms: **readability**, **standard library**, **package**.",
		}
	case "Core Building Blocks (Syntax)":
		return []string{
			"A Python program is written as statements like assignments, function calls, and expressions.",
			"Indentation defines blocks of code, such as the body of a loop or an if-statement.",
			"For example, calling `print('Hello')` outputs text, and assigning `name = 'Amina'` stores a string value in a variable.",
			"Readable naming and consistent formatting improve debugging and collaboration.",
		}
	case "Data Types and Data Structures":
		return []string{
			"Python includes data types like integers, floats, strings, and booleans for common values.",
			"Core data structures include lists, tuples, dictionaries, and sets.",
			"Choosing the right structure improves clarity and performance (for example, dictionaries for fast lookups).",
			"Key terms: **list**, **dictionary**, **set**.",
		}
	case "Control Flow and Functions":
		return []string{
			"Control flow uses if/elif/else for decisions and for/while loops for repetition.",
			"Functions organize logic into reusable units with parameters and return values.",
			"For example, a function like `is_even(n)` can return True when `n % 2 == 0`, which keeps logic reusable and easier to test.",
			"Modules and imports allow splitting a program into files and reusing code across projects.",
		}
	case "Libraries, Use Cases, and Best Practices":
		return []string{
			"Python is used for automation, web development, data analysis, testing, and education.",
			"Tools like pip install packages, and virtual environments help keep dependencies clean.",
			"Best practices include handling errors, writing readable code, and testing important logic.",
			"Key terms: **pip**, **virtual environment**, **exception**.",
		}
	}
	return nil
}

func mlSectionSentences(title, subject string) []string {
	switch title {
	case "Definition and Goal":
		return []string{
			fmt.Sprintf("Machine learning is a method in %s where systems learn patterns from data.", subject),
			"The goal is to make predictions or decisions that generalize to new inputs.",
			"Instead of fixed rules, models improve by learning from many examples.",
		}
	case "How Learning from Data Works":
		return []string{
			"Training adjusts the parameters of a model to reduce error on examples.",
			"Evaluation checks performance on data the model has not seen before.",
			"Good results depend on data quality, clear targets, and careful testing.",
		}
	case "Types of Machine Learning":
		return []string{
			"Supervised learning uses labeled examples, like classifying emails as spam or not spam.",
			"Unsupervised learning finds structure without labels, like clustering similar items.",
			"Reinforcement learning learns by trial and error using rewards.",
		}
	case "Applications":
		return []string{
			"Machine learning is used for recommendations, speech recognition, medical support tools, and fraud detection.",
			"It helps automate decisions when clear rules are hard to define.",
			"In education, it can support personalized learning tools when used responsibly.",
		}
	case "Limitations and Risks":
		return []string{
			"Models can inherit bias from training data and produce unfair outcomes.",
			"Overfitting can cause strong training results but poor real-world performance.",
			"Systems must be monitored because the world changes and data patterns drift.",
		}
	}
	return nil
}

func genericSectionSentences(title, topic, subject string) []string {
	switch title {
	case "Definition":
		return []string{
			fmt.Sprintf("%s refers to a key idea within %s that supports understanding and problem solving.", topic, subject),
			"A clear definition helps separate the concept from similar terms and common misunderstandings.",
			fmt.Sprintf("In practice, %s is best understood through examples.", topic),
		}
	case "Background":
		return []string{
			fmt.Sprintf("The background of %s explains where the concept comes from and why it matters today.", topic),
			fmt.Sprintf("It connects earlier ideas in %s to current tools and workflows.", subject),
			"Understanding context helps explain how and why the concept is used.",
		}
	case "Core Concepts":
		return []string{
			fmt.Sprintf("Core concepts of %s include key terms, how the parts fit together, and what assumptions are made.", topic),
			fmt.Sprintf("These concepts guide how %s is applied and evaluated.", topic),
			"Clear terminology reduces confusion when solving problems or writing about the topic.",
		}
	case "Applications":
		return []string{
			fmt.Sprintf("%s is applied in %s to solve real problems more consistently and efficiently.", topic, subject),
			"Examples show how the concept works under realistic constraints.",
			"Practical applications also reveal limits and trade-offs.",
		}
	case "Challenges and Limitations":
		return []string{
			fmt.Sprintf("Every approach has limitations, and %s is no exception.", topic),
			"Common issues include misuse, misunderstanding, or applying the idea in the wrong context.",
			"A strong assignment explains these limits and ways to reduce risk.",
		}
	}
	return nil
}

func urduSectionSentences(title, topic, subject, level string) []string {
	switch title {
	case "Definition":
		return []string{
			fmt.Sprintf("%s کی تعریف %s کے تناظر میں واضح کرنا ضروری ہے۔", topic, subject),
			"واضح تعریف موضوع کو ملتے جلتے تصورات سے الگ کرتی ہے اور غلط فہمی کم کرتی ہے۔",
			"عملی مثال سے یہ سمجھنا آسان ہوتا ہے کہ یہ تصور حقیقی حالات میں کیسے کام کرتا ہے۔",
			"اسی بنیاد پر اگلے حصوں میں تفصیلی بحث کی جا سکتی ہے۔",
		}
	case "Background":
		return []string{
			fmt.Sprintf("پس منظر یہ بتاتا ہے کہ %s کہاں سے آیا اور وقت کے ساتھ کیوں اہم بنا۔", topic),
			fmt.Sprintf("یہ %s کی بنیادیات کو موجودہ مسائل سے جوڑتا ہے۔", subject),
			"سیاق و سباق سمجھنے سے درست اطلاق اور حدود واضح ہوتی ہیں۔",
			"اس کے بعد بنیادی تصورات کو ترتیب سے بیان کیا جا سکتا ہے۔",
		}
	case "Core Concepts":
		return []string{
			"بنیادی تصورات میں اہم اصطلاحات، مفروضات، اور اجزاء کے باہمی تعلقات شامل ہوتے ہیں۔",
			fmt.Sprintf("یہ تصورات اس بات کی رہنمائی کرتے ہیں کہ %s کو کیسے استعمال اور پرکھا جائے۔", topic),
			"واضح اصطلاحات استدلال مضبوط کرتی ہیں اور ابہام کم کرتی ہیں۔",
			"اگلا حصہ انہی تصورات کو عملی اطلاق کے ساتھ جوڑتا ہے۔",
		}
	case "Applications":
		return []string{
			fmt.Sprintf("%s کو %s میں حقیقی مسائل حل کرنے کے لیے استعمال کیا جاتا ہے۔", topic, subject),
			"مثالیں یہ دکھاتی ہیں کہ یہ تصور حقیقت پسندانہ حدود میں کیسے کام کرتا ہے۔",
			"عملی اطلاق سے فوائد اور نقصانات دونوں نمایاں ہوتے ہیں۔",
			"اسی سے مناسب حکمتِ عملی منتخب کرنے میں مدد ملتی ہے۔",
		}
	case "Challenges and Limitations":
		return []string{
			fmt.Sprintf("ہر طریقے کی کچھ حدود ہوتی ہیں اور %s بھی اس سے مستثنیٰ نہیں۔", topic),
			"عام مسائل میں غلط استعمال، غلط تشریح، یا غلط سیاق میں اطلاق شامل ہے۔",
			"ایک مضبوط جواب ان حدود کی نشاندہی کرتا ہے اور خطرات کم کرنے کے طریقے بتاتا ہے۔",
			"آخر میں خلاصہ انہی نکات کو سمیٹتا ہے۔",
		}
	}
	return []string{
		fmt.Sprintf("یہ حصہ %s کے حوالے سے \"%s\" کی وضاحت کرتا ہے۔", topic, title),
		fmt.Sprintf("یہ تحریر %s میں %s سطح کے قاری کے لیے لکھی گئی ہے۔", subject, level),
		"جہاں مناسب ہو وہاں مثالیں شامل کی گئی ہیں تاکہ تصور واضح ہو۔",
		"اگلا حصہ اسی تسلسل میں بحث کو آگے بڑھاتا ہے۔",
	}
}

func sectionSentences(p domain.Payload, class quality.TopicClass, title string) []string {
	if p.Language == "Urdu" {
		return urduSectionSentences(title, p.Topic, p.Subject, p.Level)
	}
	var picked []string
	switch class {
	case quality.TopicPython:
		picked = pythonSectionSentences(title)
	case quality.TopicMachineLearning:
		picked = mlSectionSentences(title, p.Subject)
	}
	if picked == nil {
		picked = genericSectionSentences(title, p.Topic, p.Subject)
	}
	if picked == nil {
		picked = []string{
			fmt.Sprintf("This section explains %s for %s.", strings.ToLower(title), p.Topic),
			fmt.Sprintf("It is written for a %s audience in %s.", p.Level, p.Subject),
			"Examples are used where helpful to make the ideas clear.",
		}
	}
	return picked
}

func extensionLead(p domain.Payload, title string, part int) string {
	if p.Language == "Urdu" {
		return fmt.Sprintf("حصہ %d میں \"%s\" پر بحث کو مزید تفصیل کے ساتھ آگے بڑھایا گیا ہے۔", part, title)
	}
	return fmt.Sprintf("Part %d extends the discussion of %s with further depth and detail.", part, strings.ToLower(title))
}

// BuildTemplateText deterministically writes a complete assignment for the
// payload. It is the last-resort path when every provider is unavailable, so
// its output must itself pass validation.
func BuildTemplateText(p domain.Payload) string {
	class := quality.ClassifyTopic(p.Topic)
	d := defaultsFor(p)
	concise := p.IsConcise() || strings.EqualFold(p.Style, "Simple")

	titles := sectionTitlesByClass[class]
	baseCount := int(math.Max(3, math.Round(float64(p.Pages)*2)))
	sectionCount := baseCount
	if class == quality.TopicPython {
		sectionCount = max(5, baseCount+1)
	}
	if sectionCount < 1 {
		sectionCount = 1
	}

	var body strings.Builder
	body.WriteString("\n\n## Main Body")
	for i := 0; i < sectionCount; i++ {
		title := titles[i%len(titles)]
		sentences := sectionSentences(p, class, title)
		take := 4
		if concise {
			take = 3
		}
		if take > len(sentences) {
			take = len(sentences)
		}
		section := sentences[:take]
		// Past the title plan the sections cycle; a part number keeps each
		// pass distinct so the body keeps growing with the page count.
		if cycle := i / len(titles); cycle > 0 {
			lead := extensionLead(p, title, cycle+1)
			section = append([]string{lead}, section...)
			title = fmt.Sprintf("%s: Part %d", title, cycle+1)
		}
		body.WriteString("\n\n### " + title + "\n\n" + strings.Join(section, "\n\n"))

		if p.IncludeImages && p.ImageCount > 0 && i < p.ImageCount {
			marker := fmt.Sprintf(
				`[IMAGE: SECTION_TITLE="%s" || KEYWORDS="%s, %s, %s" || DESCRIPTION="A professional educational illustration about %s in %s, specifically for the section '%s'. Create a clear, informative diagram or chart that visually represents key concepts from this section."]`,
				title, safeKeyword(p.Topic), safeKeyword(p.Subject), safeKeyword(title), p.Topic, p.Subject, title)
			body.WriteString("\n\n" + marker)
		}
	}

	var refs string
	if p.References {
		style := p.CitationStyle
		if style == "" {
			style = "APA"
		}
		var items []string
		for _, r := range referencesFor(class) {
			items = append(items, "- "+r)
		}
		refs = fmt.Sprintf("\n\n## References (%s)\n%s", style, strings.Join(items, "\n"))
	}

	var instructions string
	if (p.Language == "English" || p.Language == "EnglishUK") && p.Instructions != "" {
		instructions = "\n\n" + p.Instructions
	}

	return strings.TrimSpace(fmt.Sprintf("# %s\n\n## Abstract\n%s\n\n## Introduction\n%s%s%s\n\n## Conclusion\n%s%s",
		p.Topic, d.Abstract, d.Introduction, instructions, body.String(), d.Conclusion, refs))
}
