package domain

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	MaxPages      = 20
	MaxImageCount = 5
	MaxUploads    = 5
	MaxSeed       = 1_000_000_000
)

var allowedLengths = map[string]struct{}{
	"Short": {}, "Medium": {}, "Detailed": {},
}

var allowedStyles = map[string]struct{}{
	"Formal": {}, "Academic": {}, "Simple": {}, "Creative": {}, "Direct and concise": {},
}

var allowedLevels = map[string]struct{}{
	"School": {}, "College": {}, "University": {}, "Masters": {}, "PhD": {},
}

var allowedCitationStyles = map[string]struct{}{
	"APA": {}, "MLA": {}, "Chicago": {}, "Harvard": {},
}

var allowedUrgency = map[string]struct{}{
	"Normal": {}, "Urgent": {},
}

var allowedLanguages = map[string]struct{}{
	"English": {}, "EnglishUK": {}, "Urdu": {}, "Spanish": {}, "French": {},
}

// RawPayload is the request body as submitted by a client, before any
// canonicalization. Fields mirror the public generation form.
type RawPayload struct {
	Topic         string   `json:"topic"`
	Subject       string   `json:"subject"`
	Level         string   `json:"level"`
	Length        string   `json:"length"`
	Style         string   `json:"style"`
	IncludeImages bool     `json:"includeImages"`
	ImageCount    int      `json:"imageCount"`
	Pages         int      `json:"pages"`
	References    bool     `json:"references"`
	CitationStyle string   `json:"citationStyle"`
	Language      string   `json:"language"`
	Urgency       string   `json:"urgency"`
	Instructions  string   `json:"instructions"`
	Images        []string `json:"images"`
	Seed          *int64   `json:"seed"`
}

// Payload is the canonical, validated parameter set. It is immutable after
// NormalizePayload: the image flag and count are always consistent, pages
// and counts are clamped, and the language is one of the supported names.
type Payload struct {
	Topic          string   `json:"topic"`
	Subject        string   `json:"subject"`
	Level          string   `json:"level"`
	Length         string   `json:"length"`
	Style          string   `json:"style"`
	IncludeImages  bool     `json:"includeImages"`
	ImageCount     int      `json:"imageCount"`
	Pages          int      `json:"pages"`
	References     bool     `json:"references"`
	CitationStyle  string   `json:"citationStyle"`
	Language       string   `json:"language"`
	EnglishVariant string   `json:"englishVariant"`
	Urgency        string   `json:"urgency"`
	Instructions   string   `json:"instructions"`
	Images         []string `json:"images"`
	Seed           int64    `json:"seed,omitempty"`
}

var supportedTags = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.Urdu,
	language.Spanish,
	language.French,
}

var supportedTagNames = []string{"English", "EnglishUK", "Urdu", "Spanish", "French"}

var languageMatcher = language.NewMatcher(supportedTags)

var languageAliases = map[string]string{
	"english (uk)":       "EnglishUK",
	"english_uk":         "EnglishUK",
	"en-gb":              "EnglishUK",
	"en_gb":              "EnglishUK",
	"english (us)":       "English",
	"english_us":         "English",
	"en-us":              "English",
	"en_us":              "English",
	"urdu":               "Urdu",
	"اردو":               "Urdu",
	"ur":                 "Urdu",
	"ur-pk":              "Urdu",
	"ur_pk":              "Urdu",
	"spanish":            "Spanish",
	"es":                 "Spanish",
	"es-es":              "Spanish",
	"es_es":              "Spanish",
	"french":             "French",
	"fr":                 "French",
	"fr-fr":              "French",
	"fr_fr":              "French",
	"english":            "English",
}

func normalizeLanguage(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "English"
	}
	if _, ok := allowedLanguages[name]; ok {
		return name
	}
	if alias, ok := languageAliases[strings.ToLower(name)]; ok && alias != "" {
		return alias
	}
	if tag, err := language.Parse(name); err == nil {
		if _, i, conf := languageMatcher.Match(tag); conf >= language.High {
			return supportedTagNames[i]
		}
	}
	return name
}

func normalizeStyle(raw string) string {
	style := strings.TrimSpace(raw)
	switch strings.ToLower(style) {
	case "direct and concise", "direct_and_concise", "concise":
		return "Direct and concise"
	}
	return style
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizePayload validates and canonicalizes a raw request. It returns the
// canonical payload and a list of human-readable validation errors; the
// payload is only meaningful when the list is empty.
func NormalizePayload(raw RawPayload) (Payload, []string) {
	topic := strings.TrimSpace(raw.Topic)
	subject := strings.TrimSpace(raw.Subject)
	level := strings.TrimSpace(raw.Level)
	length := strings.TrimSpace(raw.Length)
	style := normalizeStyle(raw.Style)
	includeImages := raw.IncludeImages

	imageCount := 0
	if includeImages {
		imageCount = raw.ImageCount
		if imageCount == 0 {
			imageCount = 1
		}
		imageCount = clampInt(imageCount, 0, MaxImageCount)
	}

	pages := raw.Pages
	if pages == 0 {
		pages = 1
	}
	pages = clampInt(pages, 1, MaxPages)

	citationStyle := strings.TrimSpace(raw.CitationStyle)
	if citationStyle == "" {
		citationStyle = "APA"
	}

	lang := normalizeLanguage(raw.Language)
	variant := "US"
	if lang == "EnglishUK" {
		variant = "UK"
	}

	urgency := strings.TrimSpace(raw.Urgency)
	if urgency == "" {
		urgency = "Normal"
	}

	instructions := strings.TrimSpace(raw.Instructions)

	images := make([]string, 0, len(raw.Images))
	for _, img := range raw.Images {
		if img == "" {
			continue
		}
		images = append(images, img)
		if len(images) == MaxUploads {
			break
		}
	}

	var seed int64
	if raw.Seed != nil {
		seed = *raw.Seed
		if seed < 1 {
			seed = 1
		}
		if seed > MaxSeed {
			seed = MaxSeed
		}
	}

	var errs []string
	if topic == "" {
		errs = append(errs, "Topic is required.")
	}
	if subject == "" {
		errs = append(errs, "Subject is required.")
	}
	if _, ok := allowedLevels[level]; !ok {
		errs = append(errs, "Invalid academic level.")
	}
	if _, ok := allowedLengths[length]; !ok {
		errs = append(errs, "Invalid assignment length.")
	}
	if _, ok := allowedStyles[style]; !ok {
		errs = append(errs, "Invalid writing style.")
	}
	if _, ok := allowedUrgency[urgency]; !ok {
		errs = append(errs, "Invalid urgency.")
	}
	if raw.References {
		if _, ok := allowedCitationStyles[citationStyle]; !ok {
			errs = append(errs, "Invalid citation style.")
		}
	}
	if includeImages && imageCount <= 0 {
		errs = append(errs, "Image count must be at least 1 when images are enabled.")
	}
	if !includeImages && raw.ImageCount != 0 {
		errs = append(errs, "Image count must be 0 when images are disabled.")
	}
	if _, ok := allowedLanguages[lang]; !ok {
		errs = append(errs, "Invalid language.")
	}
	if len(topic) > 180 {
		errs = append(errs, "Topic is too long (max 180 characters).")
	}
	if len(subject) > 80 {
		errs = append(errs, "Subject is too long (max 80 characters).")
	}
	if len(instructions) > 4000 {
		errs = append(errs, "Instructions are too long (max 4000 characters).")
	}

	if len(errs) > 0 {
		return Payload{}, errs
	}

	return Payload{
		Topic:          topic,
		Subject:        subject,
		Level:          level,
		Length:         length,
		Style:          style,
		IncludeImages:  includeImages,
		ImageCount:     imageCount,
		Pages:          pages,
		References:     raw.References,
		CitationStyle:  citationStyle,
		Language:       lang,
		EnglishVariant: variant,
		Urgency:        urgency,
		Instructions:   instructions,
		Images:         images,
		Seed:           seed,
	}, nil
}

// IsConcise reports whether the payload asks for the compressed writing style.
func (p Payload) IsConcise() bool {
	s := strings.ToLower(p.Style)
	return s == "direct and concise" || s == "direct_and_concise" || s == "concise"
}
