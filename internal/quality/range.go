package quality

import (
	"math"
	"strings"
)

// WordRange is the acceptable word-count window for a request.
type WordRange struct {
	Target       int `json:"target"`
	Min          int `json:"min"`
	Max          int `json:"max"`
	WordsPerPage int `json:"wordsPerPage"`
}

var wordsPerPageByLevel = map[string]int{
	"School":     220,
	"College":    250,
	"University": 280,
	"Masters":    300,
	"PhD":        320,
}

func wordsPerPage(level, style string) int {
	base := wordsPerPageByLevel[level]
	if base == 0 {
		base = 280
	}
	switch strings.ToLower(style) {
	case "direct and concise", "direct_and_concise", "concise":
		return max(180, int(math.Round(float64(base)*0.78)))
	case "simple":
		return max(200, int(math.Round(float64(base)*0.9)))
	case "creative":
		return int(math.Round(float64(base) * 1.05))
	}
	return base
}

// TargetWordRange computes the target word count and its tolerance window.
// The target grows linearly with pages; the minimum never drops below 150.
func TargetWordRange(pages int, level, style string) WordRange {
	p := pages
	if p < 1 {
		p = 1
	}
	if p > 20 {
		p = 20
	}
	wpp := wordsPerPage(level, style)
	target := p * wpp
	return WordRange{
		Target:       target,
		Min:          max(150, int(math.Round(float64(target)*0.95))),
		Max:          int(math.Round(float64(target) * 1.05)),
		WordsPerPage: wpp,
	}
}
