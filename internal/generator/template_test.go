package generator

import (
	"fmt"
	"strings"
	"testing"

	"writeflow/internal/quality"
)

// TestTemplateValidatesAcrossRequestGrid sweeps the level, style, and page
// axes: the deterministic template is the last line of defense, so its
// finalized output must validate for every combination a request can carry.
func TestTemplateValidatesAcrossRequestGrid(t *testing.T) {
	g := newTestGenerator()
	levels := []string{"School", "College", "University", "Masters", "PhD"}
	styles := []string{"Academic", "Formal", "Simple", "Creative", "Direct and concise"}
	pages := []int{1, 4, 8, 13, 19, 20}

	for _, level := range levels {
		for _, style := range styles {
			for _, pg := range pages {
				p := englishPayload()
				p.Level = level
				p.Style = style
				p.Pages = pg
				name := fmt.Sprintf("%s_%s_p%d", level, strings.ReplaceAll(style, " ", "_"), pg)
				t.Run(name, func(t *testing.T) {
					res := g.Finalize(BuildTemplateText(p), p)
					if !res.Validation.OK {
						t.Fatalf("template output failed validation: %+v", res.Validation.Issues)
					}
					r := quality.TargetWordRange(p.Pages, p.Level, p.Style)
					ceiling := r.Max
					if p.IsConcise() {
						ceiling = r.Target
					}
					if wc := res.Validation.Stats.WordCount; wc < r.Min || wc > ceiling {
						t.Fatalf("word count %d outside [%d, %d]", wc, r.Min, ceiling)
					}
				})
			}
		}
	}
}

func TestTemplateConciseMastersWithinTarget(t *testing.T) {
	g := newTestGenerator()
	p := englishPayload()
	p.Topic = "Machine Learning in Medicine"
	p.Subject = "Medicine"
	p.Level = "Masters"
	p.Style = "Direct and concise"

	res := g.Finalize(BuildTemplateText(p), p)
	if !res.Validation.OK {
		t.Fatalf("validation issues: %+v", res.Validation.Issues)
	}
	r := quality.TargetWordRange(p.Pages, p.Level, p.Style)
	if wc := res.Validation.Stats.WordCount; wc > r.Target {
		t.Fatalf("word count %d above concise target %d", wc, r.Target)
	}
}

func TestTemplateUrduConciseKeepsStructure(t *testing.T) {
	g := newTestGenerator()
	p := englishPayload()
	p.Topic = "Python Basics"
	p.Language = "Urdu"
	p.Style = "Direct and concise"
	p.References = true

	res := g.Finalize(BuildTemplateText(p), p)
	if !res.Validation.OK {
		t.Fatalf("validation issues: %+v", res.Validation.Issues)
	}

	out := res.Content
	abstractIdx := strings.Index(out, "## Abstract")
	introIdx := strings.Index(out, "## Introduction")
	if abstractIdx < 0 || introIdx < 0 {
		t.Fatalf("core sections missing:\n%s", out)
	}
	if body := strings.TrimSpace(out[abstractIdx+len("## Abstract") : introIdx]); body == "" {
		t.Fatal("abstract section has no body")
	}
	refIdx := strings.Index(out, "## References")
	if refIdx < 0 {
		t.Fatal("references section missing")
	}
	tail := out[refIdx:]
	for _, filler := range []string{"### Example", "### Key Terms", "### Common Pitfalls"} {
		if strings.Contains(tail, filler) {
			t.Fatalf("filler %q after the references section:\n%s", filler, tail)
		}
	}
}

func TestTemplateKeepsRequestedMarkers(t *testing.T) {
	g := newTestGenerator()
	p := englishPayload()
	p.Pages = 2
	p.IncludeImages = true
	p.ImageCount = 3

	res := g.Finalize(BuildTemplateText(p), p)
	if !res.Validation.OK {
		t.Fatalf("validation issues: %+v", res.Validation.Issues)
	}
	if got := res.Validation.Stats.MarkerCount; got != 3 {
		t.Fatalf("marker count = %d, want 3", got)
	}
}

func TestTemplateSectionCountGrowsWithPages(t *testing.T) {
	p := englishPayload()
	p.Pages = 1
	small := strings.Count(BuildTemplateText(p), "\n### ")
	p.Pages = 13
	large := strings.Count(BuildTemplateText(p), "\n### ")
	if large <= small {
		t.Fatalf("section count did not grow with pages: %d then %d", small, large)
	}
}
