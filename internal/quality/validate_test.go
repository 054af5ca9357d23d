package quality

import (
	"fmt"
	"strings"
	"testing"

	"writeflow/internal/domain"
)

func fillerWords(n int) string {
	words := make([]string, 0, n)
	vocab := []string{
		"analysis", "method", "result", "system", "approach", "design", "model",
		"study", "process", "concept", "example", "practice", "theory", "review",
		"evidence", "context", "outcome", "measure", "factor", "detail",
	}
	for i := 0; i < n; i++ {
		words = append(words, fmt.Sprintf("%s%s", vocab[i%len(vocab)], vocab[(i/len(vocab))%len(vocab)]))
	}
	return strings.Join(words, " ")
}

// structuredContent builds content with the required sections and roughly
// the requested prose word count.
func structuredContent(words int) string {
	chunk := words / 3
	return "# Test Topic\n\n" +
		"## Abstract\n\n" + fillerWords(chunk) + "\n\n" +
		"## Introduction\n\n" + fillerWords(chunk) + "\n\n" +
		"## Conclusion\n\n" + fillerWords(words-2*chunk)
}

func academicPayload() domain.Payload {
	return domain.Payload{
		Topic:    "Test Topic",
		Subject:  "Testing",
		Level:    "School",
		Length:   "Medium",
		Style:    "Academic",
		Pages:    1,
		Language: "English",
	}
}

func issueCodes(res Result) map[string]bool {
	codes := make(map[string]bool)
	for _, issue := range res.Issues {
		codes[issue.Code] = true
	}
	return codes
}

func TestValidateAcceptsWellFormedContent(t *testing.T) {
	p := academicPayload()
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	res := Validate(structuredContent(r.Target), p)
	if !res.OK {
		t.Fatalf("expected OK, got issues: %+v", res.Issues)
	}
	if res.Stats.WordCount < r.Min || res.Stats.WordCount > r.Max {
		t.Fatalf("word count %d outside [%d, %d]", res.Stats.WordCount, r.Min, r.Max)
	}
}

func TestValidateFlagsShortContent(t *testing.T) {
	p := academicPayload()
	res := Validate(structuredContent(60), p)
	if res.OK {
		t.Fatal("expected failure for short content")
	}
	if !issueCodes(res)[IssueLengthUnder] {
		t.Fatalf("missing %s issue: %+v", IssueLengthUnder, res.Issues)
	}
}

func TestValidateFlagsLongContent(t *testing.T) {
	p := academicPayload()
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	res := Validate(structuredContent(r.Max*2), p)
	if res.OK {
		t.Fatal("expected failure for long content")
	}
	if !issueCodes(res)[IssueLengthOver] {
		t.Fatalf("missing %s issue: %+v", IssueLengthOver, res.Issues)
	}
}

func TestValidateFlagsMissingSections(t *testing.T) {
	p := academicPayload()
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	content := "# Test Topic\n\n## Abstract\n\n" + fillerWords(r.Target)
	res := Validate(content, p)
	if res.OK {
		t.Fatal("expected failure for missing sections")
	}
	if !issueCodes(res)[IssueStructure] {
		t.Fatalf("missing %s issue: %+v", IssueStructure, res.Issues)
	}
}

func TestValidateFlagsMissingH1(t *testing.T) {
	p := academicPayload()
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	content := "## Abstract\n\n" + fillerWords(r.Target) + "\n\n## Introduction\n\nx\n\n## Conclusion\n\ny"
	res := Validate(content, p)
	if !issueCodes(res)[IssueStructure] {
		t.Fatalf("missing %s issue: %+v", IssueStructure, res.Issues)
	}
}

func TestValidateMarkerCountExact(t *testing.T) {
	p := academicPayload()
	p.IncludeImages = true
	p.ImageCount = 2
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	content := structuredContent(r.Target) + "\n\n[IMAGE: DESCRIPTION=\"one\"]"
	res := Validate(content, p)
	if !issueCodes(res)[IssueImageMarkers] {
		t.Fatalf("missing %s issue: %+v", IssueImageMarkers, res.Issues)
	}
}

func TestValidateRejectsMarkersWhenDisabled(t *testing.T) {
	p := academicPayload()
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	content := structuredContent(r.Target) + "\n\n[IMAGE: DESCRIPTION=\"stray\"]"
	res := Validate(content, p)
	if !issueCodes(res)[IssueImageMarkers] {
		t.Fatalf("missing %s issue: %+v", IssueImageMarkers, res.Issues)
	}
}

func TestValidateFormalStyleRejectsContractions(t *testing.T) {
	p := academicPayload()
	p.Style = "Formal"
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	content := structuredContent(r.Target) + "\n\nIt doesn't matter."
	res := Validate(content, p)
	if !issueCodes(res)[IssueStyle] {
		t.Fatalf("missing %s issue: %+v", IssueStyle, res.Issues)
	}
}

func TestValidateLanguageMismatch(t *testing.T) {
	p := academicPayload()
	p.Language = "Urdu"
	r := TargetWordRange(p.Pages, p.Level, p.Style)
	res := Validate(structuredContent(r.Target), p)
	if !issueCodes(res)[IssueLanguageMismatch] {
		t.Fatalf("missing %s issue: %+v", IssueLanguageMismatch, res.Issues)
	}
}

func TestValidateUrduContentPasses(t *testing.T) {
	p := academicPayload()
	p.Language = "Urdu"
	urdu := strings.Repeat("تعلیم اور تحقیق کا عمل ", 40)
	content := "# عنوان\n\n## Abstract\n\n" + urdu + "\n\n## Introduction\n\n" + urdu + "\n\n## Conclusion\n\n" + urdu
	res := Validate(content, p)
	if issueCodes(res)[IssueLanguageMismatch] {
		t.Fatalf("unexpected language mismatch: %+v", res.Issues)
	}
}

func TestIsLikelyGenericStockPhrase(t *testing.T) {
	if !IsLikelyGeneric("According to the Global Research Institute, adoption grew.") {
		t.Fatal("stock phrase not flagged")
	}
}

func TestIsLikelyGenericRepeatedRun(t *testing.T) {
	if !IsLikelyGeneric("content content content content is here") {
		t.Fatal("repeated token run not flagged")
	}
}

func TestIsLikelyGenericEmpty(t *testing.T) {
	if !IsLikelyGeneric("   ") {
		t.Fatal("empty content not flagged")
	}
}

func TestIsLikelyGenericAcceptsVariedProse(t *testing.T) {
	if IsLikelyGeneric(fillerWords(300)) {
		t.Fatal("varied prose flagged as generic")
	}
}

func TestTargetWordRange(t *testing.T) {
	r := TargetWordRange(1, "University", "Academic")
	if r.Target != 280 {
		t.Fatalf("Target = %d, want 280", r.Target)
	}
	if r.Min != 266 || r.Max != 294 {
		t.Fatalf("window = [%d, %d], want [266, 294]", r.Min, r.Max)
	}
}

func TestTargetWordRangeConciseReduces(t *testing.T) {
	full := TargetWordRange(2, "University", "Academic")
	concise := TargetWordRange(2, "University", "Direct and concise")
	if concise.Target >= full.Target {
		t.Fatalf("concise target %d not below %d", concise.Target, full.Target)
	}
}

func TestTargetWordRangeMinFloor(t *testing.T) {
	r := TargetWordRange(0, "School", "Direct and concise")
	if r.Min < 150 {
		t.Fatalf("Min = %d, want >= 150", r.Min)
	}
}
