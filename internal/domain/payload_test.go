package domain

import (
	"strings"
	"testing"
)

func validRaw() RawPayload {
	return RawPayload{
		Topic:   "Introduction to Python",
		Subject: "Computer Science",
		Level:   "University",
		Length:  "Medium",
		Style:   "Formal",
		Pages:   2,
	}
}

func TestNormalizePayloadDefaults(t *testing.T) {
	p, errs := NormalizePayload(validRaw())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.Language != "English" {
		t.Fatalf("Language = %q, want English", p.Language)
	}
	if p.EnglishVariant != "US" {
		t.Fatalf("EnglishVariant = %q, want US", p.EnglishVariant)
	}
	if p.Urgency != "Normal" {
		t.Fatalf("Urgency = %q, want Normal", p.Urgency)
	}
	if p.CitationStyle != "APA" {
		t.Fatalf("CitationStyle = %q, want APA", p.CitationStyle)
	}
	if p.IncludeImages || p.ImageCount != 0 {
		t.Fatalf("images should be disabled by default: %+v", p)
	}
}

func TestNormalizePayloadRequiredFields(t *testing.T) {
	_, errs := NormalizePayload(RawPayload{})
	if len(errs) == 0 {
		t.Fatal("expected errors for empty payload")
	}
	joined := strings.Join(errs, " ")
	for _, want := range []string{"Topic is required.", "Subject is required.", "Invalid academic level."} {
		if !strings.Contains(joined, want) {
			t.Fatalf("errors missing %q: %v", want, errs)
		}
	}
}

func TestNormalizePayloadImageCountDefaultsToOne(t *testing.T) {
	raw := validRaw()
	raw.IncludeImages = true
	p, errs := NormalizePayload(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.ImageCount != 1 {
		t.Fatalf("ImageCount = %d, want 1", p.ImageCount)
	}
}

func TestNormalizePayloadImageCountClamped(t *testing.T) {
	raw := validRaw()
	raw.IncludeImages = true
	raw.ImageCount = 12
	p, errs := NormalizePayload(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.ImageCount != MaxImageCount {
		t.Fatalf("ImageCount = %d, want %d", p.ImageCount, MaxImageCount)
	}
}

func TestNormalizePayloadRejectsCountWithoutImages(t *testing.T) {
	raw := validRaw()
	raw.ImageCount = 3
	_, errs := NormalizePayload(raw)
	if len(errs) == 0 {
		t.Fatal("expected error for image count with images disabled")
	}
}

func TestNormalizePayloadPagesClamped(t *testing.T) {
	raw := validRaw()
	raw.Pages = 99
	p, errs := NormalizePayload(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.Pages != MaxPages {
		t.Fatalf("Pages = %d, want %d", p.Pages, MaxPages)
	}
}

func TestNormalizePayloadLanguageAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-GB", "EnglishUK"},
		{"English (UK)", "EnglishUK"},
		{"ur", "Urdu"},
		{"اردو", "Urdu"},
		{"es-ES", "Spanish"},
		{"", "English"},
	}
	for _, tt := range tests {
		raw := validRaw()
		raw.Language = tt.in
		p, errs := NormalizePayload(raw)
		if len(errs) != 0 {
			t.Fatalf("language %q: unexpected errors: %v", tt.in, errs)
		}
		if p.Language != tt.want {
			t.Fatalf("language %q normalized to %q, want %q", tt.in, p.Language, tt.want)
		}
	}
}

func TestNormalizePayloadUKVariant(t *testing.T) {
	raw := validRaw()
	raw.Language = "EnglishUK"
	p, errs := NormalizePayload(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.EnglishVariant != "UK" {
		t.Fatalf("EnglishVariant = %q, want UK", p.EnglishVariant)
	}
}

func TestNormalizePayloadUploadCap(t *testing.T) {
	raw := validRaw()
	raw.Images = []string{"a", "", "b", "c", "d", "e", "f"}
	p, errs := NormalizePayload(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(p.Images) != MaxUploads {
		t.Fatalf("len(Images) = %d, want %d", len(p.Images), MaxUploads)
	}
}

func TestNormalizePayloadSeedClamped(t *testing.T) {
	seed := int64(-5)
	raw := validRaw()
	raw.Seed = &seed
	p, errs := NormalizePayload(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if p.Seed != 1 {
		t.Fatalf("Seed = %d, want 1", p.Seed)
	}
}

func TestIsConcise(t *testing.T) {
	p := Payload{Style: "Direct and concise"}
	if !p.IsConcise() {
		t.Fatal("expected concise style")
	}
	p.Style = "Formal"
	if p.IsConcise() {
		t.Fatal("formal style reported concise")
	}
}
