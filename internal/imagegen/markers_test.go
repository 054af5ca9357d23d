package imagegen

import "testing"

func TestExtractMarkersDocumentOrder(t *testing.T) {
	content := "## Introduction\n\n" +
		"[IMAGE: SECTION_TITLE=\"Introduction\" KEYWORDS=\"python, code\"]\n\n" +
		"Some prose between markers.\n\n" +
		"[IMAGE: SECTION_TITLE=\"Methods\" DESCRIPTION=\"A flowchart of the process\"]\n"

	markers := ExtractMarkers(content)
	if len(markers) != 2 {
		t.Fatalf("markers = %d, want 2", len(markers))
	}
	if markers[0] != `SECTION_TITLE="Introduction" KEYWORDS="python, code"` {
		t.Errorf("first marker = %q", markers[0])
	}
	if markers[1] != `SECTION_TITLE="Methods" DESCRIPTION="A flowchart of the process"` {
		t.Errorf("second marker = %q", markers[1])
	}
}

func TestExtractMarkersSkipsEmptyBodies(t *testing.T) {
	markers := ExtractMarkers("before [IMAGE:   ] after [IMAGE: real body]")
	if len(markers) != 1 || markers[0] != "real body" {
		t.Fatalf("markers = %v, want [real body]", markers)
	}
}

func TestExtractMarkersNone(t *testing.T) {
	if markers := ExtractMarkers("plain prose, no markers here"); len(markers) != 0 {
		t.Fatalf("markers = %v, want none", markers)
	}
}

func TestParseMarkerAllFields(t *testing.T) {
	m := ParseMarker(`SECTION_TITLE="Results" KEYWORDS="graphs, data" DESCRIPTION="A bar chart of results"`)
	if m.SectionTitle != "Results" {
		t.Errorf("SectionTitle = %q", m.SectionTitle)
	}
	if m.Keywords != "graphs, data" {
		t.Errorf("Keywords = %q", m.Keywords)
	}
	if m.Description != "A bar chart of results" {
		t.Errorf("Description = %q", m.Description)
	}
}

func TestParseMarkerKeepsRawBodyAsDescription(t *testing.T) {
	m := ParseMarker("a sketch of a steam engine")
	if m.Description != "a sketch of a steam engine" {
		t.Errorf("Description = %q", m.Description)
	}
	if m.SectionTitle != "" {
		t.Errorf("SectionTitle = %q, want empty", m.SectionTitle)
	}
}

func TestParseMarkerDerivesTitleFromKeywords(t *testing.T) {
	m := ParseMarker(`KEYWORDS="neural networks, layers, training"`)
	if m.SectionTitle != "Neural Networks" {
		t.Errorf("SectionTitle = %q, want %q", m.SectionTitle, "Neural Networks")
	}
}
