package imagegen

import (
	"testing"
	"time"

	"writeflow/internal/domain"
)

func TestQuotaStatusFor(t *testing.T) {
	cases := []struct {
		reason string
		want   string
	}{
		{"This model is only accessible to billed users at this time.", domain.ImageStatusBillingRequired},
		{"google status 429: Too Many Requests", domain.ImageStatusQuotaExceeded},
		{"rate limit reached for requests", domain.ImageStatusQuotaExceeded},
		{"RESOURCE_EXHAUSTED: limit reached", domain.ImageStatusQuotaExceeded},
		{"Quota exceeded for quota metric generate_content_free_tier", domain.ImageStatusQuotaExceeded},
		{"request timeout after 30s", ""},
		{"invalid prompt", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := QuotaStatusFor(tc.reason); got != tc.want {
			t.Errorf("QuotaStatusFor(%q) = %q, want %q", tc.reason, got, tc.want)
		}
	}
}

func TestParseRetryDelaySeconds(t *testing.T) {
	cases := []struct {
		reason string
		want   int
	}{
		{`google status 429: {"retryDelay": "30s"}`, 30},
		{"Rate limit reached. Please retry in 2.5s.", 3},
		{"Please RETRY IN 12s", 12},
		{"no hint here", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseRetryDelaySeconds(tc.reason); got != tc.want {
			t.Errorf("ParseRetryDelaySeconds(%q) = %d, want %d", tc.reason, got, tc.want)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	retryable := []string{
		"",
		"request timeout",
		"service temporarily unavailable",
		"read: connection reset by peer",
		"ECONNRESET",
		"socket hang up",
		"network error while fetching",
	}
	for _, reason := range retryable {
		if !ShouldRetry(reason) {
			t.Errorf("ShouldRetry(%q) = false, want true", reason)
		}
	}
	permanent := []string{
		"invalid prompt",
		"model not found",
	}
	for _, reason := range permanent {
		if ShouldRetry(reason) {
			t.Errorf("ShouldRetry(%q) = true, want false", reason)
		}
	}
}

func TestQuotaStateBlockWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	q := NewQuotaState()
	q.now = func() time.Time { return now }

	if blocked, _ := q.Blocked(); blocked {
		t.Fatal("fresh state reported blocked")
	}

	q.RecordFailure(domain.ImageStatusQuotaExceeded, 30)
	blocked, secs := q.Blocked()
	if !blocked || secs != 30 {
		t.Fatalf("Blocked() = %v, %d, want true, 30", blocked, secs)
	}
	if q.LastFailure() != domain.ImageStatusQuotaExceeded {
		t.Errorf("LastFailure = %q", q.LastFailure())
	}

	now = base.Add(31 * time.Second)
	if blocked, _ := q.Blocked(); blocked {
		t.Fatal("still blocked after the window passed")
	}
}

func TestQuotaStateDefaultWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	q := NewQuotaState()
	q.now = func() time.Time { return base }

	q.RecordFailure(domain.ImageStatusQuotaExceeded, 0)
	blocked, secs := q.Blocked()
	if !blocked || secs != 60 {
		t.Fatalf("Blocked() = %v, %d, want true, 60", blocked, secs)
	}
}

func TestQuotaSnapshot(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	q := NewQuotaState()
	q.now = func() time.Time { return base }

	snap := q.Snapshot()
	if snap.BlockedUntil != nil || snap.LastFailureAt != nil || snap.LastFailure != "" {
		t.Fatalf("fresh snapshot not empty: %+v", snap)
	}

	q.RecordFailure(domain.ImageStatusBillingRequired, 120)
	snap = q.Snapshot()
	if snap.LastFailure != domain.ImageStatusBillingRequired {
		t.Errorf("LastFailure = %q", snap.LastFailure)
	}
	if snap.BlockedUntil == nil || !snap.BlockedUntil.Equal(base.Add(120*time.Second)) {
		t.Errorf("BlockedUntil = %v", snap.BlockedUntil)
	}
	if snap.LastFailureAt == nil || !snap.LastFailureAt.Equal(base) {
		t.Errorf("LastFailureAt = %v", snap.LastFailureAt)
	}
}
