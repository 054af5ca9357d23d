package imagegen

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"writeflow/internal/domain"
)

var (
	retryDelayJSONRe = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+)s"`)
	retryInRe        = regexp.MustCompile(`(?i)retry in\s+(\d+(\.\d+)?)s`)
)

// QuotaStatusFor inspects a provider failure and reports the matching image
// status, or the empty string when the failure is not quota related.
func QuotaStatusFor(reason string) string {
	if strings.Contains(reason, "only accessible to billed users") {
		return domain.ImageStatusBillingRequired
	}
	lower := strings.ToLower(reason)
	if strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "rate limit") {
		return domain.ImageStatusQuotaExceeded
	}
	if strings.Contains(reason, "RESOURCE_EXHAUSTED") ||
		strings.Contains(reason, "Quota exceeded") ||
		strings.Contains(reason, "generate_content_free_tier") {
		return domain.ImageStatusQuotaExceeded
	}
	return ""
}

// ParseRetryDelaySeconds extracts the provider-suggested retry delay from a
// failure message, in either the structured or prose form.
func ParseRetryDelaySeconds(reason string) int {
	if match := retryDelayJSONRe.FindStringSubmatch(reason); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			return n
		}
	}
	if match := retryInRe.FindStringSubmatch(reason); match != nil {
		if f, err := strconv.ParseFloat(match[1], 64); err == nil && f > 0 {
			return int(math.Ceil(f))
		}
	}
	return 0
}

// ShouldRetry reports whether a failure is transient enough to retry.
func ShouldRetry(reason string) bool {
	lower := strings.ToLower(strings.TrimSpace(reason))
	if lower == "" {
		return true
	}
	if strings.Contains(lower, "timeout") {
		return true
	}
	if strings.Contains(lower, "temporarily unavailable") {
		return true
	}
	if strings.Contains(lower, "econnreset") || strings.Contains(lower, "connection reset") || strings.Contains(lower, "socket hang up") {
		return true
	}
	if strings.Contains(lower, "network") && strings.Contains(lower, "error") {
		return true
	}
	return false
}

// QuotaState is the shared block window for image generation. A quota
// failure in one job blocks image attempts in every job until the window
// passes.
type QuotaState struct {
	mu            sync.Mutex
	blockedUntil  time.Time
	lastFailure   string
	lastFailureAt time.Time
	now           func() time.Time
}

// NewQuotaState returns an unblocked QuotaState.
func NewQuotaState() *QuotaState {
	return &QuotaState{now: time.Now}
}

// Blocked reports whether image generation is serving a quota block, and if
// so for how many more seconds.
func (q *QuotaState) Blocked() (bool, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	if now.Before(q.blockedUntil) {
		secs := int(math.Ceil(q.blockedUntil.Sub(now).Seconds()))
		if secs < 1 {
			secs = 1
		}
		return true, secs
	}
	return false, 0
}

// RecordFailure opens the shared block window. When the provider did not
// suggest a delay the window defaults to one minute.
func (q *QuotaState) RecordFailure(status string, retryAfterSeconds int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastFailure = status
	q.lastFailureAt = q.now()
	delay := time.Duration(retryAfterSeconds) * time.Second
	if retryAfterSeconds <= 0 {
		delay = time.Minute
	}
	q.blockedUntil = q.now().Add(delay)
}

// LastFailure returns the most recent quota failure status.
func (q *QuotaState) LastFailure() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastFailure
}

// QuotaSnapshot is a point-in-time view of the block window for monitoring.
type QuotaSnapshot struct {
	BlockedUntil  *time.Time `json:"blockedUntil"`
	LastFailure   string     `json:"lastFailureReason,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
}

// Snapshot returns the current block window state.
func (q *QuotaState) Snapshot() QuotaSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := QuotaSnapshot{LastFailure: q.lastFailure}
	if !q.blockedUntil.IsZero() {
		t := q.blockedUntil
		snap.BlockedUntil = &t
	}
	if !q.lastFailureAt.IsZero() {
		t := q.lastFailureAt
		snap.LastFailureAt = &t
	}
	return snap
}
