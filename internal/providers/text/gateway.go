package text

import (
	"strings"
	"sync"
	"time"
)

// Failure codes produced by ClassifyFailure.
const (
	FailureRateLimit = "RATE_LIMIT"
	FailureQuota     = "QUOTA"
	FailureTimeout   = "TIMEOUT"
	FailureAuth      = "AUTH"
	FailureError     = "ERROR"
	FailureUnknown   = "UNKNOWN"
)

const (
	authBlockDuration    = 10 * time.Minute
	defaultBlockDuration = 60 * time.Second
)

// Classification is the normalized verdict for a provider failure.
type Classification struct {
	Code      string
	Retryable bool
	BlockFor  time.Duration
}

// ClassifyFailure maps a raw provider error message to a failure class and
// the cool-down the provider should serve before being tried again.
func ClassifyFailure(reason string) Classification {
	text := strings.TrimSpace(reason)
	if text == "" {
		return Classification{Code: FailureUnknown, Retryable: true}
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "rate limit"):
		return Classification{Code: FailureRateLimit, Retryable: true, BlockFor: 60 * time.Second}
	case strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "billing"):
		return Classification{Code: FailureQuota, Retryable: true, BlockFor: 300 * time.Second}
	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded"):
		return Classification{Code: FailureTimeout, Retryable: true, BlockFor: 30 * time.Second}
	case strings.Contains(lower, "permission_denied") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "status 401") ||
		strings.Contains(lower, "status 403"):
		return Classification{Code: FailureAuth, Retryable: false}
	}
	return Classification{Code: FailureError, Retryable: true}
}

type providerState struct {
	blockedUntil    time.Time
	lastFailureCode string
}

// Gateway tracks per-provider block windows so a provider that just rate
// limited or rejected a key is skipped by subsequent requests until its
// cool-down passes.
type Gateway struct {
	mu    sync.Mutex
	state map[string]*providerState
	now   func() time.Time
}

// NewGateway returns a Gateway with no providers blocked.
func NewGateway() *Gateway {
	return &Gateway{
		state: make(map[string]*providerState),
		now:   time.Now,
	}
}

// Blocked reports whether the provider is serving a cool-down.
func (g *Gateway) Blocked(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.state[name]
	return ok && g.now().Before(st.blockedUntil)
}

// RecordFailure classifies the failure and opens a block window for the
// provider. Non-retryable failures get a long window.
func (g *Gateway) RecordFailure(name, reason string) Classification {
	classified := ClassifyFailure(reason)

	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.state[name]
	if !ok {
		st = &providerState{}
		g.state[name] = st
	}
	st.lastFailureCode = classified.Code
	switch {
	case !classified.Retryable:
		st.blockedUntil = g.now().Add(authBlockDuration)
	case classified.BlockFor > 0:
		st.blockedUntil = g.now().Add(classified.BlockFor)
	default:
		st.blockedUntil = g.now().Add(defaultBlockDuration)
	}
	return classified
}

// LastFailure returns the most recent failure code recorded for a provider,
// or the empty string when the provider has not failed.
func (g *Gateway) LastFailure(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.state[name]; ok {
		return st.lastFailureCode
	}
	return ""
}

// Snapshot reports the block state per provider for monitoring.
func (g *Gateway) Snapshot() map[string]ProviderHealth {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]ProviderHealth, len(g.state))
	now := g.now()
	for name, st := range g.state {
		health := ProviderHealth{LastFailure: st.lastFailureCode}
		if now.Before(st.blockedUntil) {
			health.Blocked = true
			health.BlockedForSeconds = int(st.blockedUntil.Sub(now).Seconds())
		}
		out[name] = health
	}
	return out
}

// ProviderHealth is the monitoring view of one provider's gateway state.
type ProviderHealth struct {
	Blocked           bool   `json:"blocked"`
	BlockedForSeconds int    `json:"blockedForSeconds,omitempty"`
	LastFailure       string `json:"lastFailure,omitempty"`
}

// LooksLikeOpenAIKey reports whether the value has the shape of a real
// secret key, guarding against placeholder values from example env files.
func LooksLikeOpenAIKey(key string) bool {
	key = strings.TrimSpace(key)
	return strings.HasPrefix(key, "sk-") && len(key) >= 40
}
