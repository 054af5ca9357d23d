// Package text contains the text-generation provider clients and the gateway
// that tracks per-provider health.
package text

import (
	"context"

	"writeflow/internal/domain"
)

// Provider names as they appear in config, logs, and job metadata.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Provider generates assignment text for a normalized payload. A provider
// returns the raw model output; repair and validation happen downstream.
type Provider interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, p domain.Payload) (string, error)
}

// OrderFor returns the provider preference order for a routing strategy.
// "quality" prefers the strongest models, "cost" the cheapest.
func OrderFor(strategy string) []string {
	switch strategy {
	case "cost":
		return []string{ProviderGemini, ProviderOpenRouter, ProviderOpenAI}
	default:
		return []string{ProviderOpenRouter, ProviderGemini, ProviderOpenAI}
	}
}
