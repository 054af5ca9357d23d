// Package image contains the image-generation provider clients. Every
// provider returns generated images as data URIs so results can be embedded
// directly in job output without a storage layer.
package image

import (
	"context"
	"strings"
)

// Provider names as they appear in config and job metadata.
const (
	ProviderGoogle      = "google"
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
	ProviderAuto        = "auto"
)

// Generator produces one image for a prompt and returns it as a data URI.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt, aspectRatio string) (string, error)
}

// ResolveProvider maps the "auto" provider selection to a concrete provider
// using the shape of the API key.
func ResolveProvider(provider, apiKey string) string {
	if provider != ProviderAuto && provider != "" {
		return provider
	}
	switch {
	case strings.HasPrefix(apiKey, "sk-"):
		return ProviderOpenAI
	case strings.HasPrefix(apiKey, "hf_"):
		return ProviderHuggingFace
	default:
		return ProviderGoogle
	}
}

// LooksLikeAPIKey reports whether the key has a recognized provider prefix.
func LooksLikeAPIKey(apiKey string) bool {
	return strings.HasPrefix(apiKey, "AIza") ||
		strings.HasPrefix(apiKey, "sk-") ||
		strings.HasPrefix(apiKey, "hf_")
}

func dataURI(mimeType, base64Data string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64Data
}
