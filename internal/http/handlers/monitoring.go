package handlers

import (
	"net/http"

	"writeflow/internal/providers/image"
)

// ImageGenerationStatus reports the image provider configuration, the shared
// quota block window, and usage counters.
func (a *App) ImageGenerationStatus(w http.ResponseWriter, r *http.Request) {
	keyConfigured := false
	switch a.Cfg.ImageProvider {
	case image.ProviderOpenAI, image.ProviderHuggingFace:
		keyConfigured = a.Cfg.ImageAPIKey != ""
	case image.ProviderGoogle:
		keyConfigured = a.Cfg.GoogleAPIKey != ""
	default:
		keyConfigured = a.Cfg.EffectiveImageAPIKey() != ""
	}

	a.json(w, http.StatusOK, map[string]any{
		"ok":            true,
		"provider":      a.Cfg.ImageProvider,
		"keyConfigured": keyConfigured,
		"quota":         a.Pipeline.Quota().Snapshot(),
		"usage":         a.usage.snapshot(),
	})
}

// TextProviderStatus reports per-provider circuit state for text generation.
func (a *App) TextProviderStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"ok":        true,
		"providers": a.Generator.ProviderHealth(),
	})
}
