package handlers

import (
	"encoding/json"
	"net/http"

	"writeflow/internal/domain"
)

type generateResult struct {
	domain.Payload
	Seed            int64                  `json:"seed"`
	GeneratedImages []string               `json:"generatedImages"`
	ImageGeneration domain.ImageGeneration `json:"imageGeneration"`
	Content         string                 `json:"content"`
}

// Generate runs the whole pipeline synchronously and returns the finished
// assignment in one response.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawPayload
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		a.json(w, http.StatusBadRequest, map[string]any{"success": false, "errors": []string{"invalid JSON body"}})
		return
	}
	p, errs := domain.NormalizePayload(raw)
	if len(errs) > 0 {
		a.json(w, http.StatusBadRequest, map[string]any{"success": false, "errors": errs})
		return
	}

	requested := 0
	if p.IncludeImages {
		requested = p.ImageCount
	}
	a.usage.recordRequest(requested)

	seed := p.Seed
	if seed == 0 {
		seed = a.seed()
	}

	a.Logger.Info().
		Str("topic", p.Topic).
		Str("length", p.Length).
		Int("pages", p.Pages).
		Bool("include_images", p.IncludeImages).
		Int64("seed", seed).
		Msg("generate request")

	content, err := a.Generator.Generate(r.Context(), p)
	if err != nil {
		a.Logger.Error().Err(err).Msg("generation failed")
		a.json(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to generate assignment"})
		return
	}

	generated := []string{}
	state := domain.ImageGeneration{Status: domain.ImageStatusIdle, Errors: []domain.ImageError{}}
	if requested > 0 {
		generated, state = a.Pipeline.GenerateForContent(r.Context(), p, content, seed, nil)
		a.usage.recordBatch(state.Attempted, len(generated), state.Status, state.RetryAfterSeconds)
	}

	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"data": generateResult{
			Payload:         p,
			Seed:            seed,
			GeneratedImages: generated,
			ImageGeneration: state,
			Content:         content,
		},
	})
}
