package imagegen

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"writeflow/internal/domain"
	"writeflow/internal/infra"
	"writeflow/internal/providers/image"
)

const defaultAspectRatio = "4:3"

// RetryPolicy bounds the per-image retry loop. Delay grows exponentially
// from BaseDelay with a little jitter on top.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the production defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Progress is delivered to the caller between image attempts so job events
// can track the batch.
type Progress struct {
	Done    int
	Total   int
	Message string
	Meta    map[string]any
}

// Options wires a Pipeline together.
type Options struct {
	Logger     *infra.Logger
	Provider   string
	APIKey     string
	Generators map[string]image.Generator
	Quota      *QuotaState
	Retry      RetryPolicy
}

// Pipeline renders the images requested by a payload from the markers in its
// generated content.
type Pipeline struct {
	logger     *infra.Logger
	provider   string
	apiKey     string
	generators map[string]image.Generator
	quota      *QuotaState
	retry      RetryPolicy
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() time.Duration
}

// New constructs a Pipeline.
func New(opts Options) *Pipeline {
	quota := opts.Quota
	if quota == nil {
		quota = NewQuotaState()
	}
	retry := opts.Retry
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	provider := opts.Provider
	if provider == "" {
		provider = image.ProviderAuto
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Pipeline{
		logger:     logger,
		provider:   provider,
		apiKey:     strings.TrimSpace(opts.APIKey),
		generators: opts.Generators,
		quota:      quota,
		retry:      retry,
		sleep:      sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Intn(250)) * time.Millisecond
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Quota exposes the shared quota state for monitoring.
func (pl *Pipeline) Quota() *QuotaState { return pl.quota }

// GenerateForContent renders images for each marker the uploaded images do
// not already cover. It returns the generated data URIs plus the final batch
// state. A quota failure aborts the remaining markers and arms the shared
// block window.
func (pl *Pipeline) GenerateForContent(ctx context.Context, p domain.Payload, content string, seed int64, onProgress func(Progress)) ([]string, domain.ImageGeneration) {
	state := domain.ImageGeneration{
		Provider: image.ResolveProvider(pl.provider, pl.apiKey),
		Status:   domain.ImageStatusIdle,
	}

	requested := 0
	if p.IncludeImages {
		requested = p.ImageCount
	}
	if requested == 0 {
		return nil, state
	}

	if pl.apiKey == "" {
		state.Status = domain.ImageStatusMissingKey
		state.Errors = append(state.Errors, domain.ImageError{
			Index:  0,
			Reason: "No API key configured. Set GOOGLE_API_KEY or IMAGE_API_KEY.",
		})
		return nil, state
	}
	if !image.LooksLikeAPIKey(pl.apiKey) {
		state.Status = domain.ImageStatusInvalidKey
		state.Errors = append(state.Errors, domain.ImageError{
			Index:  0,
			Reason: "Invalid API key format. Expected a Google (AIza...), OpenAI (sk-...), or Hugging Face (hf_...) key.",
		})
		return nil, state
	}
	if blocked, secs := pl.quota.Blocked(); blocked {
		state.Status = domain.ImageStatusQuotaBlocked
		state.RetryAfterSeconds = secs
		return nil, state
	}

	uploaded := len(p.Images)
	toGenerate := requested - uploaded
	if toGenerate < 0 {
		toGenerate = 0
	}
	markers := ExtractMarkers(content)
	if len(markers) == 0 || toGenerate == 0 {
		state.Status = domain.ImageStatusNoMarkers
		return nil, state
	}

	gen, ok := pl.generators[state.Provider]
	if !ok {
		state.Status = domain.ImageStatusFailed
		state.Errors = append(state.Errors, domain.ImageError{
			Index:  0,
			Reason: fmt.Sprintf("no generator registered for provider %q", state.Provider),
		})
		return nil, state
	}

	state.Attempted = true
	state.Status = domain.ImageStatusAttempted

	startIndex := uploaded
	if startIndex > len(markers) {
		startIndex = len(markers)
	}
	eligible := markers[startIndex:]
	if len(eligible) > toGenerate {
		eligible = eligible[:toGenerate]
	}

	var generated []string
	for i, raw := range eligible {
		if ctx.Err() != nil {
			return pl.finish(generated, state)
		}
		markerIndex := startIndex + i
		prompt := pl.buildPrompt(p, ParseMarker(raw), seed+int64(markerIndex))

		finalReason := pl.generateOne(ctx, gen, prompt, i, markerIndex, len(eligible), &generated, &state, onProgress)
		if finalReason != "" {
			state.Errors = append(state.Errors, domain.ImageError{Index: markerIndex, Reason: finalReason})
		}

		switch state.Status {
		case domain.ImageStatusQuotaExceeded, domain.ImageStatusQuotaBlocked, domain.ImageStatusBillingRequired:
			return pl.finish(generated, state)
		}
	}
	return pl.finish(generated, state)
}

// generateOne runs the retry loop for a single marker. It returns the final
// non-quota failure reason, or the empty string when the image was created
// or the failure was quota related.
func (pl *Pipeline) generateOne(ctx context.Context, gen image.Generator, prompt string, i, markerIndex, total int, generated *[]string, state *domain.ImageGeneration, onProgress func(Progress)) string {
	var finalReason string
	for attempt := 1; attempt <= pl.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return finalReason
		}
		if onProgress != nil {
			msg := fmt.Sprintf("Creating image %d of %d...", i+1, total)
			if attempt > 1 {
				msg = fmt.Sprintf("Retrying image %d (attempt %d/%d)...", i+1, attempt, pl.retry.MaxAttempts)
			}
			onProgress(Progress{
				Done:    i,
				Total:   total,
				Message: msg,
				Meta:    map[string]any{"index": markerIndex, "attempt": attempt, "maxAttempts": pl.retry.MaxAttempts},
			})
		}

		uri, err := gen.Generate(ctx, prompt, defaultAspectRatio)
		if err == nil {
			*generated = append(*generated, uri)
			state.Generated = len(*generated)
			if onProgress != nil {
				onProgress(Progress{
					Done:    i + 1,
					Total:   total,
					Message: fmt.Sprintf("Created image %d of %d.", i+1, total),
					Meta:    map[string]any{"index": markerIndex, "attempt": attempt, "ok": true},
				})
			}
			return ""
		}

		reason := err.Error()
		if quotaStatus := QuotaStatusFor(reason); quotaStatus != "" {
			state.Status = quotaStatus
			retryAfter := ParseRetryDelaySeconds(reason)
			if retryAfter > 0 {
				state.RetryAfterSeconds = retryAfter
			}
			pl.quota.RecordFailure(quotaStatus, retryAfter)
			state.Errors = append(state.Errors, domain.ImageError{Index: markerIndex, Reason: reason})
			pl.logger.Warn().
				Str("status", quotaStatus).
				Int("index", markerIndex).
				Msg("image generation hit quota limit")
			return ""
		}

		finalReason = reason
		if attempt < pl.retry.MaxAttempts && ShouldRetry(reason) && pl.retry.BaseDelay > 0 {
			wait := pl.retry.BaseDelay*time.Duration(1<<(attempt-1)) + pl.jitter()
			if err := pl.sleep(ctx, wait); err != nil {
				return finalReason
			}
			continue
		}
		break
	}
	return finalReason
}

func (pl *Pipeline) buildPrompt(p domain.Payload, m Marker, variation int64) string {
	lines := []string{
		"Create a high-quality educational illustration.",
		"No text, no watermarks, no logos.",
		"Topic: " + p.Topic,
		"Subject: " + p.Subject,
	}
	if m.SectionTitle != "" {
		lines = append(lines, "Section: "+m.SectionTitle)
	}
	if m.Keywords != "" {
		lines = append(lines, "Keywords: "+m.Keywords)
	}
	if m.Description != "" {
		lines = append(lines, "Scene: "+m.Description)
	}
	lines = append(lines, fmt.Sprintf("Variation: %d", variation))
	return strings.Join(lines, "\n")
}

func (pl *Pipeline) finish(generated []string, state domain.ImageGeneration) ([]string, domain.ImageGeneration) {
	if state.Status == domain.ImageStatusAttempted {
		if len(generated) > 0 {
			state.Status = domain.ImageStatusOK
		} else if len(state.Errors) > 0 {
			state.Status = domain.ImageStatusFailed
		}
	}
	return generated, state
}
