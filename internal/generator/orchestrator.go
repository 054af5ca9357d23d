package generator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"writeflow/internal/domain"
	"writeflow/internal/infra"
	"writeflow/internal/providers/text"
	"writeflow/internal/quality"
	"writeflow/internal/uniqueness"
)

const defaultTemplateDelay = 2 * time.Second

// Options wires a Generator together.
type Options struct {
	Logger        *infra.Logger
	Gateway       *text.Gateway
	Uniqueness    *uniqueness.Store
	Providers     []text.Provider
	OrderStrategy string
	// TemplateDelay spaces the deterministic fallback so its output does not
	// return faster than a realistic generation.
	TemplateDelay time.Duration
}

// Generator routes a generation request across the configured providers in
// preference order, repairs and validates each candidate, and falls back to
// a deterministic template so generation always produces content.
type Generator struct {
	logger        *infra.Logger
	gateway       *text.Gateway
	uniq          *uniqueness.Store
	providers     map[string]text.Provider
	order         []string
	templateDelay time.Duration
}

// Finalized is a candidate after the full repair-and-validate pass.
type Finalized struct {
	Content    string
	Validation quality.Result
	Generic    bool
	Duplicate  bool
	Digest     string
}

// New constructs a Generator.
func New(opts Options) *Generator {
	providers := make(map[string]text.Provider, len(opts.Providers))
	for _, p := range opts.Providers {
		providers[p.Name()] = p
	}
	gateway := opts.Gateway
	if gateway == nil {
		gateway = text.NewGateway()
	}
	uniq := opts.Uniqueness
	if uniq == nil {
		uniq = uniqueness.New()
	}
	delay := opts.TemplateDelay
	if delay <= 0 {
		delay = defaultTemplateDelay
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Generator{
		logger:        logger,
		gateway:       gateway,
		uniq:          uniq,
		providers:     providers,
		order:         text.OrderFor(opts.OrderStrategy),
		templateDelay: delay,
	}
}

// Finalize runs the full deterministic repair pipeline over raw model output
// and measures the result. It does not mutate the uniqueness store.
func (g *Generator) Finalize(raw string, p domain.Payload) Finalized {
	content := EnsureReferencesSection(raw, p)
	content = EnsureCoreSections(content, p)
	content = quality.Enforce(content, p)
	content = EnforceImageMarkersExact(content, p)

	return Finalized{
		Content:    content,
		Validation: quality.Validate(content, p),
		Generic:    quality.IsLikelyGeneric(content),
		Duplicate:  g.uniq.Has(quality.HashText(content)),
		Digest:     quality.HashText(content),
	}
}

// Generate produces finished assignment content for the payload. It returns
// an error only when the context is cancelled or the template output fails
// validation, which indicates a bug in the template itself.
func (g *Generator) Generate(ctx context.Context, p domain.Payload) (string, error) {
	for _, name := range g.order {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, ok := g.tryProvider(ctx, name, p)
		if ok {
			return content, nil
		}
	}
	return g.generateFromTemplate(ctx, p)
}

func (g *Generator) tryProvider(ctx context.Context, name string, p domain.Payload) (string, bool) {
	provider, ok := g.providers[name]
	if !ok || !provider.Available() || g.gateway.Blocked(name) {
		return "", false
	}

	g.logger.Info().Str("provider", name).Msg("attempting text generation")
	raw, err := provider.Generate(ctx, p)
	if err != nil {
		classified := g.gateway.RecordFailure(name, err.Error())
		g.logger.Warn().
			Err(err).
			Str("provider", name).
			Str("failure", classified.Code).
			Msg("text generation failed")
		return "", false
	}

	finalized := g.Finalize(raw, p)
	if finalized.Validation.OK && !finalized.Generic && !finalized.Duplicate {
		g.uniq.Add(finalized.Digest)
		g.logger.Info().
			Str("provider", name).
			Int("words", finalized.Validation.Stats.WordCount).
			Msg("text generation succeeded")
		return finalized.Content, true
	}
	if !finalized.Duplicate {
		g.uniq.Add(finalized.Digest)
	}
	g.logger.Warn().
		Str("provider", name).
		Bool("generic", finalized.Generic).
		Bool("duplicate", finalized.Duplicate).
		Int("issues", len(finalized.Validation.Issues)).
		Msg("provider output failed quality checks")
	return "", false
}

func (g *Generator) generateFromTemplate(ctx context.Context, p domain.Payload) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(g.templateDelay):
	}

	finalized := g.Finalize(BuildTemplateText(p), p)
	if !finalized.Duplicate {
		g.uniq.Add(finalized.Digest)
	}
	if !finalized.Validation.OK {
		return "", fmt.Errorf("template generation failed validation: %d issue(s)", len(finalized.Validation.Issues))
	}
	g.logger.Info().Int("words", finalized.Validation.Stats.WordCount).Msg("template generation used")
	return finalized.Content, nil
}

// ProviderHealth reports gateway state for monitoring endpoints.
func (g *Generator) ProviderHealth() map[string]text.ProviderHealth {
	return g.gateway.Snapshot()
}
