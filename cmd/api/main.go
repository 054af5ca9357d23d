package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"writeflow/internal/feedback"
	"writeflow/internal/generator"
	"writeflow/internal/http/handlers"
	httpapi "writeflow/internal/http/httpapi"
	"writeflow/internal/imagegen"
	"writeflow/internal/infra"
	"writeflow/internal/jobs"
	imageproviders "writeflow/internal/providers/image"
	"writeflow/internal/providers/text"
	"writeflow/internal/uniqueness"
)

const jobSweepInterval = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	gen := generator.New(generator.Options{
		Logger:        &logger,
		Gateway:       text.NewGateway(),
		Uniqueness:    uniqueness.New(),
		OrderStrategy: cfg.TextProviderOrder,
		Providers: []text.Provider{
			text.NewGemini(text.GeminiOptions{
				APIKey:  cfg.GoogleAPIKey,
				BaseURL: cfg.GeminiBaseURL,
				Model:   cfg.GoogleTextModel,
			}),
			text.NewOpenRouter(text.OpenRouterOptions{
				APIKey:  cfg.OpenRouterAPIKey,
				BaseURL: cfg.OpenRouterBaseURL,
				Model:   cfg.OpenRouterTextModel,
			}),
			text.NewOpenAI(text.OpenAIOptions{
				APIKey:  cfg.OpenAIAPIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAITextModel,
			}),
		},
	})

	imageKey := cfg.EffectiveImageAPIKey()
	pipeline := imagegen.New(imagegen.Options{
		Logger:   &logger,
		Provider: effectiveImageProvider(cfg, imageKey),
		APIKey:   imageKey,
		Quota:    imagegen.NewQuotaState(),
		Generators: map[string]imageproviders.Generator{
			imageproviders.ProviderGoogle:      imageproviders.NewGoogle(imageproviders.GoogleOptions{APIKey: imageKey}),
			imageproviders.ProviderOpenAI:      imageproviders.NewOpenAI(imageproviders.OpenAIOptions{APIKey: imageKey}),
			imageproviders.ProviderHuggingFace: imageproviders.NewHuggingFace(imageproviders.HuggingFaceOptions{APIKey: imageKey, Model: cfg.HuggingFaceModel}),
		},
	})

	store := jobs.NewStore(jobs.WithTTL(cfg.JobTTL), jobs.WithMaxEvents(cfg.JobMaxEvents))
	runner := jobs.NewRunner(&logger, store, gen, pipeline)

	app := handlers.NewApp(&logger, cfg, store, runner, gen, pipeline, feedback.NewStore())
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(jobSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepDone:
				return
			case <-ticker.C:
				if n := store.Sweep(); n > 0 {
					logger.Info().Int("evicted", n).Msg("swept expired jobs")
				}
			}
		}
	}()

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// effectiveImageProvider keeps the configured provider only when it agrees
// with what the key shape implies; a mismatch falls back to auto-detection.
func effectiveImageProvider(cfg *infra.Config, apiKey string) string {
	if cfg.ImageProvider == imageproviders.ProviderAuto {
		return imageproviders.ProviderAuto
	}
	if cfg.ImageProvider == imageproviders.ResolveProvider(imageproviders.ProviderAuto, apiKey) {
		return cfg.ImageProvider
	}
	return imageproviders.ProviderAuto
}
