package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"writeflow/internal/http/handlers"
	"writeflow/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(*app.Logger),
		middleware.CORS(nil),
	)

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute)).
			Post("/generate", app.Generate)

		r.Route("/jobs", func(r chi.Router) {
			r.With(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute)).
				Post("/", app.CreateJob)
			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", app.GetJob)
				r.Get("/events", app.JobEvents)
				r.Post("/cancel", app.CancelJob)
				r.Post("/resolve-no-images", app.ResolveNoImages)
				r.Post("/upload-images", app.UploadImages)
				r.Post("/retry-images", app.RetryImages)
			})
		})

		r.Post("/feedback", app.SubmitFeedback)

		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/feedback", app.RecentFeedback)
			r.Get("/image-generation", app.ImageGenerationStatus)
			r.Get("/text-providers", app.TextProviderStatus)
		})
	})

	return r
}
