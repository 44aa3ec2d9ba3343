package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"adstudio/internal/http/handlers"
	"adstudio/internal/infra"
	"adstudio/internal/middleware"
)

// NewRouter wires the caller-facing routes with the shared middleware stack.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}
	if cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/prompts/refine", app.RefinePrompt)
		r.Post("/images", app.GenerateImage)
		r.Post("/videos", app.AnimateImage)
		r.Post("/voiceovers", app.SynthesizeVoiceover)
		r.Post("/bundles", app.GenerateBundle)
		r.Get("/search", app.SearchAssets)
	})

	return r
}
