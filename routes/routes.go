package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/voice-control-plane/app"
	"github.com/upb/voice-control-plane/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Generous timeout: a local whisper pass on long audio is slow.
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.StatusHandler(deps))

		r.Post("/transcribe", handlers.TranscribeHandler(deps))
		r.Post("/generate", handlers.GenerateHandler(deps))
		r.Post("/generate/stream", handlers.StreamGenerateHandler(deps))
		r.Post("/turn", handlers.TurnHandler(deps))

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/summary", handlers.MetricsSummaryHandler(deps))
			r.Get("/table", handlers.MetricsTableHandler(deps))
			r.Post("/reset", handlers.MetricsResetHandler(deps))
		})
	})

	return r
}
