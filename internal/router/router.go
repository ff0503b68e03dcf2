package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthbridge-backend/internal/handlers"
	"healthbridge-backend/internal/middleware"
)

type Options struct {
	APIKey               string
	AllowedOrigins       []string
	AnalyzeRatePerMinute int
}

func New(
	opts Options,
	syncHandler *handlers.SyncHandler,
	healthHandler *handlers.HealthHandler,
	nutritionHandler *handlers.NutritionHandler,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Scraped without the API key; counters only, no health data.
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {

		// ──── Health Data Routes ────
		r.Route("/health", func(r chi.Router) {
			r.Get("/ping", healthHandler.Ping) // Public

			r.Group(func(r chi.Router) {
				r.Use(middleware.APIKey(opts.APIKey))
				r.Post("/sync", syncHandler.Sync)
				r.Get("/summary", healthHandler.Summary)
				r.Get("/latest", healthHandler.Latest)
				r.Get("/workouts", healthHandler.Workouts)
				r.Get("/mood", healthHandler.Mood)
				r.Get("/sleep", healthHandler.Sleep)
			})
		})

		// ──── Nutrition Routes ────
		r.Route("/nutrition", func(r chi.Router) {
			r.Use(middleware.APIKey(opts.APIKey))

			r.With(middleware.RateLimitByIP(opts.AnalyzeRatePerMinute, time.Minute)).
				Post("/analyze", nutritionHandler.Analyze)
			r.Get("/history", nutritionHandler.History)
			r.Get("/summary", nutritionHandler.Summary)

			r.Route("/meals", func(r chi.Router) {
				r.Get("/{id}", nutritionHandler.GetMeal)
				r.Put("/{id}", nutritionHandler.UpdateMeal)
				r.Delete("/{id}", nutritionHandler.DeleteMeal)
			})
		})
	})

	return r
}
