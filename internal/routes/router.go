package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/md80av8r/propilot-core/internal/api"
	"github.com/md80av8r/propilot-core/internal/config"
	"github.com/md80av8r/propilot-core/internal/logging"
	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/middleware"
)

func RegisterRoutes(cfg *config.Config, deps *api.Dependencies, metricsReg *metrics.MetricsRegistry, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.RateLimitMiddleware)
	if cfg.Env == config.EnvLocal {
		// Full request/response dump for local debugging.
		r.Use(middleware.Logging)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8081", "capacitor://localhost"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")
	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(deps.TripDB, deps.AirportDB, upSince))

	// Register API routes
	RegisterAPIRoutes(r, deps)

	return r
}
