package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Salamony4all/Estem8-V1/cmd/pp-structure-api/handlers"
	"github.com/Salamony4all/Estem8-V1/cmd/pp-structure-api/middleware"
	"github.com/Salamony4all/Estem8-V1/internal/config"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// ExtractionService is what the router needs from the extraction layer.
type ExtractionService interface {
	handlers.Extractor
	handlers.ReadinessChecker
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *config.Config, svc ExtractionService, logger *observability.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins, cfg.Server.CORS.AllowCredentials))

	healthHandler := handlers.NewHealthHandler(
		svc,
		cfg.Observability.ServiceName,
		cfg.Observability.ServiceVersion,
		cfg.Engine.Backend,
		logger,
	)
	extractionHandler := handlers.NewExtractionHandler(svc, cfg.Server.MaxBodyBytes, logger.WithComponent("http"))

	r.Get("/", healthHandler.Health)
	r.Get("/health", healthHandler.Health)
	r.Post("/predict/pp_structure_v3", extractionHandler.Predict)

	return r
}
