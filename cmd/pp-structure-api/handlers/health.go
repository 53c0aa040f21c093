package handlers

import (
	"net/http"

	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// ReadinessChecker reports whether the extraction engine is constructed.
type ReadinessChecker interface {
	EngineReady() bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string `json:"status"`
	Service            string `json:"service"`
	Version            string `json:"version"`
	Backend            string `json:"backend"`
	EngineAvailable    bool   `json:"engineAvailable"`
	PaddleOCRAvailable bool   `json:"paddleocr_available"`
}

// HealthHandler serves the liveness endpoints.
type HealthHandler struct {
	checker ReadinessChecker
	service string
	version string
	backend string
	logger  *observability.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(checker ReadinessChecker, service, version, backend string, logger *observability.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		service: service,
		version: version,
		backend: backend,
		logger:  logger,
	}
}

// Health handles GET / and GET /health. It never constructs the engine.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ready := h.checker.EngineReady()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             "healthy",
		Service:            h.service,
		Version:            h.version,
		Backend:            h.backend,
		EngineAvailable:    ready,
		PaddleOCRAvailable: ready,
	})
}
