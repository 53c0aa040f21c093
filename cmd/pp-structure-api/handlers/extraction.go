package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Salamony4all/Estem8-V1/internal/extraction"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
)

// Extractor runs the extraction pipeline.
type Extractor interface {
	Extract(ctx context.Context, req extraction.Request) (*extraction.Response, error)
}

// PredictRequest is the body of POST /predict/pp_structure_v3.
type PredictRequest struct {
	PDFData *string `json:"pdf_data"`
	Lang    string  `json:"lang,omitempty"`
}

// ExtractionHandler serves the table extraction endpoint.
type ExtractionHandler struct {
	svc          Extractor
	maxBodyBytes int64
	logger       *observability.Logger
}

// NewExtractionHandler creates an ExtractionHandler. maxBodyBytes <= 0 disables the limit.
func NewExtractionHandler(svc Extractor, maxBodyBytes int64, logger *observability.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Predict handles POST /predict/pp_structure_v3.
func (h *ExtractionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithContext(r.Context())

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req PredictRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn().Int64("limit", tooLarge.Limit).Msg("Request body too large")
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", "Invalid request body: "+err.Error())
		return
	}
	if req.PDFData == nil {
		writeError(w, http.StatusBadRequest, "pdf_data is required", "pdf_data is required")
		return
	}

	resp, err := h.svc.Extract(r.Context(), extraction.Request{
		PDFData: *req.PDFData,
		Lang:    req.Lang,
	})
	if err != nil {
		status := extraction.StatusFor(err)
		detail := extraction.DetailFor(err)
		evt := logger.Error()
		if status < http.StatusInternalServerError {
			evt = logger.Warn()
		}
		evt.Err(err).Int("status", status).Msg("Extraction request failed")
		writeError(w, status, detail, detail)
		return
	}

	logger.Info().
		Int("total_elements", resp.TotalElements).
		Int("total_tables", resp.TotalTables).
		Msg("Extraction completed")
	writeJSON(w, http.StatusOK, resp)
}
