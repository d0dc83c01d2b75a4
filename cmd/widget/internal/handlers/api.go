package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

// FormatRequest is the body of POST /api/format.
type FormatRequest struct {
	Text string `json:"text"`
}

// FormatResponse carries the blocks and their HTML rendering.
type FormatResponse struct {
	Blocks []formatting.Block `json:"blocks"`
	Simple bool               `json:"simple"`
	HTML   string             `json:"html"`
}

// NormalizeRequest is the body of POST /api/normalize.
type NormalizeRequest struct {
	Sources []string `json:"sources"`
}

// NormalizeResponse lists deduplicated, normalized sources in input order.
type NormalizeResponse struct {
	Sources []sources.Source `json:"sources"`
}

// APIHandler exposes the formatter and normalizer without a backend call
type APIHandler struct {
	normalizer *sources.Normalizer
	logger     *zap.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(normalizer *sources.Normalizer, logger *zap.Logger) *APIHandler {
	if normalizer == nil {
		normalizer = sources.NewNormalizer(nil)
	}
	return &APIHandler{
		normalizer: normalizer,
		logger:     logger,
	}
}

// Format handles POST /api/format
func (h *APIHandler) Format(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, err.Error())
		return
	}

	answer := formatting.Format(req.Text)
	writeJSON(w, http.StatusOK, FormatResponse{
		Blocks: answer.Blocks,
		Simple: answer.Simple,
		HTML:   formatting.RenderHTML(answer),
	})
}

// Normalize handles POST /api/normalize
func (h *APIHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(w, err.Error())
		return
	}

	list, err := h.normalizer.NormalizeAll(r.Context(), req.Sources)
	if err != nil {
		h.logger.Warn("Normalize cancelled", zap.Error(err))
		sendError(w, http.StatusServiceUnavailable, "Request cancelled", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, NormalizeResponse{Sources: list})
}
