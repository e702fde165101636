package handler

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/divider/internal/division"
	"github.com/angeloszaimis/divider/internal/metrics"
)

type ProviderHandler struct {
	logger           *slog.Logger
	metricsCollector *metrics.Collector
}

func NewProviderHandler(logger *slog.Logger, collector *metrics.Collector) *ProviderHandler {
	return &ProviderHandler{
		logger:           logger,
		metricsCollector: collector,
	}
}

func (h *ProviderHandler) Divide() http.HandlerFunc {
	return instrument(h.logger, h.metricsCollector, "/divide", h.serveDivide)
}

func (h *ProviderHandler) serveDivide(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	req, err := division.ParseRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := division.Divide(req)
	if err != nil {
		h.logger.Warn("Division failed",
			slog.Int("a", req.A),
			slog.Int("b", req.B),
			slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
