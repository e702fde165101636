package handler

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/divider/internal/client"
	"github.com/angeloszaimis/divider/internal/division"
	"github.com/angeloszaimis/divider/internal/metrics"
)

type ConsumerHandler struct {
	logger           *slog.Logger
	service          client.DivisionService
	metricsCollector *metrics.Collector
}

func NewConsumerHandler(logger *slog.Logger, service client.DivisionService, collector *metrics.Collector) *ConsumerHandler {
	return &ConsumerHandler{
		logger:           logger,
		service:          service,
		metricsCollector: collector,
	}
}

func (h *ConsumerHandler) Divide() http.HandlerFunc {
	return instrument(h.logger, h.metricsCollector, "/divide", h.serveDivide)
}

func (h *ConsumerHandler) serveDivide(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	req, err := division.ParseRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Divide(r.Context(), req.A, req.B)
	if err != nil {
		h.logger.Error("Division service failed", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
