package main

import (
	"net/http"

	"github.com/angeloszaimis/divider/internal/handler"
	"github.com/angeloszaimis/divider/internal/metrics"
)

func setupRouter(providerHandler *handler.ProviderHandler, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/divide", providerHandler.Divide())
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.Handle("/metrics/prometheus", collector.PrometheusHandler())

	return mux
}
