package main

import (
	"net/http"

	"github.com/angeloszaimis/divider/internal/handler"
	"github.com/angeloszaimis/divider/internal/metrics"
)

func setupRouter(consumerHandler *handler.ConsumerHandler, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/divide", consumerHandler.Divide())
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/metrics", collector.Handler())
	mux.Handle("/metrics/prometheus", collector.PrometheusHandler())

	return mux
}
