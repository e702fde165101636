package client

import (
	"context"
	"log/slog"

	"github.com/angeloszaimis/divider/internal/dispatch"
	"github.com/angeloszaimis/divider/internal/fallback"
	"github.com/angeloszaimis/divider/internal/httpserver"
	"github.com/angeloszaimis/divider/internal/metrics"
)

type DivisionService interface {
	Divide(ctx context.Context, a, b int) (int, error)
}

type remoteService struct {
	dispatcher *dispatch.Dispatcher
}

func New(dispatcher *dispatch.Dispatcher) DivisionService {
	return &remoteService{dispatcher: dispatcher}
}

func (s *remoteService) Divide(ctx context.Context, a, b int) (int, error) {
	return s.dispatcher.Divide(ctx, a, b)
}

type fallbackService struct {
	next      DivisionService
	factory   *fallback.Factory
	classify  func(error) fallback.Category
	target    string
	logger    *slog.Logger
	collector *metrics.Collector
}

// WithFallback wraps next so that every failure is answered by the fallback for
// its category. The returned service never returns an error. collector may be nil.
func WithFallback(next DivisionService, target string, factory *fallback.Factory, logger *slog.Logger, collector *metrics.Collector) DivisionService {
	return &fallbackService{
		next:      next,
		factory:   factory,
		classify:  dispatch.Classify,
		target:    target,
		logger:    logger,
		collector: collector,
	}
}

func (s *fallbackService) Divide(ctx context.Context, a, b int) (int, error) {
	value, err := s.next.Divide(ctx, a, b)
	if err == nil {
		s.collector.Emit(metrics.MetricEvent{
			Type:   metrics.EventCallSucceeded,
			Target: s.target,
		})
		return value, nil
	}

	category := s.classify(err)

	s.logger.Warn("Serving fallback",
		slog.String("target", s.target),
		slog.String("category", category.String()),
		slog.String("request_id", httpserver.RequestIDFromContext(ctx)),
		slog.Any("err", err))

	s.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventFallbackServed,
		Target:   s.target,
		Category: category.String(),
	})

	return s.factory.Create(category).Divide(ctx, a, b)
}
