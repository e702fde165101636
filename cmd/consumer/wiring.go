package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angeloszaimis/divider/config"
	"github.com/angeloszaimis/divider/internal/admission"
	"github.com/angeloszaimis/divider/internal/circuitbreaker"
	"github.com/angeloszaimis/divider/internal/client"
	"github.com/angeloszaimis/divider/internal/dispatch"
	"github.com/angeloszaimis/divider/internal/fallback"
	"github.com/angeloszaimis/divider/internal/metrics"
	"github.com/angeloszaimis/divider/pkg/logger"
)

const redisPingTimeout = 2 * time.Second

type consumerDeps struct {
	controller *admission.Controller
	breakers   *circuitbreaker.Registry
	service    client.DivisionService
}

// buildStatsStore connects to Redis when configured. An unreachable Redis
// falls back to in-memory counters so admission keeps working.
func buildStatsStore(ctx context.Context, cfg config.StatsConfig, log *slog.Logger) (admission.StatsStore, func() error) {
	noop := func() error { return nil }

	if cfg.Backend != config.StatsRedis {
		return admission.NewMemoryStatsStore(), noop
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Address,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: redisPingTimeout,
		MaxRetries:  1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, using in-memory admission stats",
			slog.String("addr", cfg.Redis.Address),
			slog.Any("err", err))
		_ = rdb.Close()
		return admission.NewMemoryStatsStore(), noop
	}

	log.Info("Recording admission stats in Redis", slog.String("addr", cfg.Redis.Address))

	store := admission.NewRedisStatsStore(rdb,
		admission.WithStatsPrefix(cfg.Prefix),
		admission.WithStatsTTL(cfg.TTLDuration()),
	)
	return store, rdb.Close
}

func newBreakerRegistry(cfg config.CircuitBreakerConfig, collector *metrics.Collector, log *slog.Logger) *circuitbreaker.Registry {
	return circuitbreaker.NewRegistry(cfg.Threshold, cfg.ResetTimeoutDuration(),
		circuitbreaker.WithStateChange(func(target string, from, to circuitbreaker.State) {
			log.Warn("Circuit breaker state changed",
				slog.String("target", target),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventBreakerChanged,
				Timestamp: time.Now(),
				Target:    target,
				State:     to.String(),
			})
		}),
	)
}

func buildConsumer(cfg *config.Config, stats admission.StatsStore, collector *metrics.Collector, log *slog.Logger) (*consumerDeps, error) {
	target, err := url.Parse(cfg.Consumer.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}

	controller := admission.NewController(admission.Options{
		Resource:       "GET:" + target.JoinPath("divide").String(),
		RPS:            cfg.Admission.RPS,
		Burst:          cfg.Admission.Burst,
		MaxConcurrency: cfg.Admission.MaxConcurrency,
		AcquireTimeout: cfg.Admission.AcquireTimeoutDuration(),
		Stats:          stats,
	}, log)

	breakers := newBreakerRegistry(cfg.CircuitBreaker, collector, log)
	collector.WatchBreakers(func() map[string]string {
		stats := breakers.Stats()
		states := make(map[string]string, len(stats))
		for target, state := range stats {
			states[target] = state.String()
		}
		return states
	})

	dispatcher := dispatch.New(target, &http.Client{}, cfg.Consumer.RequestTimeoutDuration(), controller, breakers, log)

	service := client.WithFallback(client.New(dispatcher), dispatcher.Target(), fallback.NewFactory(), log, collector)

	return &consumerDeps{
		controller: controller,
		breakers:   breakers,
		service:    service,
	}, nil
}

// refresh applies the parts of a reloaded config that take effect without a
// restart: admission rate, burst and the log level.
func refresh(deps *consumerDeps, level *slog.LevelVar, cfg *config.Config, log *slog.Logger) {
	deps.controller.SetLimit(cfg.Admission.RPS, cfg.Admission.Burst)
	level.Set(logger.ParseLevel(cfg.Logging.Level))

	log.Info("Configuration refreshed",
		slog.Float64("rps", cfg.Admission.RPS),
		slog.Int("burst", cfg.Admission.Burst),
		slog.String("level", cfg.Logging.Level))
}
