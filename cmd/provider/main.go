package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/angeloszaimis/divider/config"
	"github.com/angeloszaimis/divider/internal/handler"
	"github.com/angeloszaimis/divider/internal/httpserver"
	"github.com/angeloszaimis/divider/internal/metrics"
	"github.com/angeloszaimis/divider/pkg/logger"
)

const serviceName = "provider"

func main() {
	configFile, err := parseFlags(os.Args[1:])
	if err != nil {
		slog.Error("failed to parse flags", slog.Any("err", err))
		os.Exit(2)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	level := logger.NewLevel(cfg.Logging.Level)
	log := logger.NewWithLevel(os.Stdout, serviceName, level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(1000, serviceName, log)
	collector.Start(ctx)

	config.Watch(log, func(updated *config.Config) {
		refreshLogging(level, updated, log)
	})

	providerHandler := handler.NewProviderHandler(log, collector)

	srv, err := httpserver.New(cfg.Provider.Address, setupRouter(providerHandler, collector), httpserver.DefaultOptions())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Provider listening", slog.String("addr", srv.Addr()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting provider", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func refreshLogging(level *slog.LevelVar, cfg *config.Config, log *slog.Logger) {
	next := logger.ParseLevel(cfg.Logging.Level)
	if level.Level() == next {
		return
	}
	level.Set(next)
	log.Info("Log level refreshed", slog.String("level", next.String()))
}

func parseFlags(args []string) (string, error) {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *configFile, nil
}
