package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mocksmith/mocksmith/internal/adapters/audit/sqlitelog"
	"github.com/mocksmith/mocksmith/internal/config"
	"github.com/mocksmith/mocksmith/internal/runtime"
	"github.com/mocksmith/mocksmith/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to configuration file")
	specSource := flag.String("spec", "", "spec document: file path, URL or inline JSON/YAML (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel()),
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("mocksmith", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	source := cfg.Spec.Source
	if *specSource != "" {
		source = *specSource
	}

	opts := []runtime.Option{
		runtime.WithPort(cfg.Server.Port),
		runtime.WithRequestTimeout(cfg.Server.Timeout),
		runtime.WithLogger(logger),
		runtime.WithFakerSeed(cfg.Generator.Seed),
	}
	if source != "" {
		opts = append(opts, runtime.WithSpec(source))
	}
	if cfg.Audit.Type == "sqlite" {
		auditStore, err := sqlitelog.New(cfg.Audit.Path)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
		opts = append(opts, runtime.WithEventPublisher(auditStore))
	}

	mock, err := runtime.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create mock server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- mock.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mock.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
