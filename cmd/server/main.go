package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/hiroki-koketsu/go-todo/internal/config"
	"github.com/hiroki-koketsu/go-todo/internal/handler"
	"github.com/hiroki-koketsu/go-todo/internal/repository"
	"github.com/hiroki-koketsu/go-todo/internal/telemetry"
	"go.opentelemetry.io/otel"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		startupLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.Store.Backend),
		slog.Bool("telemetry", cfg.TelemetryEnabled),
	)

	ctx := context.Background()

	// Closed in reverse order after the HTTP server has drained
	var closers []namedCloser

	logger := telemetry.NewLocalLogger(os.Stdout, cfg.ServiceName)
	if cfg.TelemetryEnabled {
		tp, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize tracer provider", slog.Any("error", err))
			os.Exit(1)
		}
		closers = append(closers, namedCloser{"tracer-provider", tp.Shutdown})

		mp, err := telemetry.InitMeterProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize meter provider", slog.Any("error", err))
			os.Exit(1)
		}
		closers = append(closers, namedCloser{"meter-provider", mp.Shutdown})

		// Logger provider last, for log-trace correlation
		lp, otelLogger, err := telemetry.InitLoggerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize logger provider", slog.Any("error", err))
			os.Exit(1)
		}
		closers = append(closers, namedCloser{"logger-provider", lp.Shutdown})
		logger = otelLogger
	}

	store, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open todo store", slog.Any("error", err))
		os.Exit(1)
	}
	closers = append(closers, namedCloser{"todo-store", func(context.Context) error { return store.Close() }})

	// Provision the table before accepting requests
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to provision todo store", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("todo store ready", slog.String("backend", cfg.Store.Backend), slog.String("table", cfg.Store.Table))

	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, store.Count)
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		os.Exit(1)
	}

	todoHandler := handler.NewTodoHandler(store, logger, metrics)
	authHandler := handler.NewAuthHandler(cfg.Auth, logger)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(todoHandler, authHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// One operation so the store and exporters outlive in-flight requests
	ops := map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			logger.Info("shutting down server...")
			err := server.Shutdown(ctx)
			return errors.Join(err, closeAll(ctx, closers))
		},
	}

	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, ops)
	exitCode := <-wait

	startupLogger.Info("server stopped", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// closeAll runs closers newest first and joins their errors.
func closeAll(ctx context.Context, closers []namedCloser) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", closers[i].name, err))
		}
	}
	return errors.Join(errs...)
}
