// interviewd runs the interview workflow engine: the durable store, the
// workflow and activity workers, and the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/mysql"
	"github.com/hirepipe/interviewflow/backend/sqlite"
	"github.com/hirepipe/interviewflow/client"
	"github.com/hirepipe/interviewflow/internal/log"
	"github.com/hirepipe/interviewflow/interview"
	"github.com/hirepipe/interviewflow/notify"
	"github.com/hirepipe/interviewflow/registry"
	"github.com/hirepipe/interviewflow/web"
	"github.com/hirepipe/interviewflow/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("interviewd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if cfg.Region != "" {
		logger = logger.With(slog.String(log.RegionKey, cfg.Region))
	}

	tp, shutdownTracing, err := setupTracing(cfg.Tracing)
	if err != nil {
		return err
	}

	opts := []backend.BackendOption{
		backend.WithLogger(logger),
		backend.WithRegion(cfg.Region),
	}
	if tp != nil {
		opts = append(opts, backend.WithTracerProvider(tp))
	}

	var b backend.Backend
	switch cfg.Store.Driver {
	case "sqlite":
		b = sqlite.NewSqliteBackend(cfg.Store.Sqlite.Path, sqlite.WithBackendOptions(opts...))
	case "mysql":
		m := cfg.Store.Mysql
		b = mysql.NewMysqlBackend(m.Host, m.Port, m.User, m.Password, m.Database,
			mysql.WithBackendOptions(opts...))
	}

	r := registry.New()
	if err := interview.Register(r, interview.NewActivities(logger)); err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		notifier = notify.NewRedisNotifier(rdb)
	}

	workerOptions := worker.DefaultOptions
	workerOptions.StatusNotifier = notifier

	w := worker.New(b, r, &workerOptions)

	server := web.NewServer(client.New(b), b.Options().Clock, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.NewServeMux(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-httpErr:
		stop()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	if err := w.WaitForCompletion(); err != nil {
		logger.Error("error waiting for worker completion", "error", err)
	}

	if err := b.Close(); err != nil {
		logger.Error("error closing store", "error", err)
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("error shutting down tracing", "error", err)
		}
	}

	return nil
}

func setupTracing(cfg TracingConfig) (trace.TracerProvider, func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "":
		return nil, nil, nil
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(context.Background(), opts...)
	default:
		return nil, nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	return tp, tp.Shutdown, nil
}
