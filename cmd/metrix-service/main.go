// Command metrix-service runs the MetriX benchmark harness: the Run API,
// the per-run execution engine, and the observability surface, all wired
// from a single TOML configuration file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/forkadarshp/metrix/internal/adapter/deepgram"
	"github.com/forkadarshp/metrix/internal/adapter/elevenlabs"
	"github.com/forkadarshp/metrix/internal/adapter/googlestt"
	"github.com/forkadarshp/metrix/internal/adapter/mockvendor"
	"github.com/forkadarshp/metrix/internal/adapter/openai"
	"github.com/forkadarshp/metrix/internal/aggregation"
	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/config"
	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/engine"
	"github.com/forkadarshp/metrix/internal/httpapi"
	"github.com/forkadarshp/metrix/internal/observability"
	"github.com/forkadarshp/metrix/internal/repository"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "metrix-service-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		if closeErr := finalLog.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	repo, err := repository.Open(cfg.Storage.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	store, err := buildArtifactStore(cfg)
	if err != nil {
		return fmt.Errorf("build artifact store: %w", err)
	}

	registry := buildRegistry(cfg)

	events := engine.NewEventPublisher(cfg.Events, log)
	defer events.Close()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	eng := engine.New(
		registry,
		repo,
		store,
		events,
		metrics,
		log,
		cfg.Concurrency.WorkersPerRun,
		cfg.Concurrency.DefaultSynthVendor,
		cfg.Concurrency.DefaultEvaluatorVendor,
	)

	agg := aggregation.New(repo, cfg.Aggregation.LookbackWindowDays)

	router := httpapi.NewRouter(eng, repo, store, agg)

	runServer := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	obsServer := observability.NewServer(cfg.Server.ObservabilityAddress, log)
	obsServer.Start()

	serverErrs := make(chan error, 1)

	go func() {
		log.System("Run API listening on %s", cfg.Server.ListenAddress)

		if err := runServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- fmt.Errorf("run api server: %w", err)

			return
		}

		serverErrs <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		return err
	case sig := <-sigCh:
		log.Info("received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := runServer.Shutdown(shutdownCtx); err != nil {
		log.Error("run api server shutdown: %v", err)
	}

	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("observability server shutdown: %v", err)
	}

	return nil
}

// buildArtifactStore selects the local-disk or NATS JetStream object-store
// backend per config.StorageConfig.Backend.
func buildArtifactStore(cfg *config.Config) (artifact.Store, error) {
	if cfg.Storage.Backend != "nats" {
		store, err := artifact.NewLocalStore(cfg.Storage.ArtifactRoot)
		if err != nil {
			return nil, fmt.Errorf("new local store: %w", err)
		}

		return store, nil
	}

	conn, err := nats.Connect(cfg.Storage.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	jetstreamContext, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	store, err := artifact.NewNATSStore(jetstreamContext, cfg.Storage.NATSBucket)
	if err != nil {
		return nil, fmt.Errorf("new nats store: %w", err)
	}

	return store, nil
}

// buildRegistry registers every vendor adapter the config carries
// credentials for, plus the always-available mockvendor used by local
// development and tests.
func buildRegistry(cfg *config.Config) *core.Registry {
	registry := core.NewRegistry()

	if vc, ok := cfg.Vendors["openai"]; ok {
		adapter := openai.New(vc.APIKey, vc.BaseURL, timeoutOf(vc))
		registry.RegisterSynthesizer("openai", adapter, adapter)
	}

	if vc, ok := cfg.Vendors["elevenlabs"]; ok {
		adapter := elevenlabs.New(vc.APIKey, vc.BaseURL, timeoutOf(vc))
		registry.RegisterSynthesizer("elevenlabs", adapter, adapter)
	}

	if vc, ok := cfg.Vendors["deepgram"]; ok {
		adapter := deepgram.New(vc.APIKey, vc.BaseURL, timeoutOf(vc))
		registry.RegisterTranscriber("deepgram", adapter, adapter)
	}

	if vc, ok := cfg.Vendors["googlestt"]; ok {
		adapter := googlestt.New(vc.APIKey, vc.BaseURL, timeoutOf(vc))
		registry.RegisterTranscriber("googlestt", adapter, adapter)
	}

	mock := mockvendor.New()
	registry.RegisterSynthesizer("mockvendor", mock, mock)
	registry.RegisterTranscriber("mockvendor", mock, mock)

	return registry
}

func timeoutOf(vc config.VendorConfig) time.Duration {
	if vc.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}

	return time.Duration(vc.TimeoutSeconds) * time.Second
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service exited with error: %v\n", err)
		os.Exit(1)
	}
}
