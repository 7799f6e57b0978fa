// Command indexsvc starts the index service: the HTTP API plus the job
// pipeline (queue monitor, worker pool, search backend pools) in one
// process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techresidents/indexsvc/internal/adapter/httpserver"
	"github.com/techresidents/indexsvc/internal/adapter/queue/dbqueue"
	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/adapter/search/es"
	"github.com/techresidents/indexsvc/internal/app"
	"github.com/techresidents/indexsvc/internal/config"
	"github.com/techresidents/indexsvc/internal/document"
	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/indexer"
	"github.com/techresidents/indexsvc/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	jobRepo := postgres.NewJobRepo(pool)

	// One client serves readiness; the pool serves the indexers.
	probe, err := es.NewClient(cfg.ESEndpoint)
	if err != nil {
		slog.Error("search backend client failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := probe.WaitReady(ctx, 30*time.Second); err != nil {
		slog.Warn("search backend not reachable at startup", slog.Any("error", err))
	}
	clientPool, err := es.NewPool(cfg.ESPoolSize, func() (domain.IndexClient, error) {
		return es.NewClient(cfg.ESEndpoint)
	})
	if err != nil {
		slog.Error("search backend pool failed", slog.Any("error", err))
		os.Exit(1)
	}

	registry := document.NewRegistry(pool)
	esIndexer := indexer.NewESIndexer(clientPool, registry, cfg.ESBulkFlushThreshold, logger)

	coordPool, err := indexer.NewCoordinatorPool(cfg.IndexerPoolSize, func() *indexer.Coordinator {
		return indexer.NewCoordinator(jobRepo, esIndexer, cfg.IndexerJobRetryDelay, logger)
	})
	if err != nil {
		slog.Error("coordinator pool failed", slog.Any("error", err))
		os.Exit(1)
	}

	queue := dbqueue.New(jobRepo, cfg.IndexerPollInterval, cfg.QueueFetchLimit, logger)
	threadPool := indexer.NewThreadPool(cfg.IndexerThreads, coordPool, queue, logger)
	monitor := dbqueue.NewMonitor(queue, threadPool, logger)

	threadPool.Start()
	queue.Start()
	monitor.Start()
	slog.Info("job pipeline started",
		slog.Int("workers", cfg.IndexerThreads),
		slog.Duration("poll_interval", cfg.IndexerPollInterval),
		slog.String("owner", queue.Owner()))

	dbCheck, esCheck := app.BuildReadinessChecks(pool, probe)
	srv := httpserver.NewServer(cfg, jobRepo, dbCheck, esCheck)
	handler := app.BuildRouter(cfg, srv)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	go func() {
		slog.Info("http server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")

	// Stop intake first, then drain the pipeline: monitor, workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
	monitor.Stop()
	if !monitor.Join(cfg.ServerShutdownTimeout) {
		slog.Warn("monitor did not exit in time")
	}
	threadPool.Stop()
	slog.Info("shutdown complete")
}
