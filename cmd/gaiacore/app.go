package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/artifact"
	"github.com/TuftsCTSI/gaiaCore/internal/catalog"
	"github.com/TuftsCTSI/gaiaCore/internal/config"
	"github.com/TuftsCTSI/gaiaCore/internal/database"
	"github.com/TuftsCTSI/gaiaCore/internal/fetch"
	"github.com/TuftsCTSI/gaiaCore/internal/ingest"
	"github.com/TuftsCTSI/gaiaCore/internal/metaload"
	"github.com/TuftsCTSI/gaiaCore/internal/metrics"
	"github.com/TuftsCTSI/gaiaCore/internal/pipeline"
	"github.com/TuftsCTSI/gaiaCore/pkg/runlog"
)

// app wires the service's collaborators from configuration.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.Client
	pool   *pgxpool.Pool
	runner *pipeline.Runner
	lister *catalog.Lister
	loader *metaload.Loader
	runLog *runlog.Store
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := database.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	downloader := fetch.NewHTTPDownloader(&fetch.DownloaderConfig{
		Timeout:     cfg.DownloadTimeout(),
		MaxAttempts: cfg.DownloadMaxAttempts,
		RateLimit:   cfg.DownloadRateLimit,
		RateBurst:   cfg.DownloadRateBurst,
	})
	fetcher := fetch.NewFetcher(downloader, logger)

	var store artifact.Store
	if cfg.RunLogEnabled || cfg.MirrorEnabled {
		store, err = artifact.NewStore(artifact.Config{
			EndpointURL:     cfg.S3EndpointURL,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			UseSSL:          cfg.S3UseSSL,
			LocalDir:        cfg.ArtifactLocalDir,
		})
		if err != nil {
			pool.Close()
			db.Close()
			return nil, err
		}
	}
	if cfg.MirrorEnabled {
		if err := store.EnsureBucket(ctx, cfg.MirrorBucket); err != nil {
			pool.Close()
			db.Close()
			return nil, fmt.Errorf("failed to prepare mirror bucket: %w", err)
		}
		fetcher = fetcher.WithMirror(store, cfg.MirrorBucket)
	}

	loader := ingest.NewOGRLoader(cfg.OGRBinary, cfg.SinkDSN, logger)
	indexer := ingest.NewPostGISIndexer(pool, logger)

	runner := pipeline.NewRunner(db, fetcher, loader, indexer, pipeline.RunnerConfig{
		WorkDir:        cfg.WorkDir,
		DefaultSchema:  cfg.DefaultSchema,
		DefaultSRID:    cfg.DefaultSRID,
		GeometryColumn: cfg.GeometryColumn,
	}, logger).WithMetrics(metrics.New(prometheus.DefaultRegisterer))

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		pool:   pool,
		runner: runner,
		lister: catalog.NewLister(db, logger),
		loader: metaload.NewLoader(db, logger),
	}
	if cfg.RunLogEnabled {
		a.runLog = runlog.NewStore(store, cfg.RunLogBucket, cfg.RunLogPrefix)
		a.runner = runner.WithRunLog(a.runLog)
	}
	return a, nil
}

func (a *app) Close() {
	a.pool.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
