package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/database"
	"github.com/TuftsCTSI/gaiaCore/internal/etlmeta"
	"github.com/TuftsCTSI/gaiaCore/internal/ingest"
	"github.com/TuftsCTSI/gaiaCore/internal/metrics"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// MetadataStore reads dataset records and writes ingestion provenance back.
type MetadataStore interface {
	GetDataSource(ctx context.Context, id uuid.UUID) (*database.DataSource, error)
	FindDataSourceByName(ctx context.Context, name string) (*database.DataSource, error)
	MergeETLMetadata(ctx context.Context, id uuid.UUID, patch json.RawMessage) error
}

// Fetcher downloads a URL to a local path and extracts recognized archives in
// place.
type Fetcher interface {
	FetchAndExtract(ctx context.Context, downloadURL, destPath string, kind etlmeta.CompressionKind) (int64, error)
}

// Loader ingests a geospatial file into the sink under a target table.
type Loader interface {
	Load(ctx context.Context, filePath string, target ingest.Target) error
}

// Indexer creates a spatial index on an ingested table.
type Indexer interface {
	CreateSpatialIndex(ctx context.Context, target ingest.Target) error
}

// RunLog persists the step list of a finished run for later inspection.
type RunLog interface {
	Record(ctx context.Context, runID string, steps []Step) error
}

// =============================================================================
// RUNNER
// =============================================================================

// RunnerConfig carries the ingest defaults applied when a request leaves them
// unset.
type RunnerConfig struct {
	WorkDir        string
	DefaultSchema  string
	DefaultSRID    int
	GeometryColumn string
}

// DefaultRunnerConfig returns the standard defaults: a work directory under
// the system temp dir, the public schema, SRID 4326, and a geom column.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkDir:        filepath.Join(os.TempDir(), "gaiacore"),
		DefaultSchema:  ingest.DefaultSchema,
		DefaultSRID:    ingest.DefaultSRID,
		GeometryColumn: ingest.DefaultGeometryColumn,
	}
}

// Runner executes retrieval-and-ingestion runs against a fixed set of
// collaborators. Runs are synchronous and strictly sequential; concurrent runs
// against distinct datasets are safe because each derives its own download
// path.
type Runner struct {
	store     MetadataStore
	fetcher   Fetcher
	loader    Loader
	indexer   Indexer
	resolvers map[etlmeta.CompressionKind]PathResolver
	runLog    RunLog
	metrics   *metrics.Metrics
	cfg       RunnerConfig
	logger    *zap.Logger
}

// NewRunner creates a pipeline runner. A zero-value config field falls back to
// its default; a nil logger disables logging.
func NewRunner(store MetadataStore, fetcher Fetcher, loader Loader, indexer Indexer, cfg RunnerConfig, logger *zap.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	if cfg.WorkDir == "" {
		cfg.WorkDir = defaults.WorkDir
	}
	if cfg.DefaultSchema == "" {
		cfg.DefaultSchema = defaults.DefaultSchema
	}
	if cfg.DefaultSRID == 0 {
		cfg.DefaultSRID = defaults.DefaultSRID
	}
	if cfg.GeometryColumn == "" {
		cfg.GeometryColumn = defaults.GeometryColumn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:     store,
		fetcher:   fetcher,
		loader:    loader,
		indexer:   indexer,
		resolvers: DefaultPathResolvers(),
		cfg:       cfg,
		logger:    logger,
	}
}

// WithRunLog attaches a run log store. Recording failures are logged, never
// surfaced to the caller.
func (r *Runner) WithRunLog(runLog RunLog) *Runner {
	r.runLog = runLog
	return r
}

// WithMetrics attaches Prometheus collectors.
func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// WithPathResolvers replaces the ingest-path conventions, keyed by archive
// kind.
func (r *Runner) WithPathResolvers(resolvers map[etlmeta.CompressionKind]PathResolver) *Runner {
	r.resolvers = resolvers
	return r
}

// RunRequest parameterizes one pipeline run. Only DataSourceUUID is required.
type RunRequest struct {
	DataSourceUUID uuid.UUID

	// DownloadURL overrides the URL discovered in the metadata document and
	// re-derives the compression kind from its suffix.
	DownloadURL string

	TargetSchema string
	TargetTable  string
	WorkDir      string

	// KeepDownloaded, when explicitly false, requests removal of the
	// downloaded artifacts. Removal is advisory: the cleanup step reports
	// the path but does not delete it.
	KeepDownloaded *bool
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// Run executes the full pipeline for one dataset and returns the ordered step
// list. The list itself is the error channel: a failing step halts the run and
// later steps never appear. Run does not return an error.
func (r *Runner) Run(ctx context.Context, req RunRequest) []Step {
	runID := uuid.New().String()
	logger := r.logger.With(
		zap.String("run_id", runID),
		zap.String("data_source_uuid", req.DataSourceUUID.String()),
	)
	rec := &recorder{metrics: r.metrics}

	defer func() {
		r.metrics.RecordRun(outcomeOf(rec.steps))
		if r.runLog == nil {
			return
		}
		if err := r.runLog.Record(ctx, runID, rec.steps); err != nil {
			logger.Warn("failed to record run log", zap.Error(err))
		}
	}()

	// metadata_retrieval
	rec.progress(StepMetadataRetrieval, "resolving data source", nil)
	ds, err := r.store.GetDataSource(ctx, req.DataSourceUUID)
	if err != nil {
		rec.fail(StepMetadataRetrieval, CodeUnmapped, fmt.Errorf("failed to read data source: %w", err))
		return rec.steps
	}
	if ds == nil {
		rec.fail(StepMetadataRetrieval, CodeNotFound, fmt.Errorf("data source %s not found", req.DataSourceUUID))
		return rec.steps
	}
	logger = logger.With(zap.String("dataset_name", ds.DatasetName))
	rec.ok(StepMetadataRetrieval, fmt.Sprintf("resolved dataset %q", ds.DatasetName), map[string]any{
		"dataset_name": ds.DatasetName,
	})

	// etl_info_extraction
	rec.progress(StepETLInfoExtraction, "extracting download descriptor", nil)
	doc, err := ds.MetadataDoc()
	if err != nil {
		rec.fail(StepETLInfoExtraction, CodeUnmapped, err)
		return rec.steps
	}
	desc := etlmeta.Extract(doc)
	if req.DownloadURL != "" {
		override := req.DownloadURL
		desc.URL = &override
		desc.CompressionKind = etlmeta.InferCompressionKind(override)
	}
	if desc.URL == nil || *desc.URL == "" {
		rec.fail(StepETLInfoExtraction, CodeMissingURL, fmt.Errorf("no download URL for dataset %q", ds.DatasetName))
		return rec.steps
	}
	downloadURL := *desc.URL
	rec.ok(StepETLInfoExtraction, "download descriptor ready", map[string]any{
		"download_url":     downloadURL,
		"file_format":      desc.FileFormat,
		"compression_kind": string(desc.CompressionKind),
	})

	// download
	workDir := req.WorkDir
	if workDir == "" {
		workDir = r.cfg.WorkDir
	}
	destPath := filepath.Join(workDir, downloadFileName(downloadURL))
	rec.progress(StepDownload, fmt.Sprintf("downloading %s", downloadURL), map[string]any{
		"url":         downloadURL,
		"destination": destPath,
	})
	logger.Info("downloading dataset",
		zap.String("url", downloadURL),
		zap.String("destination", destPath),
	)
	bytes, err := r.fetcher.FetchAndExtract(ctx, downloadURL, destPath, desc.CompressionKind)
	if err != nil {
		rec.failFrom(StepDownload, err)
		return rec.steps
	}
	r.metrics.AddDownloadedBytes(bytes)
	rec.ok(StepDownload, fmt.Sprintf("downloaded %d bytes", bytes), map[string]any{
		"path":  destPath,
		"bytes": bytes,
	})

	// ingestion
	target := ingest.Target{
		Schema:         req.TargetSchema,
		Table:          req.TargetTable,
		GeometryColumn: r.cfg.GeometryColumn,
		SRID:           r.cfg.DefaultSRID,
		GeometryType:   etlmeta.GeometryTypeHint(doc),
	}
	if target.Schema == "" {
		target.Schema = r.cfg.DefaultSchema
	}
	if target.Table == "" {
		target.Table = ingest.NormalizeTableName(ds.DatasetName)
	}
	filePath := r.resolvePath(destPath, desc.CompressionKind)
	rec.progress(StepIngestion, fmt.Sprintf("loading %s into %s", filepath.Base(filePath), target.QualifiedName()), map[string]any{
		"file":   filePath,
		"schema": target.Schema,
		"table":  target.Table,
	})
	logger.Info("ingesting dataset",
		zap.String("file", filePath),
		zap.String("target", target.QualifiedName()),
	)
	if err := r.loader.Load(ctx, filePath, target); err != nil {
		rec.failFrom(StepIngestion, err)
		return rec.steps
	}
	rec.ok(StepIngestion, fmt.Sprintf("loaded into %s", target.QualifiedName()), map[string]any{
		"schema": target.Schema,
		"table":  target.Table,
	})

	// indexing
	rec.progress(StepIndexing, fmt.Sprintf("creating spatial index on %s", target.QualifiedName()), nil)
	if err := r.indexer.CreateSpatialIndex(ctx, target); err != nil {
		logger.Warn("spatial index creation failed", zap.Error(err))
		rec.add(StepIndexing, StatusWarning, fmt.Sprintf("failed to create spatial index: %v", err), map[string]any{
			"error_code": string(CodeIndexing),
		})
	} else {
		rec.ok(StepIndexing, "spatial index created", nil)
	}

	// cleanup
	if req.KeepDownloaded != nil && !*req.KeepDownloaded {
		rec.add(StepCleanup, StatusInfo, fmt.Sprintf("downloaded files retained; remove %s manually", destPath), map[string]any{
			"path": destPath,
		})
	}

	// complete
	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	patch, err := json.Marshal(map[string]any{
		"ingested_table": database.IngestedTable{
			Schema:     target.Schema,
			Table:      target.Table,
			IngestedAt: ingestedAt,
		},
	})
	if err != nil {
		rec.fail(StepComplete, CodeUnmapped, fmt.Errorf("failed to encode provenance: %w", err))
		return rec.steps
	}
	if err := r.store.MergeETLMetadata(ctx, ds.DataSourceUUID, patch); err != nil {
		rec.fail(StepComplete, CodeUnmapped, fmt.Errorf("failed to record provenance: %w", err))
		return rec.steps
	}
	logger.Info("pipeline run complete",
		zap.String("target", target.QualifiedName()),
		zap.Int64("bytes", bytes),
	)
	rec.ok(StepComplete, fmt.Sprintf("dataset %q ingested into %s", ds.DatasetName, target.QualifiedName()), map[string]any{
		"schema":      target.Schema,
		"table":       target.Table,
		"ingested_at": ingestedAt,
	})
	return rec.steps
}

// QuickIngest resolves a dataset by case-insensitive substring match on its
// name, then delegates to Run. The returned steps are narrowed to their
// quick-ingest shape.
func (r *Runner) QuickIngest(ctx context.Context, name, urlOverride string) []NarrowedStep {
	ds, err := r.store.FindDataSourceByName(ctx, name)
	if err != nil {
		return []NarrowedStep{{
			Step:    StepMetadataRetrieval,
			Status:  StatusError,
			Message: fmt.Sprintf("failed to resolve dataset by name: %v", err),
		}}
	}
	if ds == nil {
		return []NarrowedStep{{
			Step:    StepMetadataRetrieval,
			Status:  StatusError,
			Message: fmt.Sprintf("no dataset matching %q", name),
		}}
	}
	steps := r.Run(ctx, RunRequest{
		DataSourceUUID: ds.DataSourceUUID,
		DownloadURL:    urlOverride,
	})
	return Narrow(steps)
}

// resolvePath applies the ingest-path convention for the archive kind. An
// unrecognized kind ingests the downloaded path as-is.
func (r *Runner) resolvePath(archivePath string, kind etlmeta.CompressionKind) string {
	resolver, ok := r.resolvers[kind]
	if !ok {
		return archivePath
	}
	return resolver(archivePath)
}

// downloadFileName derives the local file name from the URL's final path
// segment.
func downloadFileName(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		name = u.Path
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		return "download"
	}
	return base
}

// outcomeOf reduces a step list to the run-level outcome label.
func outcomeOf(steps []Step) string {
	if len(steps) == 0 {
		return StatusError
	}
	if steps[len(steps)-1].Status == StatusError {
		return StatusError
	}
	return StatusSuccess
}

// =============================================================================
// STEP RECORDER
// =============================================================================

// recorder accumulates the step list and times each phase between its
// in_progress record and its terminal record.
type recorder struct {
	steps      []Step
	metrics    *metrics.Metrics
	phaseName  string
	phaseStart time.Time
}

func (rec *recorder) add(stepName, status, message string, details map[string]any) {
	if stepName == rec.phaseName && status != StatusInProgress {
		rec.metrics.RecordStepDuration(stepName, time.Since(rec.phaseStart).Seconds())
		rec.phaseName = ""
	}
	rec.steps = append(rec.steps, Step{
		StepName: stepName,
		Status:   status,
		Message:  message,
		Details:  details,
	})
}

func (rec *recorder) progress(stepName, message string, details map[string]any) {
	rec.phaseName = stepName
	rec.phaseStart = time.Now()
	rec.add(stepName, StatusInProgress, message, details)
}

func (rec *recorder) ok(stepName, message string, details map[string]any) {
	rec.add(stepName, StatusSuccess, message, details)
}

func (rec *recorder) fail(stepName string, code Code, err error) {
	rec.add(stepName, StatusError, err.Error(), map[string]any{
		"error_code": string(code),
	})
}

func (rec *recorder) failFrom(stepName string, err error) {
	rec.fail(stepName, CodeOf(err), err)
}
