package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/artifact"
	"github.com/TuftsCTSI/gaiaCore/internal/etlmeta"
)

// Fetcher downloads an artifact and unpacks it when its compression kind is
// recognized. The archive itself is left in place; cleanup is the pipeline's
// concern, not the fetcher's.
type Fetcher struct {
	downloader Downloader
	extractors map[etlmeta.CompressionKind]ArchiveExtractor
	mirror     artifact.Store
	bucket     string
	logger     *zap.Logger
}

// NewFetcher creates a fetcher with the default extractor set.
func NewFetcher(downloader Downloader, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		downloader: downloader,
		extractors: DefaultExtractors(),
		logger:     logger,
	}
}

// WithMirror enables best-effort archival of raw downloads to an object store.
func (f *Fetcher) WithMirror(store artifact.Store, bucket string) *Fetcher {
	f.mirror = store
	f.bucket = bucket
	return f
}

// WithExtractors replaces the extractor table, keyed by compression kind.
func (f *Fetcher) WithExtractors(extractors map[etlmeta.CompressionKind]ArchiveExtractor) *Fetcher {
	f.extractors = extractors
	return f
}

// FetchAndExtract downloads url to destPath, creating the parent directory,
// then extracts recognized archives into that directory. Returns the bytes
// transferred. An unrecognized non-empty kind logs a warning and skips
// extraction; it is not an error.
func (f *Fetcher) FetchAndExtract(ctx context.Context, url, destPath string, kind etlmeta.CompressionKind) (int64, error) {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, &DownloadError{URL: url, Err: fmt.Errorf("failed to create work directory: %w", err)}
	}

	written, err := f.downloader.Download(ctx, url, destPath)
	if err != nil {
		return 0, err
	}
	f.logger.Info("downloaded artifact",
		zap.String("url", url),
		zap.String("path", destPath),
		zap.Int64("bytes", written))

	f.mirrorArchive(ctx, destPath)

	if kind == "" || kind == etlmeta.CompressionNone {
		return written, nil
	}
	extractor, ok := f.extractors[kind]
	if !ok {
		f.logger.Warn("unrecognized compression kind; skipping extraction",
			zap.String("kind", string(kind)),
			zap.String("path", destPath))
		return written, nil
	}
	if err := extractor.Extract(ctx, destPath, destDir); err != nil {
		return written, &ExtractError{Kind: kind, Err: err}
	}
	f.logger.Info("extracted archive",
		zap.String("kind", string(kind)),
		zap.String("dir", destDir))
	return written, nil
}

// mirrorArchive copies the raw download into the object store for provenance.
// Failures are logged, never surfaced: the pipeline must not fail because an
// archive copy did.
func (f *Fetcher) mirrorArchive(ctx context.Context, archivePath string) {
	if f.mirror == nil {
		return
	}
	data, err := os.ReadFile(archivePath)
	if err != nil {
		f.logger.Warn("failed to read archive for mirroring", zap.Error(err))
		return
	}
	key := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006-01-02"), filepath.Base(archivePath))
	if err := f.mirror.Put(ctx, f.bucket, key, data); err != nil {
		f.logger.Warn("failed to mirror archive",
			zap.String("bucket", f.bucket),
			zap.String("key", key),
			zap.Error(err))
		return
	}
	f.logger.Info("mirrored archive", zap.String("bucket", f.bucket), zap.String("key", key))
}
