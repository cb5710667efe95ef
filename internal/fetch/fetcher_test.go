package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/artifact"
	"github.com/TuftsCTSI/gaiaCore/internal/etlmeta"
)

// fileDownloader copies canned bytes instead of hitting the network.
type fileDownloader struct {
	payload []byte
	err     error
}

func (d *fileDownloader) Download(ctx context.Context, url, destPath string) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	if err := os.WriteFile(destPath, d.payload, 0o644); err != nil {
		return 0, err
	}
	return int64(len(d.payload)), nil
}

func TestFetchAndExtractZip(t *testing.T) {
	staging := t.TempDir()
	zipPath := filepath.Join(staging, "seed.zip")
	writeZip(t, zipPath, map[string]string{"pm25.shp": "geometry"})
	payload, _ := os.ReadFile(zipPath)

	workDir := filepath.Join(t.TempDir(), "work", "pm25")
	destPath := filepath.Join(workDir, "pm25.zip")

	f := NewFetcher(&fileDownloader{payload: payload}, zap.NewNop())
	written, err := f.FetchAndExtract(context.Background(), "https://data.example.org/pm25.zip", destPath, etlmeta.CompressionZip)
	if err != nil {
		t.Fatalf("FetchAndExtract failed: %v", err)
	}
	if written != int64(len(payload)) {
		t.Fatalf("unexpected byte count: %d", written)
	}

	if _, err := os.Stat(filepath.Join(workDir, "pm25.shp")); err != nil {
		t.Fatalf("expected extracted shapefile: %v", err)
	}
	if _, err := os.Stat(destPath); err != nil {
		t.Fatalf("archive must be left in place: %v", err)
	}
}

func TestFetchAndExtractCreatesWorkDir(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "a", "b", "c", "file.bin")
	f := NewFetcher(&fileDownloader{payload: []byte("raw")}, zap.NewNop())

	if _, err := f.FetchAndExtract(context.Background(), "https://x/file.bin", destPath, etlmeta.CompressionNone); err != nil {
		t.Fatalf("FetchAndExtract failed: %v", err)
	}
	if _, err := os.Stat(destPath); err != nil {
		t.Fatalf("expected downloaded file: %v", err)
	}
}

func TestFetchAndExtractUnrecognizedKindIsNoop(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "file.7z")
	f := NewFetcher(&fileDownloader{payload: []byte("raw")}, zap.NewNop())

	if _, err := f.FetchAndExtract(context.Background(), "https://x/file.7z", destPath, etlmeta.CompressionKind("7z")); err != nil {
		t.Fatalf("unrecognized kind must not fail: %v", err)
	}
}

func TestFetchAndExtractDownloadFailure(t *testing.T) {
	wantErr := &DownloadError{URL: "https://x/file.zip", StatusCode: 503, Err: errors.New("unavailable")}
	f := NewFetcher(&fileDownloader{err: wantErr}, zap.NewNop())

	_, err := f.FetchAndExtract(context.Background(), "https://x/file.zip", filepath.Join(t.TempDir(), "file.zip"), etlmeta.CompressionZip)
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
}

func TestFetchAndExtractCorruptArchive(t *testing.T) {
	f := NewFetcher(&fileDownloader{payload: []byte("definitely not a zip")}, zap.NewNop())

	_, err := f.FetchAndExtract(context.Background(), "https://x/file.zip", filepath.Join(t.TempDir(), "file.zip"), etlmeta.CompressionZip)
	var exErr *ExtractError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
	if exErr.Kind != etlmeta.CompressionZip {
		t.Fatalf("unexpected kind: %s", exErr.Kind)
	}
}

func TestFetchAndExtractMirrorsArchive(t *testing.T) {
	store := artifact.NewLocalStore(t.TempDir())
	f := NewFetcher(&fileDownloader{payload: []byte("raw-archive")}, zap.NewNop()).
		WithMirror(store, "downloads")

	destPath := filepath.Join(t.TempDir(), "tracts.zip")
	if _, err := f.FetchAndExtract(context.Background(), "https://x/tracts.zip", destPath, etlmeta.CompressionNone); err != nil {
		t.Fatalf("FetchAndExtract failed: %v", err)
	}

	keys, err := store.List(context.Background(), "downloads", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one mirrored object, got %v", keys)
	}
	data, err := store.Get(context.Background(), "downloads", keys[0])
	if err != nil {
		t.Fatalf("Get mirrored object: %v", err)
	}
	if string(data) != "raw-archive" {
		t.Fatalf("unexpected mirrored payload: %s", data)
	}
}
