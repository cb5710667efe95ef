package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TuftsCTSI/gaiaCore/internal/etlmeta"
)

// ArchiveExtractor unpacks one archive kind into a directory.
type ArchiveExtractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// ExtractError reports a failed decompression.
type ExtractError struct {
	Kind etlmeta.CompressionKind
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s archive: %v", e.Kind, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// DefaultExtractors returns the extractor for every recognized kind.
func DefaultExtractors() map[etlmeta.CompressionKind]ArchiveExtractor {
	return map[etlmeta.CompressionKind]ArchiveExtractor{
		etlmeta.CompressionZip:   zipExtractor{},
		etlmeta.CompressionTar:   tarExtractor{},
		etlmeta.CompressionTarGz: tarExtractor{gzipped: true},
	}
}

// zipExtractor extracts every entry of a zip archive into destDir.
type zipExtractor struct{}

func (zipExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := entryPath(destDir, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("failed to open entry %s: %w", entry.Name, err)
		}
		err = writeEntry(target, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// tarExtractor extracts a tar stream, optionally gzip-compressed, into destDir.
type tarExtractor struct {
	gzipped bool
}

func (t tarExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var stream io.Reader = file
	if t.gzipped {
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		stream = gzr
	}

	tr := tar.NewReader(stream)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target, err := entryPath(destDir, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		}
	}
	return nil
}

// entryPath joins an archive entry name onto destDir, rejecting entries that
// would escape it.
func entryPath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func writeEntry(target string, src io.Reader) error {
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}
