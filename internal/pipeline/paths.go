package pipeline

import (
	"strings"

	"github.com/TuftsCTSI/gaiaCore/internal/etlmeta"
)

// PathResolver derives the path of the file to ingest from the path the
// archive was downloaded to. Resolution is purely conventional; nothing
// inspects the extracted directory.
type PathResolver func(archivePath string) string

// DefaultPathResolvers returns the ingest-path conventions for each archive
// kind: zip archives of shapefiles extract to a same-named .shp, tar-family
// archives extract to the archive path with its compression suffix stripped,
// and uncompressed downloads are ingested as-is.
func DefaultPathResolvers() map[etlmeta.CompressionKind]PathResolver {
	return map[etlmeta.CompressionKind]PathResolver{
		etlmeta.CompressionNone: func(archivePath string) string {
			return archivePath
		},
		etlmeta.CompressionZip: func(archivePath string) string {
			return trimSuffixFold(archivePath, ".zip") + ".shp"
		},
		etlmeta.CompressionTar: func(archivePath string) string {
			return trimSuffixFold(archivePath, ".tar")
		},
		etlmeta.CompressionTarGz: func(archivePath string) string {
			for _, suffix := range []string{".tar.gz", ".tgz", ".gz"} {
				if trimmed := trimSuffixFold(archivePath, suffix); trimmed != archivePath {
					return trimmed
				}
			}
			return archivePath
		},
	}
}

// trimSuffixFold strips suffix case-insensitively, returning the path
// unchanged when it does not match.
func trimSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}
