// Package etlmeta derives download and ingestion hints from a dataset's
// etl_metadata document. Documents arrive in several historical shapes, so
// every probe here is tolerant: absent or malformed fields yield zero values,
// never errors.
package etlmeta

import "strings"

// CompressionKind identifies how a downloaded artifact is compressed.
type CompressionKind string

const (
	CompressionNone  CompressionKind = "none"
	CompressionZip   CompressionKind = "zip"
	CompressionTar   CompressionKind = "tar"
	CompressionTarGz CompressionKind = "tar.gz"
)

// DefaultFileFormat is assumed when a document carries no encodingFormat.
const DefaultFileFormat = "shapefile"

// DownloadDescriptor carries everything derivable from an etl_metadata
// document ahead of a retrieval run. URL and Notes are nil when the document
// does not provide them.
type DownloadDescriptor struct {
	URL             *string
	FileFormat      string
	CompressionKind CompressionKind
	Notes           *string
}

// InferCompressionKind maps a download URL's suffix to a compression kind.
// Unrecognized suffixes mean the artifact is used as downloaded.
func InferCompressionKind(url string) CompressionKind {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return CompressionZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return CompressionTarGz
	case strings.HasSuffix(lower, ".tar"):
		return CompressionTar
	default:
		return CompressionNone
	}
}
