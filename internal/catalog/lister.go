// Package catalog reports, per dataset, whether a download URL is known and
// whether ingestion has already occurred. Read-only; safe at any frequency.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/database"
	"github.com/TuftsCTSI/gaiaCore/internal/etlmeta"
)

// UnknownFileFormat is reported when the metadata document carries no
// encoding format.
const UnknownFileFormat = "unknown"

// Store lists dataset records.
type Store interface {
	ListDataSources(ctx context.Context) ([]*database.DataSource, error)
}

// Entry is one catalog row.
type Entry struct {
	DataSourceUUID  uuid.UUID `json:"data_source_uuid"`
	DatasetName     string    `json:"dataset_name"`
	HasDownloadURL  bool      `json:"has_download_url"`
	DownloadURL     *string   `json:"download_url"`
	FileFormat      string    `json:"file_format"`
	AlreadyIngested bool      `json:"already_ingested"`
	IngestedTable   *string   `json:"ingested_table"`
}

// Lister derives catalog entries from stored metadata documents.
type Lister struct {
	store  Store
	logger *zap.Logger
}

// NewLister creates a catalog lister. A nil logger disables logging.
func NewLister(store Store, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{store: store, logger: logger}
}

// List returns one entry per registered dataset, ordered the way the store
// lists them. A dataset with a malformed metadata document still yields an
// entry, with nothing derived from the document.
func (l *Lister) List(ctx context.Context) ([]Entry, error) {
	sources, err := l.store.ListDataSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}

	entries := make([]Entry, 0, len(sources))
	for _, ds := range sources {
		entry := Entry{
			DataSourceUUID: ds.DataSourceUUID,
			DatasetName:    ds.DatasetName,
			FileFormat:     UnknownFileFormat,
		}

		doc, err := ds.MetadataDoc()
		if err != nil {
			l.logger.Warn("malformed etl_metadata",
				zap.String("dataset_name", ds.DatasetName),
				zap.Error(err),
			)
			entries = append(entries, entry)
			continue
		}

		if url, ok := etlmeta.ResolveURL(doc); ok {
			entry.HasDownloadURL = true
			entry.DownloadURL = &url
		}
		if format, ok := doc["encodingFormat"].(string); ok && format != "" {
			entry.FileFormat = format
		}
		if it := database.IngestedTableOf(doc); it != nil {
			entry.AlreadyIngested = true
			qualified := it.Table
			if it.Schema != "" {
				qualified = it.Schema + "." + it.Table
			}
			entry.IngestedTable = &qualified
		}

		entries = append(entries, entry)
	}
	return entries, nil
}
