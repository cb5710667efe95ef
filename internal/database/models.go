// Package database provides the PostgreSQL client and data access for the
// backbone metadata store.
package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DataSource is one row of backbone.data_source: a described external dataset
// and, after ingestion, its provenance.
type DataSource struct {
	DataSourceUUID uuid.UUID       `json:"data_source_uuid"`
	DatasetName    string          `json:"dataset_name"`
	ETLMetadata    json.RawMessage `json:"etl_metadata"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MetadataDoc parses the raw etl_metadata column into a generic tree. A NULL
// or empty column yields a nil map, not an error.
func (d *DataSource) MetadataDoc() (map[string]any, error) {
	if len(d.ETLMetadata) == 0 {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(d.ETLMetadata, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse etl_metadata for %s: %w", d.DataSourceUUID, err)
	}
	return doc, nil
}

// IngestedTable is the provenance sub-object merged into etl_metadata after a
// successful ingestion.
type IngestedTable struct {
	Schema     string `json:"schema"`
	Table      string `json:"table"`
	IngestedAt string `json:"ingested_at"`
}

// IngestedTableOf reads the ingested_table sub-object from a parsed document,
// or nil when the dataset has never been ingested.
func IngestedTableOf(doc map[string]any) *IngestedTable {
	raw, ok := doc["ingested_table"].(map[string]any)
	if !ok {
		return nil
	}
	out := &IngestedTable{}
	out.Schema, _ = raw["schema"].(string)
	out.Table, _ = raw["table"].(string)
	out.IngestedAt, _ = raw["ingested_at"].(string)
	return out
}
