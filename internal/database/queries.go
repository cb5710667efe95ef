package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// DATA SOURCE QUERIES
// =============================================================================

const dataSourceColumns = `data_source_uuid, dataset_name, etl_metadata, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataSource(row rowScanner) (*DataSource, error) {
	var ds DataSource
	var metadata sql.NullString
	err := row.Scan(
		&ds.DataSourceUUID,
		&ds.DatasetName,
		&metadata,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		ds.ETLMetadata = json.RawMessage(metadata.String)
	}
	return &ds, nil
}

// GetDataSource retrieves a data source by UUID. Returns nil if not found.
func (c *Client) GetDataSource(ctx context.Context, id uuid.UUID) (*DataSource, error) {
	query := `
		SELECT ` + dataSourceColumns + `
		FROM backbone.data_source
		WHERE data_source_uuid = $1`

	ds, err := scanDataSource(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}
	return ds, nil
}

// FindDataSourceByName retrieves the first data source whose dataset name
// contains the given fragment, case-insensitively. Returns nil if no dataset
// matches.
func (c *Client) FindDataSourceByName(ctx context.Context, name string) (*DataSource, error) {
	query := `
		SELECT ` + dataSourceColumns + `
		FROM backbone.data_source
		WHERE dataset_name ILIKE '%' || $1 || '%'
		ORDER BY dataset_name
		LIMIT 1`

	ds, err := scanDataSource(c.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find data source by name: %w", err)
	}
	return ds, nil
}

// ListDataSources retrieves all registered data sources ordered by name.
func (c *Client) ListDataSources(ctx context.Context) ([]*DataSource, error) {
	query := `
		SELECT ` + dataSourceColumns + `
		FROM backbone.data_source
		ORDER BY dataset_name`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var sources []*DataSource
	for rows.Next() {
		ds, err := scanDataSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate data sources: %w", err)
	}
	return sources, nil
}

// UpsertDataSourceByName registers a data source, replacing the metadata
// document when a dataset of the same name already exists.
func (c *Client) UpsertDataSourceByName(ctx context.Context, datasetName string, metadata json.RawMessage) (*DataSource, error) {
	query := `
		INSERT INTO backbone.data_source (data_source_uuid, dataset_name, etl_metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (dataset_name) DO UPDATE SET
			etl_metadata = EXCLUDED.etl_metadata,
			updated_at = NOW()
		RETURNING ` + dataSourceColumns

	ds, err := scanDataSource(c.db.QueryRowContext(ctx, query, uuid.New(), datasetName, nullableJSON(metadata)))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert data source: %w", err)
	}
	return ds, nil
}

// MergeETLMetadata merges the given JSON object into a data source's
// etl_metadata in a single statement, preserving unrelated keys. A NULL
// column is treated as an empty object.
func (c *Client) MergeETLMetadata(ctx context.Context, id uuid.UUID, patch json.RawMessage) error {
	query := `
		UPDATE backbone.data_source
		SET etl_metadata = COALESCE(etl_metadata, '{}'::jsonb) || $2::jsonb,
			updated_at = NOW()
		WHERE data_source_uuid = $1`

	result, err := c.db.ExecContext(ctx, query, id, string(patch))
	if err != nil {
		return fmt.Errorf("failed to merge etl_metadata: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check merge result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("data source %s not found", id)
	}
	return nil
}

// nullableJSON converts an empty metadata document to SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
