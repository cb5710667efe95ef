// Package metaload fetches dataset metadata documents over HTTP and registers
// them in the backbone store.
package metaload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/database"
)

// Store upserts dataset records by name.
type Store interface {
	UpsertDataSourceByName(ctx context.Context, datasetName string, metadata json.RawMessage) (*database.DataSource, error)
}

// Loader retrieves JSON-LD documents and loads them as dataset records.
type Loader struct {
	store  Store
	client *http.Client
	logger *zap.Logger
}

// NewLoader creates a metadata loader with a 30 second fetch timeout. A nil
// logger disables logging.
func NewLoader(store Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// WithHTTPClient replaces the fetch client.
func (l *Loader) WithHTTPClient(client *http.Client) *Loader {
	l.client = client
	return l
}

// FetchAndLoad retrieves the document at docURL and upserts a dataset record
// named after it. The dataset name is taken from the document's name field,
// then its title, then the URL's file name; the raw document becomes the
// record's etl_metadata.
func (l *Loader) FetchAndLoad(ctx context.Context, docURL string) (*database.DataSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/ld+json, application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch metadata document: unexpected status %d from %s", resp.StatusCode, docURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata document: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata document: %w", err)
	}

	name := datasetName(doc, docURL)
	if name == "" {
		return nil, fmt.Errorf("metadata document at %s has no usable dataset name", docURL)
	}

	ds, err := l.store.UpsertDataSourceByName(ctx, name, json.RawMessage(body))
	if err != nil {
		return nil, err
	}
	l.logger.Info("loaded metadata document",
		zap.String("dataset_name", ds.DatasetName),
		zap.String("data_source_uuid", ds.DataSourceUUID.String()),
		zap.String("url", docURL),
	)
	return ds, nil
}

// datasetName derives the record name: document name, then title, then the
// URL's file name without its extension.
func datasetName(doc map[string]any, docURL string) string {
	if name, ok := doc["name"].(string); ok && name != "" {
		return name
	}
	if title, ok := doc["title"].(string); ok && title != "" {
		return title
	}

	candidate := docURL
	if u, err := url.Parse(docURL); err == nil && u.Path != "" {
		candidate = u.Path
	}
	base := path.Base(candidate)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
