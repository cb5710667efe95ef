package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Indexer creates spatial indexes on newly loaded tables.
type Indexer interface {
	CreateSpatialIndex(ctx context.Context, target Target) error
}

// IndexError reports a failed index build. The pipeline treats it as a
// warning, never a run failure.
type IndexError struct {
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("spatial index failed: %v", e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// PostGISIndexer runs GIST index DDL through a pgx pool on the sink database.
type PostGISIndexer struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ Indexer = (*PostGISIndexer)(nil)

// NewPostGISIndexer creates an indexer over the given sink pool.
func NewPostGISIndexer(db *pgxpool.Pool, logger *zap.Logger) *PostGISIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostGISIndexer{db: db, logger: logger}
}

// CreateSpatialIndex builds a GIST index on the target's geometry column.
func (ix *PostGISIndexer) CreateSpatialIndex(ctx context.Context, target Target) error {
	indexName := fmt.Sprintf("%s_%s_idx", target.Table, target.GeometryColumn)
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (%s)",
		quoteIdent(indexName), target.quotedName(), quoteIdent(target.GeometryColumn))

	ix.logger.Info("creating spatial index",
		zap.String("index", indexName),
		zap.String("table", target.QualifiedName()))

	if _, err := ix.db.Exec(ctx, stmt); err != nil {
		return &IndexError{Err: err}
	}
	return nil
}
