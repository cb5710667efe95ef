package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// SpatialLoader loads a geospatial file into the sink under a target.
type SpatialLoader interface {
	Load(ctx context.Context, filePath string, target Target) error
}

// LoadError carries the load tool's raw diagnostics for a failed load.
type LoadError struct {
	Output string
	Err    error
}

func (e *LoadError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("spatial load failed: %v", e.Err)
	}
	return fmt.Sprintf("spatial load failed: %v: %s", e.Err, out)
}

func (e *LoadError) Unwrap() error { return e.Err }

// OGRLoader shells out to GDAL's ogr2ogr. The subprocess boundary keeps
// format handling (shapefile, GeoJSON, geopackage, ...) out of this codebase.
type OGRLoader struct {
	binary string
	dsn    string
	logger *zap.Logger
}

var _ SpatialLoader = (*OGRLoader)(nil)

// NewOGRLoader creates a loader that writes into the PostGIS database at dsn.
// binary defaults to "ogr2ogr" on PATH.
func NewOGRLoader(binary, dsn string, logger *zap.Logger) *OGRLoader {
	if binary == "" {
		binary = "ogr2ogr"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OGRLoader{binary: binary, dsn: dsn, logger: logger}
}

// Load imports filePath into target, reprojecting to the target SRID and
// assigning the fixed surrogate key column. A non-zero exit surfaces as a
// LoadError with the tool's combined output attached verbatim.
func (l *OGRLoader) Load(ctx context.Context, filePath string, target Target) error {
	args := loaderArgs(l.dsn, filePath, target)

	l.logger.Info("loading spatial file",
		zap.String("file", filePath),
		zap.String("target", target.QualifiedName()),
		zap.Int("srid", target.SRID),
		zap.String("geometry_type", target.GeometryType))

	cmd := exec.CommandContext(ctx, l.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &LoadError{Output: string(output), Err: err}
	}
	return nil
}

// loaderArgs builds the ogr2ogr invocation for one load.
func loaderArgs(dsn, filePath string, target Target) []string {
	args := []string{
		"-f", "PostgreSQL",
		"PG:" + dsn,
		filePath,
		"-nln", target.QualifiedName(),
		"-lco", "GEOMETRY_NAME=" + target.GeometryColumn,
		"-lco", "FID=" + SurrogateKeyColumn,
		"-t_srs", fmt.Sprintf("EPSG:%d", target.SRID),
		"-overwrite",
	}
	if target.GeometryType != "" {
		args = append(args, "-nlt", target.GeometryType)
	}
	return args
}
