// Package ingest loads geospatial files into the PostGIS sink and maintains
// spatial indexes on the loaded tables. Loading shells out to GDAL's ogr2ogr;
// index DDL runs over a pgx pool.
package ingest

import "strings"

// Sink defaults shared by every load.
const (
	DefaultSchema         = "public"
	DefaultGeometryColumn = "geom"
	DefaultSRID           = 4326

	// SurrogateKeyColumn is the fixed primary-key column assigned to every
	// ingested table.
	SurrogateKeyColumn = "gid"
)

// maxIdentifierLen is PostgreSQL's identifier byte limit.
const maxIdentifierLen = 63

// Target identifies where and how a spatial file is loaded.
type Target struct {
	Schema         string
	Table          string
	GeometryColumn string
	SRID           int

	// GeometryType constrains the load when set; empty lets the sink infer
	// the type from the source file.
	GeometryType string
}

// QualifiedName returns schema.table, or the bare table when the schema is
// the default.
func (t Target) QualifiedName() string {
	if t.Schema == "" || t.Schema == DefaultSchema {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// quotedName returns the identifier-quoted form for SQL statements.
func (t Target) quotedName() string {
	if t.Schema == "" || t.Schema == DefaultSchema {
		return quoteIdent(t.Table)
	}
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Table)
}

// NormalizeTableName converts a dataset name into a sink-safe identifier:
// lowercased, every run of non-alphanumerics collapsed to a single
// underscore, trimmed, and truncated to the identifier limit.
func NormalizeTableName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxIdentifierLen {
		out = strings.TrimRight(out[:maxIdentifierLen], "_")
	}
	return out
}

// quoteIdent double-quotes an identifier for DDL.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
