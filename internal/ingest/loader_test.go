package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestLoaderArgs(t *testing.T) {
	target := Target{
		Schema:         "working",
		Table:          "census_tracts",
		GeometryColumn: "geom",
		SRID:           4326,
		GeometryType:   "MULTIPOLYGON",
	}
	args := loaderArgs("dbname=gis", "/work/tracts.shp", target)
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f PostgreSQL",
		"PG:dbname=gis",
		"/work/tracts.shp",
		"-nln working.census_tracts",
		"-lco GEOMETRY_NAME=geom",
		"-lco FID=gid",
		"-t_srs EPSG:4326",
		"-overwrite",
		"-nlt MULTIPOLYGON",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestLoaderArgsOmitsGeometryTypeWhenUnset(t *testing.T) {
	target := Target{Schema: "public", Table: "roads", GeometryColumn: "geom", SRID: 4326}
	args := loaderArgs("dbname=gis", "/work/roads.shp", target)
	joined := strings.Join(args, " ")

	if strings.Contains(joined, "-nlt") {
		t.Fatalf("unset geometry type must not constrain the load: %s", joined)
	}
	if !strings.Contains(joined, "-nln roads") {
		t.Fatalf("default schema must use the bare table name: %s", joined)
	}
}

func TestLoadErrorKeepsDiagnostics(t *testing.T) {
	err := &LoadError{Output: "ERROR 1: Unable to open datasource", Err: errors.New("exit status 1")}
	msg := err.Error()
	if !strings.Contains(msg, "Unable to open datasource") {
		t.Fatalf("raw diagnostics missing from error: %s", msg)
	}
	if !strings.Contains(msg, "exit status 1") {
		t.Fatalf("underlying error missing: %s", msg)
	}
}

func TestNewOGRLoaderDefaults(t *testing.T) {
	l := NewOGRLoader("", "dbname=gis", nil)
	if l.binary != "ogr2ogr" {
		t.Fatalf("expected default binary, got %s", l.binary)
	}
}
