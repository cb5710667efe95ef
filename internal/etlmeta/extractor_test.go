package etlmeta

import "testing"

func TestExtractPotentialActionURL(t *testing.T) {
	doc := map[string]any{
		"potentialAction": map[string]any{
			"object": map[string]any{
				"url": "https://data.example.org/pm25.zip",
			},
		},
		"distribution": []any{"https://data.example.org/ignored.tar.gz"},
	}

	desc := Extract(doc)
	if desc.URL == nil {
		t.Fatal("expected a URL")
	}
	if *desc.URL != "https://data.example.org/pm25.zip" {
		t.Fatalf("potentialAction should win over distribution, got %s", *desc.URL)
	}
	if desc.CompressionKind != CompressionZip {
		t.Fatalf("expected zip, got %s", desc.CompressionKind)
	}
}

func TestExtractDistributionFallback(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		want string
	}{
		{
			name: "bare string entry",
			doc: map[string]any{
				"distribution": []any{"https://data.example.org/tracts.tar.gz"},
			},
			want: "https://data.example.org/tracts.tar.gz",
		},
		{
			name: "contentUrl object entry",
			doc: map[string]any{
				"distribution": []any{
					map[string]any{"contentUrl": "https://data.example.org/tracts.shp"},
				},
			},
			want: "https://data.example.org/tracts.shp",
		},
		{
			name: "url object entry",
			doc: map[string]any{
				"distribution": []any{
					map[string]any{"url": "https://data.example.org/tracts.shp"},
				},
			},
			want: "https://data.example.org/tracts.shp",
		},
		{
			name: "single object distribution",
			doc: map[string]any{
				"distribution": map[string]any{"contentUrl": "https://data.example.org/grid.tif"},
			},
			want: "https://data.example.org/grid.tif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Extract(tt.doc)
			if desc.URL == nil {
				t.Fatal("expected a URL")
			}
			if *desc.URL != tt.want {
				t.Fatalf("got %s, want %s", *desc.URL, tt.want)
			}
		})
	}
}

func TestExtractNoURL(t *testing.T) {
	docs := []map[string]any{
		nil,
		{},
		{"name": "orphan dataset"},
		{"distribution": []any{}},
		{"potentialAction": map[string]any{"object": map[string]any{}}},
	}
	for _, doc := range docs {
		desc := Extract(doc)
		if desc.URL != nil {
			t.Fatalf("expected nil URL for %v, got %s", doc, *desc.URL)
		}
		if desc.FileFormat != DefaultFileFormat {
			t.Fatalf("expected default format, got %s", desc.FileFormat)
		}
		if desc.CompressionKind != CompressionNone {
			t.Fatalf("expected no compression, got %s", desc.CompressionKind)
		}
	}
}

func TestExtractFormatAndNotes(t *testing.T) {
	doc := map[string]any{
		"encodingFormat": "geotiff",
		"description":    "Annual surface concentrations.",
	}
	desc := Extract(doc)
	if desc.FileFormat != "geotiff" {
		t.Fatalf("expected geotiff, got %s", desc.FileFormat)
	}
	if desc.Notes == nil || *desc.Notes != "Annual surface concentrations." {
		t.Fatalf("unexpected notes: %v", desc.Notes)
	}
}

func TestInferCompressionKind(t *testing.T) {
	tests := []struct {
		url  string
		want CompressionKind
	}{
		{"https://x/y/file.zip", CompressionZip},
		{"https://x/y/FILE.ZIP", CompressionZip},
		{"https://x/y/file.tar.gz", CompressionTarGz},
		{"https://x/y/file.tgz", CompressionTarGz},
		{"https://x/y/file.tar", CompressionTar},
		{"https://x/y/file.shp", CompressionNone},
		{"https://x/y/file", CompressionNone},
	}
	for _, tt := range tests {
		if got := InferCompressionKind(tt.url); got != tt.want {
			t.Errorf("InferCompressionKind(%s) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestGeometryTypeHint(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		want string
	}{
		{"multipolygon string", map[string]any{"measurementTechnique": "multipolygon"}, "MULTIPOLYGON"},
		{"multipolygon beats polygon", map[string]any{"measurementTechnique": "MultiPolygon boundaries"}, "MULTIPOLYGON"},
		{"polygon", map[string]any{"measurementTechnique": "polygon"}, "POLYGON"},
		{"point", map[string]any{"measurementTechnique": "point observations"}, "POINT"},
		{"line", map[string]any{"measurementTechnique": "line"}, "LINESTRING"},
		{"named object", map[string]any{"measurementTechnique": map[string]any{"name": "polygon"}}, "POLYGON"},
		{"array of strings", map[string]any{"measurementTechnique": []any{"point"}}, "POINT"},
		{"unrecognized", map[string]any{"measurementTechnique": "raster"}, ""},
		{"absent", map[string]any{}, ""},
		{"nil doc", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GeometryTypeHint(tt.doc); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
