package etlmeta

import "strings"

// urlExtractor probes one historical document shape for a download URL.
type urlExtractor func(doc map[string]any) (string, bool)

// urlExtractors are tried in order; the first hit wins. Order matters: the
// schema.org potentialAction form supersedes the older bare distribution list.
var urlExtractors = []urlExtractor{
	potentialActionURL,
	firstDistributionURL,
}

// Extract derives a DownloadDescriptor from a parsed etl_metadata document.
// It never fails; a document with no usable fields yields a descriptor with a
// nil URL and the shapefile default format.
func Extract(doc map[string]any) DownloadDescriptor {
	desc := DownloadDescriptor{
		FileFormat:      DefaultFileFormat,
		CompressionKind: CompressionNone,
	}
	if doc == nil {
		return desc
	}

	for _, probe := range urlExtractors {
		if url, ok := probe(doc); ok {
			desc.URL = &url
			desc.CompressionKind = InferCompressionKind(url)
			break
		}
	}

	if format := stringField(doc, "encodingFormat"); format != "" {
		desc.FileFormat = format
	}
	if notes := stringField(doc, "description"); notes != "" {
		desc.Notes = &notes
	}
	return desc
}

// ResolveURL runs only the URL probes, in the same order Extract uses.
func ResolveURL(doc map[string]any) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, probe := range urlExtractors {
		if url, ok := probe(doc); ok {
			return url, true
		}
	}
	return "", false
}

// potentialActionURL reads potentialAction.object.url.
func potentialActionURL(doc map[string]any) (string, bool) {
	action, ok := doc["potentialAction"].(map[string]any)
	if !ok {
		return "", false
	}
	object, ok := action["object"].(map[string]any)
	if !ok {
		return "", false
	}
	url, ok := object["url"].(string)
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

// firstDistributionURL reads the first distribution entry, which is either a
// bare URL string or an object carrying contentUrl (or url).
func firstDistributionURL(doc map[string]any) (string, bool) {
	var entry any
	switch dist := doc["distribution"].(type) {
	case []any:
		if len(dist) == 0 {
			return "", false
		}
		entry = dist[0]
	case map[string]any:
		entry = dist
	default:
		return "", false
	}

	switch v := entry.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case map[string]any:
		if url, ok := v["contentUrl"].(string); ok && url != "" {
			return url, true
		}
		if url, ok := v["url"].(string); ok && url != "" {
			return url, true
		}
	}
	return "", false
}

// GeometryTypeHint maps the document's measurementTechnique code to the sink's
// geometry type. Unrecognized or absent hints return "" so the sink infers the
// type from the source file instead.
func GeometryTypeHint(doc map[string]any) string {
	hint := measurementTechnique(doc)
	if hint == "" {
		return ""
	}
	lower := strings.ToLower(hint)
	switch {
	case strings.Contains(lower, "multipolygon"):
		return "MULTIPOLYGON"
	case strings.Contains(lower, "polygon"):
		return "POLYGON"
	case strings.Contains(lower, "point"):
		return "POINT"
	case strings.Contains(lower, "line"):
		return "LINESTRING"
	default:
		return ""
	}
}

// measurementTechnique tolerates the three shapes seen in the wild: a bare
// string, an object with a name, or an array of either.
func measurementTechnique(doc map[string]any) string {
	if doc == nil {
		return ""
	}
	value := doc["measurementTechnique"]
	if arr, ok := value.([]any); ok {
		if len(arr) == 0 {
			return ""
		}
		value = arr[0]
	}
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}

// stringField returns a top-level string field, or "" when absent.
func stringField(doc map[string]any, key string) string {
	v, _ := doc[key].(string)
	return v
}
