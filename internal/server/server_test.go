package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/TuftsCTSI/gaiaCore/internal/catalog"
	"github.com/TuftsCTSI/gaiaCore/internal/database"
	"github.com/TuftsCTSI/gaiaCore/internal/pipeline"
	"github.com/TuftsCTSI/gaiaCore/internal/server"
)

// fakeRunner records the request it was invoked with.
type fakeRunner struct {
	ranReq     pipeline.RunRequest
	runSteps   []pipeline.Step
	quickName  string
	quickURL   string
	quickSteps []pipeline.NarrowedStep
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.RunRequest) []pipeline.Step {
	f.ranReq = req
	return f.runSteps
}

func (f *fakeRunner) QuickIngest(_ context.Context, name, urlOverride string) []pipeline.NarrowedStep {
	f.quickName = name
	f.quickURL = urlOverride
	return f.quickSteps
}

// fakeLister returns fixed catalog entries.
type fakeLister struct {
	entries []catalog.Entry
	err     error
}

func (f *fakeLister) List(_ context.Context) ([]catalog.Entry, error) {
	return f.entries, f.err
}

// fakeLoader records the fetched URL.
type fakeLoader struct {
	url string
	ds  *database.DataSource
	err error
}

func (f *fakeLoader) FetchAndLoad(_ context.Context, docURL string) (*database.DataSource, error) {
	f.url = docURL
	return f.ds, f.err
}

// fakePinger reports fixed health.
type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error {
	return f.err
}

func newTestServer(runner *fakeRunner, lister *fakeLister, loader *fakeLoader, pinger *fakePinger) http.Handler {
	if runner == nil {
		runner = &fakeRunner{}
	}
	if lister == nil {
		lister = &fakeLister{}
	}
	if loader == nil {
		loader = &fakeLoader{}
	}
	if pinger == nil {
		pinger = &fakePinger{}
	}
	return server.New(runner, lister, loader, pinger, nil).Router()
}

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Profile", "backbone")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListDownloadableDatasources(t *testing.T) {
	url := "https://example.org/pm25.zip"
	table := "public.annual_pm2_5_concentrations"
	lister := &fakeLister{entries: []catalog.Entry{{
		DataSourceUUID:  uuid.New(),
		DatasetName:     "Annual PM2.5 Concentrations",
		HasDownloadURL:  true,
		DownloadURL:     &url,
		FileFormat:      "shapefile",
		AlreadyIngested: true,
		IngestedTable:   &table,
	}}}
	handler := newTestServer(nil, lister, nil, nil)

	rec := post(t, handler, "/rpc/list_downloadable_datasources", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var entries []catalog.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].DatasetName != "Annual PM2.5 Concentrations" {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if !entries[0].AlreadyIngested || *entries[0].IngestedTable != table {
		t.Errorf("provenance fields lost in transport: %+v", entries[0])
	}
}

func TestListDownloadableDatasourcesError(t *testing.T) {
	handler := newTestServer(nil, &fakeLister{err: errors.New("connection refused")}, nil, nil)

	rec := post(t, handler, "/rpc/list_downloadable_datasources", "{}")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestQuickIngestDatasource(t *testing.T) {
	runner := &fakeRunner{quickSteps: []pipeline.NarrowedStep{
		{Step: "metadata_retrieval", Status: "success", Message: "resolved"},
		{Step: "complete", Status: "success", Message: "done"},
	}}
	handler := newTestServer(runner, nil, nil, nil)

	rec := post(t, handler, "/rpc/quick_ingest_datasource", `{
		"p_dataset_name": "PM2.5",
		"p_download_url": "https://mirror.example.org/pm25.tar.gz"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if runner.quickName != "PM2.5" {
		t.Errorf("dataset name not forwarded: %q", runner.quickName)
	}
	if runner.quickURL != "https://mirror.example.org/pm25.tar.gz" {
		t.Errorf("url override not forwarded: %q", runner.quickURL)
	}

	var steps []pipeline.NarrowedStep
	if err := json.Unmarshal(rec.Body.Bytes(), &steps); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(steps) != 2 || steps[1].Step != "complete" {
		t.Errorf("unexpected steps: %+v", steps)
	}
}

func TestQuickIngestRequiresName(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil)

	rec := post(t, handler, "/rpc/quick_ingest_datasource", "{}")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "p_dataset_name") {
		t.Errorf("error must name the missing parameter: %s", rec.Body)
	}
}

func TestRetrieveAndIngestDatasource(t *testing.T) {
	id := uuid.New()
	runner := &fakeRunner{runSteps: []pipeline.Step{
		{StepName: "complete", Status: "success", Message: "done"},
	}}
	handler := newTestServer(runner, nil, nil, nil)

	rec := post(t, handler, "/rpc/retrieve_and_ingest_datasource", `{
		"p_data_source_uuid": "`+id.String()+`",
		"p_target_schema": "working",
		"p_target_table": "pm25_override",
		"p_work_dir": "/data/work",
		"p_keep_downloaded": false
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	if runner.ranReq.DataSourceUUID != id {
		t.Errorf("uuid not forwarded: %s", runner.ranReq.DataSourceUUID)
	}
	if runner.ranReq.TargetSchema != "working" || runner.ranReq.TargetTable != "pm25_override" {
		t.Errorf("target overrides not forwarded: %+v", runner.ranReq)
	}
	if runner.ranReq.WorkDir != "/data/work" {
		t.Errorf("work dir not forwarded: %+v", runner.ranReq)
	}
	if runner.ranReq.KeepDownloaded == nil || *runner.ranReq.KeepDownloaded {
		t.Errorf("keep_downloaded=false must arrive explicitly: %+v", runner.ranReq.KeepDownloaded)
	}
}

func TestRetrieveAndIngestValidation(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil)

	rec := post(t, handler, "/rpc/retrieve_and_ingest_datasource", "{}")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing uuid, got %d", rec.Code)
	}

	rec = post(t, handler, "/rpc/retrieve_and_ingest_datasource", `{"p_data_source_uuid": "not-a-uuid"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed uuid, got %d", rec.Code)
	}

	rec = post(t, handler, "/rpc/retrieve_and_ingest_datasource", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestFetchAndLoadJSONLD(t *testing.T) {
	loader := &fakeLoader{ds: &database.DataSource{
		DataSourceUUID: uuid.New(),
		DatasetName:    "Annual PM2.5 Concentrations",
	}}
	handler := newTestServer(nil, nil, loader, nil)

	rec := post(t, handler, "/rpc/fetch_and_load_jsonld", `{"p_url": "https://example.org/pm25.jsonld"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if loader.url != "https://example.org/pm25.jsonld" {
		t.Errorf("url not forwarded: %q", loader.url)
	}

	var resp []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected a one-row result set, got %v", resp)
	}
	if resp[0]["dataset_name"] != "Annual PM2.5 Concentrations" || resp[0]["data_source_uuid"] == "" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestFetchAndLoadJSONLDFailure(t *testing.T) {
	handler := newTestServer(nil, nil, &fakeLoader{err: errors.New("unexpected status 404")}, nil)

	rec := post(t, handler, "/rpc/fetch_and_load_jsonld", `{"p_url": "https://example.org/missing"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("unexpected health body: %s", rec.Body)
	}

	sick := newTestServer(nil, nil, nil, &fakePinger{err: errors.New("connection refused")})
	rec = httptest.NewRecorder()
	sick.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRPCMethodRestriction(t *testing.T) {
	handler := newTestServer(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/rpc/list_downloadable_datasources", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET on an RPC route, got %d", rec.Code)
	}
}
