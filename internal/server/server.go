// Package server exposes the pipeline as a PostgREST-style RPC facade:
// each operation is a POST under /rpc/ taking p_-prefixed JSON parameters.
// Profile negotiation headers (Accept-Profile, Content-Profile) are accepted
// and ignored.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/catalog"
	"github.com/TuftsCTSI/gaiaCore/internal/database"
	"github.com/TuftsCTSI/gaiaCore/internal/pipeline"
)

// PipelineRunner executes retrieval-and-ingestion runs.
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.RunRequest) []pipeline.Step
	QuickIngest(ctx context.Context, name, urlOverride string) []pipeline.NarrowedStep
}

// CatalogLister reports downloadable datasets.
type CatalogLister interface {
	List(ctx context.Context) ([]catalog.Entry, error)
}

// MetadataLoader registers dataset metadata documents by URL.
type MetadataLoader interface {
	FetchAndLoad(ctx context.Context, docURL string) (*database.DataSource, error)
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes RPC calls to the pipeline and its read models.
type Server struct {
	runner PipelineRunner
	lister CatalogLister
	loader MetadataLoader
	db     Pinger
	logger *zap.Logger
}

// New creates the RPC facade. A nil logger disables logging.
func New(runner PipelineRunner, lister CatalogLister, loader MetadataLoader, db Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		runner: runner,
		lister: lister,
		loader: loader,
		db:     db,
		logger: logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	rpc := r.PathPrefix("/rpc").Subrouter()
	rpc.HandleFunc("/list_downloadable_datasources", s.handleListDatasources).Methods(http.MethodPost)
	rpc.HandleFunc("/quick_ingest_datasource", s.handleQuickIngest).Methods(http.MethodPost)
	rpc.HandleFunc("/retrieve_and_ingest_datasource", s.handleRetrieveIngest).Methods(http.MethodPost)
	rpc.HandleFunc("/fetch_and_load_jsonld", s.handleFetchJSONLD).Methods(http.MethodPost)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// requestLogger logs every request with its handling time.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
