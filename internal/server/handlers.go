package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TuftsCTSI/gaiaCore/internal/pipeline"
)

// =============================================================================
// RPC HANDLERS
// =============================================================================

func (s *Server) handleListDatasources(w http.ResponseWriter, r *http.Request) {
	entries, err := s.lister.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list datasources", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type quickIngestParams struct {
	DatasetName string `json:"p_dataset_name"`
	DownloadURL string `json:"p_download_url"`
}

func (s *Server) handleQuickIngest(w http.ResponseWriter, r *http.Request) {
	var params quickIngestParams
	if !decodeParams(w, r, &params) {
		return
	}
	if params.DatasetName == "" {
		writeError(w, http.StatusBadRequest, "p_dataset_name is required")
		return
	}
	steps := s.runner.QuickIngest(r.Context(), params.DatasetName, params.DownloadURL)
	writeJSON(w, http.StatusOK, steps)
}

type retrieveIngestParams struct {
	DataSourceUUID string `json:"p_data_source_uuid"`
	DownloadURL    string `json:"p_download_url"`
	TargetSchema   string `json:"p_target_schema"`
	TargetTable    string `json:"p_target_table"`
	WorkDir        string `json:"p_work_dir"`
	KeepDownloaded *bool  `json:"p_keep_downloaded"`
}

func (s *Server) handleRetrieveIngest(w http.ResponseWriter, r *http.Request) {
	var params retrieveIngestParams
	if !decodeParams(w, r, &params) {
		return
	}
	if params.DataSourceUUID == "" {
		writeError(w, http.StatusBadRequest, "p_data_source_uuid is required")
		return
	}
	id, err := uuid.Parse(params.DataSourceUUID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "p_data_source_uuid is not a valid UUID")
		return
	}

	steps := s.runner.Run(r.Context(), pipeline.RunRequest{
		DataSourceUUID: id,
		DownloadURL:    params.DownloadURL,
		TargetSchema:   params.TargetSchema,
		TargetTable:    params.TargetTable,
		WorkDir:        params.WorkDir,
		KeepDownloaded: params.KeepDownloaded,
	})
	writeJSON(w, http.StatusOK, steps)
}

type fetchLoadParams struct {
	URL string `json:"p_url"`
}

func (s *Server) handleFetchJSONLD(w http.ResponseWriter, r *http.Request) {
	var params fetchLoadParams
	if !decodeParams(w, r, &params) {
		return
	}
	if params.URL == "" {
		writeError(w, http.StatusBadRequest, "p_url is required")
		return
	}

	ds, err := s.loader.FetchAndLoad(r.Context(), params.URL)
	if err != nil {
		s.logger.Error("failed to load metadata document",
			zap.String("url", params.URL),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	// Set-returning function shape: a one-row result set.
	writeJSON(w, http.StatusOK, []map[string]string{{
		"data_source_uuid": ds.DataSourceUUID.String(),
		"dataset_name":     ds.DatasetName,
	}})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// decodeParams reads the p_-prefixed JSON parameter object. An empty body is
// treated as an empty parameter set.
func decodeParams(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
