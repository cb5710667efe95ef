package pipeline

import (
	"errors"
	"fmt"

	"github.com/TuftsCTSI/gaiaCore/internal/fetch"
	"github.com/TuftsCTSI/gaiaCore/internal/ingest"
)

// Code classifies a pipeline failure for callers inspecting error steps.
type Code string

const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeMissingURL Code = "MISSING_URL"
	CodeDownload   Code = "DOWNLOAD"
	CodeExtract    Code = "EXTRACT"
	CodeIngestion  Code = "INGESTION"
	CodeIndexing   Code = "INDEXING"
	CodeUnmapped   Code = "UNMAPPED"
)

// Error is a classified pipeline failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf maps an error to its pipeline code by inspecting the collaborator
// error types in its chain. Anything unrecognized is UNMAPPED.
func CodeOf(err error) Code {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	var downloadErr *fetch.DownloadError
	if errors.As(err, &downloadErr) {
		return CodeDownload
	}
	var extractErr *fetch.ExtractError
	if errors.As(err, &extractErr) {
		return CodeExtract
	}
	var loadErr *ingest.LoadError
	if errors.As(err, &loadErr) {
		return CodeIngestion
	}
	var indexErr *ingest.IndexError
	if errors.As(err, &indexErr) {
		return CodeIndexing
	}
	return CodeUnmapped
}
