// Package pipeline sequences dataset retrieval and ingestion as a named step
// state machine: metadata_retrieval, etl_info_extraction, download, ingestion,
// indexing, cleanup, complete. Each run yields an ordered list of step records
// that doubles as the caller's error channel; a run never raises past its step
// list.
package pipeline

// Step statuses.
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusWarning    = "warning"
	StatusError      = "error"
	StatusInfo       = "info"
)

// Step names, in execution order.
const (
	StepMetadataRetrieval = "metadata_retrieval"
	StepETLInfoExtraction = "etl_info_extraction"
	StepDownload          = "download"
	StepIngestion         = "ingestion"
	StepIndexing          = "indexing"
	StepCleanup           = "cleanup"
	StepComplete          = "complete"
)

// Step is one record of a pipeline run's audit trail. Runs are not persisted;
// each invocation starts a fresh sequence.
type Step struct {
	StepName string         `json:"step_name"`
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// NarrowedStep is the reduced step shape returned by the quick-ingest entry
// point: structured details are dropped.
type NarrowedStep struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Narrow reduces a full step list to its quick-ingest shape.
func Narrow(steps []Step) []NarrowedStep {
	narrowed := make([]NarrowedStep, 0, len(steps))
	for _, s := range steps {
		narrowed = append(narrowed, NarrowedStep{
			Step:    s.StepName,
			Status:  s.Status,
			Message: s.Message,
		})
	}
	return narrowed
}
