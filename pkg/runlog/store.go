// Package runlog persists pipeline run audit trails as JSONL objects, one
// object per run, in an artifact store.
package runlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TuftsCTSI/gaiaCore/internal/artifact"
	"github.com/TuftsCTSI/gaiaCore/internal/pipeline"
)

// DefaultPrefix is the object-key prefix used when none is configured.
const DefaultPrefix = "runs"

// Store writes one JSONL object per pipeline run under
// <prefix>/<runID>-<unixnano>.jsonl.
type Store struct {
	store  artifact.Store
	bucket string
	prefix string
}

var _ pipeline.RunLog = (*Store)(nil)

// NewStore creates a run log over the given artifact store.
func NewStore(store artifact.Store, bucket, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{store: store, bucket: bucket, prefix: prefix}
}

// Record writes the run's step list, one JSON object per line. A run with no
// steps writes nothing.
func (s *Store) Record(ctx context.Context, runID string, steps []pipeline.Step) error {
	if len(steps) == 0 {
		return nil
	}
	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return fmt.Errorf("failed to ensure run log bucket: %w", err)
	}

	var buf bytes.Buffer
	for _, step := range steps {
		line, err := json.Marshal(step)
		if err != nil {
			return fmt.Errorf("failed to encode run log step: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := s.key(fmt.Sprintf("%s-%d.jsonl", runID, time.Now().UnixNano()))
	if err := s.store.Put(ctx, s.bucket, key, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write run log: %w", err)
	}
	return nil
}

// ListRuns returns the keys of all recorded runs, oldest-first by key order.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	return s.store.List(ctx, s.bucket, s.prefix)
}

// ReadRun loads one recorded run's step list by its object key.
func (s *Store) ReadRun(ctx context.Context, key string) ([]pipeline.Step, error) {
	data, err := s.store.Get(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read run log %s: %w", key, err)
	}

	var steps []pipeline.Step
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var step pipeline.Step
		if err := json.Unmarshal([]byte(line), &step); err != nil {
			return nil, fmt.Errorf("failed to decode run log line: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (s *Store) key(file string) string {
	return strings.Trim(s.prefix+"/"+file, "/")
}
