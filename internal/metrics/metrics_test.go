package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRun("success")
	m.RecordRun("success")
	m.RecordRun("error")

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("success")); got != 2 {
		t.Fatalf("success runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("error runs = %v, want 1", got)
	}
}

func TestRecordStepDuration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordStepDuration("download", 1.5)
	m.RecordStepDuration("ingestion", 0.2)

	if got := testutil.CollectAndCount(m.stepDurationSeconds); got != 2 {
		t.Fatalf("expected 2 step series, got %d", got)
	}
}

func TestAddDownloadedBytes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddDownloadedBytes(1024)
	m.AddDownloadedBytes(512)

	if got := testutil.ToFloat64(m.downloadedBytesTotal); got != 1536 {
		t.Fatalf("downloaded bytes = %v, want 1536", got)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics

	m.RecordRun("success")
	m.RecordStepDuration("download", 1)
	m.AddDownloadedBytes(10)
}
