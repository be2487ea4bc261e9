package trust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/veridata-labs/semquery/internal/rcacursor"
)

func TestEvidenceStoreWriteAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := NewEvidenceStore(dir)
	if err != nil {
		t.Fatalf("NewEvidenceStore: %v", err)
	}

	task := rcacursor.Task{MetricName: "revenue", GrainKeyColumn: "region_id"}
	result := rcacursor.RCAResult{
		Summary:          rcacursor.Summary{TotalGrainUnits: 3, Mismatch: 1, MissingLeft: 1, MissingRight: 1},
		ReconciliationOK: true,
	}
	inputs := EvidenceInputs{SystemA: "a", SystemB: "b", Metric: "revenue", ReportedMismatch: 15}

	id, err := store.Write(task, result, inputs, "quarterly revenue reconciliation")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty execution id")
	}

	if _, err := os.Stat(filepath.Join(dir, id, "record.json")); err != nil {
		t.Fatalf("expected record.json under execution directory: %v", err)
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ExecutionID != id {
		t.Fatalf("expected execution id %s, got %s", id, loaded.ExecutionID)
	}
	if loaded.Outputs.Summary.TotalGrainUnits != 3 {
		t.Fatalf("expected round-tripped summary, got %+v", loaded.Outputs.Summary)
	}
	if loaded.Inputs.Metric != "revenue" {
		t.Fatalf("expected round-tripped inputs, got %+v", loaded.Inputs)
	}
}

func TestEvidenceStoreLoadMissingExecutionFails(t *testing.T) {
	store, err := NewEvidenceStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewEvidenceStore: %v", err)
	}
	if _, err := store.Load("does-not-exist"); err == nil {
		t.Fatal("expected error loading a nonexistent execution id")
	}
}
