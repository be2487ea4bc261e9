package rcacursor

import (
	"testing"

	"github.com/veridata-labs/semquery/internal/storage"
)

func resultFor(grainKey string, rows []storage.Row) *ExecutionResult {
	return &ExecutionResult{GrainKeyColumn: grainKey, Rows: rows, RowCount: len(rows)}
}

func TestDiffClassifiesMissingAndMismatchedGrainUnits(t *testing.T) {
	a := resultFor("region_id", []storage.Row{
		{"region_id": "r1", "metric": 100.0},
		{"region_id": "r2", "metric": 50.0},
	})
	b := resultFor("region_id", []storage.Row{
		{"region_id": "r1", "metric": 90.0},
		{"region_id": "r3", "metric": 10.0},
	})

	diffs, summary, err := Diff(a, b, 10)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if summary.Mismatch != 1 || summary.MissingRight != 1 || summary.MissingLeft != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	// sorted descending by impact: r2 (impact 50) first, then r1 (10), then r3 (10, tie broken lexicographically after r1)
	if len(diffs) != 3 {
		t.Fatalf("expected 3 non-match diffs, got %d", len(diffs))
	}
	if diffs[0].GrainValue != "r2" || diffs[0].Class != ClassMissingRight {
		t.Fatalf("expected r2 missing_right first, got %+v", diffs[0])
	}
}

func TestDiffRequiresMatchingGrainKeyColumns(t *testing.T) {
	a := resultFor("region_id", nil)
	b := resultFor("grain", nil)
	if _, _, err := Diff(a, b, 10); err == nil {
		t.Fatal("expected error for mismatched grain-key columns")
	}
}

func TestDiffExcludesMatchesFromReturnedTopDifferences(t *testing.T) {
	a := resultFor("region_id", []storage.Row{{"region_id": "r1", "metric": 100.0}})
	b := resultFor("region_id", []storage.Row{{"region_id": "r1", "metric": 100.0}})

	diffs, summary, err := Diff(a, b, 10)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if summary.Match != 1 {
		t.Fatalf("expected 1 match, got %+v", summary)
	}
	if len(diffs) != 0 {
		t.Fatalf("expected matches excluded from top differences, got %d", len(diffs))
	}
}

func TestReconcilesAgreesWithComputedMismatch(t *testing.T) {
	summary := Summary{}
	diffs := []GrainDifference{
		{Class: ClassMissingLeft, ValueB: 10},
		{Class: ClassMissingRight, ValueA: 5},
		{Class: ClassMismatch, ValueA: 100, ValueB: 90},
	}
	// computed = 10 - 5 + (100-90) = 15
	if !Reconciles(summary, diffs, 15, 6) {
		t.Fatal("expected reconciliation to pass for exact match")
	}
	if Reconciles(summary, diffs, 15.1, 6) {
		t.Fatal("expected reconciliation to fail outside tolerance")
	}
}
