package rcacursor

import (
	"context"
	"testing"

	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/semantic"
	"github.com/veridata-labs/semquery/internal/storage"
)

func cursorTestRegistry() *semantic.Registry {
	reg := semantic.New()
	reg.RegisterMetric(semantic.Metric{
		Name:        "revenue",
		BaseTable:   "orders_a",
		Aggregation: semantic.AggSum,
	})
	return reg
}

func TestCursorRunReconcilesTwoSystems(t *testing.T) {
	readerA := &fakeReader{tables: map[string][]storage.Row{
		"orders_a": {
			{"region_id": "r1", "amount": "100"},
			{"region_id": "r2", "amount": "50"},
		},
	}}
	readerB := &fakeReader{tables: map[string][]storage.Row{
		"orders_b": {
			{"region_id": "r1", "amount": "90"},
			{"region_id": "r3", "amount": "10"},
		},
	}}

	task := Task{
		MetricName:     "revenue",
		GrainEntity:    "region",
		GrainKeyColumn: "region_id",
		Mode:           ModeDeep,
		SystemA:        SystemDescriptor{Name: "system_a", Table: "orders_a", ValueColumn: "amount", Formula: "sum(amount)"},
		SystemB:        SystemDescriptor{Name: "system_b", Table: "orders_b", ValueColumn: "amount", Formula: "sum(amount)"},
	}

	traceStore := observability.NewStore()
	cursor := New(cursorTestRegistry(), traceStore)

	result, err := cursor.Run(context.Background(), task, readerA, readerB)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Summary.TotalGrainUnits != 3 {
		t.Fatalf("expected 3 grain units, got %d", result.Summary.TotalGrainUnits)
	}
	if result.Summary.Mismatch != 1 || result.Summary.MissingLeft != 1 || result.Summary.MissingRight != 1 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if result.FormattedDisplay == "" {
		t.Fatal("expected a non-empty narrative")
	}
	if _, ok := traceStore.Get(result.TraceRequestID); !ok {
		t.Fatal("expected a trace to be recorded")
	}
	if len(result.Attributions) != 3 {
		t.Fatalf("expected one attribution per non-match diff, got %d", len(result.Attributions))
	}
}

func TestCursorRunRejectsUnknownMetric(t *testing.T) {
	cursor := New(cursorTestRegistry(), nil)
	task := Task{
		MetricName:     "unknown_metric",
		GrainEntity:    "region",
		GrainKeyColumn: "region_id",
		SystemA:        SystemDescriptor{Table: "a", ValueColumn: "amount", Formula: "sum(amount)"},
		SystemB:        SystemDescriptor{Table: "b", ValueColumn: "amount", Formula: "sum(amount)"},
	}
	_, err := cursor.Run(context.Background(), task, &fakeReader{}, &fakeReader{})
	if err == nil {
		t.Fatal("expected validation error for unknown metric")
	}
}
