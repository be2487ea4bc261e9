package trust

import (
	"context"
	"strings"
	"testing"

	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/rcacursor"
	"github.com/veridata-labs/semquery/internal/semantic"
	"github.com/veridata-labs/semquery/internal/storage"
)

// fakeReader is an in-memory storage.Reader that returns copies of its
// fixed rows for any SQL text, ignoring the table name and WHERE clause;
// rowsFor picks the rows per table.
type fakeReader struct {
	rows []storage.Row
}

func (f *fakeReader) Query(_ context.Context, sql string) ([]storage.Row, error) {
	_ = sql
	out := make([]storage.Row, len(f.rows))
	for i, r := range f.rows {
		cp := make(storage.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func (f *fakeReader) Close() {}

func testReconciliationTask() rcacursor.Task {
	return rcacursor.Task{
		MetricName:     "revenue",
		GrainEntity:    "region",
		GrainKeyColumn: "region_id",
		Mode:           rcacursor.ModeDeep,
		SystemA:        rcacursor.SystemDescriptor{Name: "system_a", Table: "orders_a", ValueColumn: "amount", Formula: "sum(amount)"},
		SystemB:        rcacursor.SystemDescriptor{Name: "system_b", Table: "orders_b", ValueColumn: "amount", Formula: "sum(amount)"},
	}
}

func testTrustRegistry() *semantic.Registry {
	reg := semantic.New()
	reg.RegisterMetric(semantic.Metric{Name: "revenue", BaseTable: "orders_a", Aggregation: semantic.AggSum})
	return reg
}

func rowsFor(table string) []storage.Row {
	if strings.HasSuffix(table, "_a") {
		return []storage.Row{{"region_id": "r1", "amount": "100"}, {"region_id": "r2", "amount": "50"}}
	}
	return []storage.Row{{"region_id": "r1", "amount": "90"}, {"region_id": "r3", "amount": "10"}}
}

func TestReplayReproducesOriginalSummary(t *testing.T) {
	ctx := context.Background()
	reg := testTrustRegistry()
	traceStore := observability.NewStore()
	cursor := rcacursor.New(reg, traceStore)
	task := testReconciliationTask()

	original, err := cursor.Run(ctx, task, &fakeReader{rows: rowsFor("orders_a")}, &fakeReader{rows: rowsFor("orders_b")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	store, err := NewEvidenceStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewEvidenceStore: %v", err)
	}
	id, err := store.Write(task, *original, EvidenceInputs{SystemA: "system_a", SystemB: "system_b", Metric: "revenue"}, "test reconciliation")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	readers := func(_ context.Context, sys rcacursor.SystemDescriptor) (storage.Reader, error) {
		return &fakeReader{rows: rowsFor(sys.Table)}, nil
	}

	replay, err := Replay(ctx, store, reg, traceStore, readers, id, true, 0.001)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if replay.Verification == nil {
		t.Fatal("expected verification to run")
	}
	if !replay.Verification.Matches {
		t.Fatalf("expected replay to match original, got differences: %v", replay.Verification.Differences)
	}
}
