package rcacursor

import (
	"context"
	"strings"
	"testing"

	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/storage"
)

// fakeReader is a table-name-keyed in-memory storage.Reader. Like the CSV
// backend it ignores the SQL text's WHERE clause (pushdown fidelity is
// exercised separately against ExecutionPlan construction), returning the
// full table named in "FROM <table>".
type fakeReader struct {
	tables map[string][]storage.Row
}

func (f *fakeReader) Query(_ context.Context, sql string) ([]storage.Row, error) {
	idx := strings.Index(sql, "FROM ")
	rest := sql[idx+len("FROM "):]
	table := strings.Fields(rest)[0]
	rows := f.tables[table]
	out := make([]storage.Row, len(rows))
	for i, r := range rows {
		cp := make(storage.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func (f *fakeReader) Close() {}

func ordersFixture() []storage.Row {
	return []storage.Row{
		{"id": "1", "customer_id": "c1", "region_id": "r1", "amount": "100"},
		{"id": "2", "customer_id": "c2", "region_id": "r1", "amount": "50"},
		{"id": "3", "customer_id": "c1", "region_id": "r2", "amount": "25"},
	}
}

func TestExecScanPrefixesColumnsByTable(t *testing.T) {
	reader := &fakeReader{tables: map[string][]storage.Row{"orders": ordersFixture()}}
	rows, err := execScan(context.Background(), reader, ExecNode{Kind: NodeScan, Table: "orders"})
	if err != nil {
		t.Fatalf("execScan: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if _, ok := rows[0]["orders.amount"]; !ok {
		t.Fatalf("expected prefixed column orders.amount, got %v", rows[0])
	}
}

func TestExecFilterAppliesPredicate(t *testing.T) {
	rows := []storage.Row{
		{"orders.amount": "100"},
		{"orders.amount": "50"},
		{"orders.amount": "25"},
	}
	out := execFilter(rows, "orders.amount > 40")
	if len(out) != 2 {
		t.Fatalf("expected 2 rows above 40, got %d", len(out))
	}
}

func TestExecAggregateSumsByGrainKey(t *testing.T) {
	rows := []storage.Row{
		{"region_id": "r1", "orders.amount": "100"},
		{"region_id": "r1", "orders.amount": "50"},
		{"region_id": "r2", "orders.amount": "25"},
	}
	out, err := execAggregate(rows, ExecNode{
		GroupBy:      []string{"region_id"},
		Aggregations: []string{"metric: sum(amount)"},
	}, "region_id")
	if err != nil {
		t.Fatalf("execAggregate: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 grain groups, got %d", len(out))
	}
	for _, r := range out {
		if r["region_id"] == "r1" && r["metric"] != 150.0 {
			t.Fatalf("expected r1 sum 150, got %v", r["metric"])
		}
	}
}

func TestVerifyGrainNormalizationRejectsDuplicateGrainKeys(t *testing.T) {
	rows := []storage.Row{{"region_id": "r1"}, {"region_id": "r1"}}
	err := verifyGrainNormalization(rows, "region_id")
	if err == nil {
		t.Fatal("expected grain normalization error for duplicate keys")
	}
}

func TestExecuteFullPlanProducesGrainNormalizedResult(t *testing.T) {
	reader := &fakeReader{tables: map[string][]storage.Row{"orders": ordersFixture()}}

	plan := ExecutionPlan{
		Nodes: []ExecNode{
			{Kind: NodeScan, Table: "orders"},
			{Kind: NodeAggregate, GroupBy: []string{"region_id"}, Aggregations: []string{"metric: sum(amount)"}},
		},
		StopConditions: stopConditionsFor(ModeFast),
	}

	collector := observability.NewCollector("test")
	result, err := Execute(context.Background(), plan, reader, "region_id", collector)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("expected 2 grain rows, got %d", result.RowCount)
	}
}

func TestParseFormulaRecognizesAggregationPrefixes(t *testing.T) {
	cases := []struct {
		formula string
		kind    string
		column  string
	}{
		{"sum(amount)", "sum", "amount"},
		{"count(id)", "count", "id"},
		{"avg(amount)", "avg", "amount"},
		{"mean(amount)", "avg", "amount"},
		{"min(amount)", "min", "amount"},
		{"max(amount)", "max", "amount"},
		{"amount", "sum", "amount"},
	}
	for _, c := range cases {
		agg, err := parseFormula(c.formula, "fallback")
		if err != nil {
			t.Fatalf("parseFormula(%q): %v", c.formula, err)
		}
		if agg.Kind != c.kind || agg.Column != c.column {
			t.Fatalf("parseFormula(%q) = %+v, want kind=%s column=%s", c.formula, agg, c.kind, c.column)
		}
	}
}
